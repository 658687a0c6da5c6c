package doc

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dDoc/cmd/util"
	"github.com/ValentinKolb/dDoc/lib/docstore"
	"github.com/ValentinKolb/dDoc/lib/document"
	"github.com/ValentinKolb/dDoc/lib/gateway"
	"github.com/ValentinKolb/dDoc/lib/lockmgr"
	"github.com/ValentinKolb/dDoc/lib/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	gw    gateway.IGateway
	locks lockmgr.ILockManager
	docs  *docstore.Store

	// DocumentCommands represents the document command group
	DocumentCommands = &cobra.Command{
		Use:               "doc",
		Short:             "Read and modify documents",
		PersistentPreRunE: setupDocumentClient,
	}
)

func init() {
	util.SetupRPCClientFlags(DocumentCommands, 100)

	flags := DocumentCommands.PersistentFlags()
	flags.Bool("concurrent", false, util.WrapString("Open documents without session locking, the last save wins"))
	flags.Bool("steal", false, util.WrapString("Take over the session lock of a document that is held by another session"))
	flags.String("cel", "", util.WrapString("CEL expression over 'data' that must hold for every written document (e.g. 'data.count >= 0')"))
	flags.String("cue-file", "", util.WrapString("File with a CUE schema every written document must satisfy"))
	flags.Float64("rate", 0, util.WrapString("Maximum store requests per second of each operation class, 0 is unlimited"))

	DocumentCommands.AddCommand(showCmd)
	DocumentCommands.AddCommand(updateCmd)
	DocumentCommands.AddCommand(eraseCmd)
	DocumentCommands.AddCommand(statusCmd)
}

// setupDocumentClient creates the gateway and the lock manager on top of the remote shard
// and collects the document options of the flags
func setupDocumentClient(cmd *cobra.Command, _ []string) error {
	s, err := util.ConnectStore(cmd)
	if err != nil {
		return err
	}

	gwOpts := gateway.DefaultOptions()
	if perSecond := viper.GetFloat64("rate"); perSecond > 0 {
		limit := gateway.Limit{PerSecond: perSecond, Burst: 1}
		gwOpts.Budget = gateway.NewRateBudget(gateway.RateLimits{Get: limit, Update: limit, Remove: limit})
	}
	gw = gateway.NewGateway(s, gwOpts)
	locks = lockmgr.NewLockManager(s, nil)

	var opts document.Options
	if viper.GetBool("concurrent") {
		opts = document.ConcurrentOptions()
	} else {
		opts = document.DefaultOptions()
	}
	if opts.Validator, err = validator(); err != nil {
		return err
	}
	docs = docstore.New(gw, locks, opts)
	return nil
}

// validator builds the schema validator of the --cel and --cue-file flags
func validator() (schema.Validator, error) {
	var validators []schema.Validator

	if expr := viper.GetString("cel"); expr != "" {
		v, err := schema.NewCEL(expr)
		if err != nil {
			return nil, err
		}
		validators = append(validators, v)
	}

	if path := viper.GetString("cue-file"); path != "" {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read cue schema: %w", err)
		}
		v, err := schema.NewCUE(string(src))
		if err != nil {
			return nil, err
		}
		validators = append(validators, v)
	}

	if len(validators) == 0 {
		return nil, nil
	}
	return schema.All(validators...), nil
}

// getDocument returns the document for key and applies the --steal flag
func getDocument(key string) (*document.Document, error) {
	d := docs.Get(key)
	if viper.GetBool("steal") {
		if err := d.Steal(); err != nil {
			return nil, err
		}
	}
	return d, nil
}
