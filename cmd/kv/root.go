package kv

import (
	"github.com/ValentinKolb/dDoc/cmd/util"
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/spf13/cobra"
)

var (
	kvStore store.IStore

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform raw key-value operations on a store shard",
		PersistentPreRunE: setupKVClient,
	}
)

func init() {
	util.SetupRPCClientFlags(KeyValueCommands, 100)

	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(casCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(hasCmd)
	KeyValueCommands.AddCommand(infoCmd)

	setCmd.Flags().Duration("ttl", 0, util.WrapString("Lifetime of the value (e.g. 30s, 10m), 0 never expires"))
	setCmd.Flags().Bool("if-unset", false, util.WrapString("Only write the value if the key does not exist"))
	casCmd.Flags().Duration("ttl", 0, util.WrapString("Lifetime of the new value, 0 never expires"))
	casCmd.Flags().Bool("absent", false, util.WrapString("Expect the key to be absent instead of holding [expected]"))
}

// setupKVClient connects to the configured store
func setupKVClient(cmd *cobra.Command, _ []string) (err error) {
	kvStore, err = util.ConnectStore(cmd)
	return err
}
