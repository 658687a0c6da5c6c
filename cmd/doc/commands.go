package doc

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/dDoc/lib/document"
	"github.com/ValentinKolb/dDoc/lib/envelope"
	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
)

var (
	showCmd = &cobra.Command{
		Use:   "show [key]",
		Short: "Print the stored envelope of a document",
		Long:  "Print the stored envelope of a document as it is in the store. The document is not opened, so no migration runs and no lock is taken.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, info, err := gw.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !info.Exists {
				fmt.Printf("key=%s, found=false\n", args[0])
				return nil
			}

			env, err := envelope.Decode(raw)
			if err != nil {
				return fmt.Errorf("stored value is not a document: %w", err)
			}
			return printJSON(env)
		},
	}

	updateCmd = &cobra.Command{
		Use:   "update [key] [json]",
		Short: "Merge a JSON object into the data of a document",
		Long: `Open the document, merge the JSON object into its data and close it again.
The merge follows JSON merge patch rules: objects are merged recursively, null removes a field and every other value replaces the field.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			var patch map[string]any
			if err := json.Unmarshal([]byte(args[1]), &patch); err != nil {
				return fmt.Errorf("patch must be a JSON object: %w", err)
			}

			d, err := getDocument(args[0])
			if err != nil {
				return err
			}
			if _, err := d.Open(cmd.Context()); err != nil {
				return err
			}
			// an interrupt still saves the document and releases its lock
			stop := docs.BindToClose(cmd.Context())
			defer stop()
			defer func() {
				closeErr := d.Close(cmd.Context())
				if closeErr != nil && !errors.Is(closeErr, document.ErrAlreadyClosed) {
					err = multierror.Append(err, closeErr).ErrorOrNil()
				}
			}()

			data, err := d.Update(cmd.Context(), func(data any) (any, error) {
				current, ok := data.(map[string]any)
				if !ok {
					return nil, errors.New("document data is not an object")
				}
				return mergePatch(current, patch), nil
			})
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}

	eraseCmd = &cobra.Command{
		Use:   "erase [key]",
		Short: "Remove a document from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := getDocument(args[0])
			if err != nil {
				return err
			}
			if err := d.Erase(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("erased successfully")
			return nil
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status [key]",
		Short: "Print whether a document can be opened and which session holds it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := getDocument(args[0])
			if err != nil {
				return err
			}
			available, err := d.IsOpenAvailable(cmd.Context())
			if err != nil {
				return err
			}
			holder, held, err := locks.GetLockHolder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, available=%t, locked=%t, session=%s\n", args[0], available, held, holder)
			return nil
		},
	}
)

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
