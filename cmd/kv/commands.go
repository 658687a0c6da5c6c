package kv

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], []byte(args[1])
			ttl, _ := cmd.Flags().GetDuration("ttl")
			ifUnset, _ := cmd.Flags().GetBool("if-unset")

			switch {
			case ifUnset:
				ok, err := kvStore.SetEIfUnset(key, value, ttl)
				if err != nil {
					return err
				}
				fmt.Printf("key=%s, written=%t\n", key, ok)
				return nil
			case ttl > 0:
				if err := kvStore.SetE(key, value, ttl); err != nil {
					return err
				}
			default:
				if err := kvStore.Set(key, value); err != nil {
					return err
				}
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			resp, ok, err := kvStore.Get(key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v, resp=%s\n", key, ok, resp)
			return nil
		},
	}
	casCmd = &cobra.Command{
		Use:   "cas [key] [expected] [value]",
		Short: "Replaces the value for a key if it still holds the expected value",
		Args: func(cmd *cobra.Command, args []string) error {
			if absent, _ := cmd.Flags().GetBool("absent"); absent {
				return cobra.ExactArgs(2)(cmd, args)
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, _ := cmd.Flags().GetDuration("ttl")
			absent, _ := cmd.Flags().GetBool("absent")

			key := args[0]
			var expected, value []byte
			if absent {
				value = []byte(args[1])
			} else {
				expected, value = []byte(args[1]), []byte(args[2])
			}

			swapped, err := kvStore.CompareAndSwap(key, expected, value, ttl)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, swapped=%t\n", key, swapped)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "delete [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := kvStore.Delete(args[0]); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			found, err := kvStore.Has(key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t\n", key, found)
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints information about the database of the shard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := kvStore.GetDBInfo()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
)
