package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var dumpFormat string

var dumpCmd = &cobra.Command{
	Use:   "dump <dataset>",
	Short: "Print every key and value of a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		h, err := pool.Acquire(cmd.Context(), metadataFor(name))
		if err != nil {
			return err
		}
		defer h.Release()

		switch dumpFormat {
		case "json":
			all := make(map[string]string)
			err := h.Reader().ForEach(func(k, v []byte) error {
				all[string(k)] = string(v)
				return nil
			})
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(all, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
		case "text":
			return h.Reader().ForEach(func(k, v []byte) error {
				_, err := fmt.Printf("%s=%s\n", k, v)
				return err
			})
		default:
			return fmt.Errorf("unknown format %q", dumpFormat)
		}

		return nil
	},
}

func init() {
	dumpCmd.Flags().StringVar(&dumpFormat, "format", "text", "output format: text, json")
	rootCmd.AddCommand(dumpCmd)
}
