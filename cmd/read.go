package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read <dataset> <KEY>",
	Short: "Read a single value from a dataset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, key := args[0], args[1]

		h, err := pool.Acquire(cmd.Context(), metadataFor(name))
		if err != nil {
			return err
		}
		defer h.Release()

		val, err := h.Reader().Get([]byte(key))
		if err != nil {
			return fmt.Errorf("read %s/%s: %w", name, key, err)
		}

		fmt.Printf("%s", val)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
}
