package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var lockHold time.Duration

var lockCmd = &cobra.Command{
	Use:   "lock <dataset>",
	Short: "Take the exclusive lock on a dataset, hold it, then unlock",
	Long: `Waits until no reader of the dataset is leased, takes the exclusive lock (closing
idle readers), holds it for --hold and unlocks. Retries follow the lock.* backoff settings.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		ctx := cmd.Context()

		start := time.Now()
		if err := pool.LockWait(ctx, name, lockBackOff()); err != nil {
			return fmt.Errorf("lock %q: %w", name, err)
		}
		fmt.Fprintf(os.Stderr, "Locked dataset %q after %s\n", name, time.Since(start).Round(time.Millisecond))

		select {
		case <-time.After(lockHold):
		case <-ctx.Done():
		}

		pool.Unlock(name)
		fmt.Fprintf(os.Stderr, "Unlocked dataset %q\n", name)
		return nil
	},
}

func init() {
	lockCmd.Flags().DurationVar(&lockHold, "hold", time.Second, "how long to hold the lock")
	rootCmd.AddCommand(lockCmd)
}
