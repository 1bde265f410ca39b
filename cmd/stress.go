package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/Kashuab/readerpool/internal/factory"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

var (
	stressWorkers    int
	stressIterations int
	stressLocker     bool
)

var stressCmd = &cobra.Command{
	Use:   "stress <dataset...>",
	Short: "Run concurrent acquire/release cycles against datasets",
	Long: `Each worker acquires a random dataset and releases it again, --iterations
times. With --locker a further goroutine keeps locking and unlocking random datasets
while the workers run. Workers skip datasets they find locked or full.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureDatasets(args)

		var (
			acquired atomic.Int64
			locked   atomic.Int64
			full     atomic.Int64
			locks    atomic.Int64
		)

		start := time.Now()
		workers, ctx := errgroup.WithContext(cmd.Context())
		for w := 0; w < stressWorkers; w++ {
			seed := uint64(w + 1)
			workers.Go(func() error {
				rnd := rand.New(rand.NewPCG(seed, ^seed))
				for i := 0; i < stressIterations; i++ {
					if err := ctx.Err(); err != nil {
						return err
					}
					h, err := pool.Acquire(ctx, metadataFor(args[rnd.IntN(len(args))]))
					if stressLocker && errors.Is(err, factory.ErrLocked) {
						locked.Inc()
						continue
					}
					if errors.Is(err, factory.ErrPoolFull) {
						full.Inc()
						continue
					}
					if err != nil {
						return err
					}
					acquired.Inc()
					if err := h.Release(); err != nil {
						return err
					}
				}
				return nil
			})
		}

		lockerDone := make(chan error, 1)
		lockerCtx, stopLocker := context.WithCancel(ctx)
		if stressLocker {
			go func() {
				lockerDone <- runLocker(lockerCtx, args, &locks)
			}()
		} else {
			lockerDone <- nil
		}

		err := workers.Wait()
		stopLocker()
		if lerr := <-lockerDone; err == nil {
			err = lerr
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "%d workers, %d acquisitions, %d skipped as locked, %d skipped as full, %d locks in %s\n",
			stressWorkers, acquired.Load(), locked.Load(), full.Load(), locks.Load(), units.HumanDuration(time.Since(start)))
		return printStatusTable(pool)
	},
}

// runLocker locks and unlocks random datasets until ctx is done.
func runLocker(ctx context.Context, names []string, locks *atomic.Int64) error {
	rnd := rand.New(rand.NewPCG(0, 1))
	for ctx.Err() == nil {
		name := names[rnd.IntN(len(names))]
		err := pool.Lock(name)
		if factory.IsRetryable(err) {
			continue
		}
		if err != nil {
			return err
		}
		locks.Inc()
		pool.Unlock(name)
	}
	return nil
}

func init() {
	stressCmd.Flags().IntVar(&stressWorkers, "workers", 2, "number of concurrent workers")
	stressCmd.Flags().IntVar(&stressIterations, "iterations", 1000, "acquire/release cycles per worker")
	stressCmd.Flags().BoolVar(&stressLocker, "locker", false, "lock and unlock datasets while workers run")
	rootCmd.AddCommand(stressCmd)
}
