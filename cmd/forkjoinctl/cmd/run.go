package cmd

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	forkjoin "github.com/vhlavac/forkjoin"
)

var runDepth int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Submit a binary spawn tree and wait for it to drain",
	RunE: func(c *cobra.Command, args []string) error {
		s := forkjoin.New(context.Background(), workers, initialPools)
		defer func() {
			s.Terminate()
			_ = s.WaitForTermination()
		}()

		var ran atomic.Int64
		var spawn func(depth int) forkjoin.Callable
		spawn = func(depth int) forkjoin.Callable {
			return func() {
				ran.Add(1)
				if depth <= 1 {
					return
				}
				for i := 0; i < 2; i++ {
					if _, err := s.SubmitChild(0, spawn(depth-1)); err != nil {
						fmt.Fprintln(c.ErrOrStderr(), "submit child:", err)
					}
				}
			}
		}

		s.SubmitJob(0, spawn(runDepth))
		s.Wait()

		fmt.Fprintf(c.OutOrStdout(), "ran %d job bodies\n", ran.Load())
		pp.Println(s.Metrics())
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runDepth, "depth", 3, "spawn tree depth (root counts as depth 1)")
}
