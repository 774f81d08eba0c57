package cmd

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	forkjoin "github.com/vhlavac/forkjoin"
)

var (
	replayDepth      int
	replayRounds     int
	replayPoolIdxArg int
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Record a spawn tree once, then replay it N times",
	RunE: func(c *cobra.Command, args []string) error {
		replayPoolIdx := uint32(replayPoolIdxArg)

		s := forkjoin.New(context.Background(), workers, initialPools)
		defer func() {
			s.Terminate()
			_ = s.WaitForTermination()
		}()

		s.ResetPool(replayPoolIdx)

		var ran atomic.Int64
		var spawn func(depth int) forkjoin.Callable
		spawn = func(depth int) forkjoin.Callable {
			return func() {
				ran.Add(1)
				if depth <= 1 {
					return
				}
				for i := 0; i < 2; i++ {
					if _, err := s.SubmitChild(replayPoolIdx, spawn(depth-1)); err != nil {
						fmt.Fprintln(c.ErrOrStderr(), "submit child:", err)
					}
				}
			}
		}

		s.SubmitJob(replayPoolIdx, spawn(replayDepth))
		s.Wait()
		fmt.Fprintf(c.OutOrStdout(), "recorded %d job bodies\n", ran.Load())

		for round := 1; round <= replayRounds; round++ {
			done := make(chan struct{})
			s.PlayBackPool(replayPoolIdx, func() { close(done) })
			<-done
			s.Wait()
			fmt.Fprintf(c.OutOrStdout(), "replay %d/%d: %d bodies run so far\n", round, replayRounds, ran.Load())
		}

		pp.Println(s.Metrics())
		return nil
	},
}

func init() {
	replayCmd.Flags().IntVar(&replayDepth, "depth", 3, "recorded spawn tree depth")
	replayCmd.Flags().IntVar(&replayRounds, "rounds", 3, "number of playback rounds")
	replayCmd.Flags().IntVar(&replayPoolIdxArg, "pool", 1, "pool index to record into and replay")
}
