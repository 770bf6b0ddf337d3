package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/latent-rl/cem-planning/benchmarks/bowl"
	"github.com/latent-rl/cem-planning/benchmarks/common"
	"github.com/latent-rl/cem-planning/core"
)

func BowlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bowl",
		Short: "Compare planners on the quadratic bowl benchmark",
		RunE: func(cmd *cobra.Command, args []string) error {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt) // channel for interrupts from os

			doneCh := make(chan struct{}) // channel for done signal from application

			ctx, cancel := context.WithCancel(context.Background())
			go func() { // start a go-routine
				select { // can wait on multiple channels
				case <-sigCh:
				case <-doneCh:
				}
				cancel()
			}()

			logger, err := common.NewLogger(flags.SavePath, flags.Debug)
			if err != nil {
				return err
			}
			defer logger.Sync()

			cmp, err := bowl.PrepareComparison(flags, logger)
			if err != nil {
				return err
			}
			cmp.Run(ctx, flags.NumRuns, &core.RunConfig{
				Episodes:                     flags.Episodes,
				Horizon:                      flags.Horizon,
				ThresholdConsecutiveErrors:   flags.MaxConsecutiveErrors,
				ThresholdConsecutiveTimeouts: flags.MaxConsecutiveTimeouts,
				EpisodeTimeout:               flags.EpisodeTimeout,
			}, flags.Parallelism)
			close(doneCh)
			return nil
		},
	}

	return cmd
}
