package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Ingest the channel's full upload history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initIngest(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Pipeline.Backfill(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("backfill finished",
			zap.String("run_id", stats.RunID),
			zap.Int("listed", stats.Listed),
			zap.Int("processed", stats.Processed),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}
