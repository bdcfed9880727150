package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var refreshSinceDays int

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Ingest uploads from the recent window",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if refreshSinceDays > 0 {
			cfg.Pipeline.SinceDays = refreshSinceDays
		}

		env, err := initIngest(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Pipeline.Refresh(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("refresh finished",
			zap.String("run_id", stats.RunID),
			zap.Int("listed", stats.Listed),
			zap.Int("processed", stats.Processed),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed))
		return nil
	},
}

func init() {
	refreshCmd.Flags().IntVar(&refreshSinceDays, "since-days", 0, "override the lookback window (default from config)")
	rootCmd.AddCommand(refreshCmd)
}
