package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var prototypeLimit int

var prototypeCmd = &cobra.Command{
	Use:   "prototype",
	Short: "Dry-run extraction over recent uploads without writing to the store",
	Long:  "Runs the extraction and place-resolution stages over the newest uploads and prints the rows as JSON. Nothing is persisted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initIngest(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		rows, err := env.Pipeline.Prototype(ctx, prototypeLimit)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rows); err != nil {
			return eris.Wrap(err, "encode prototype rows")
		}

		zap.L().Info("prototype finished", zap.Int("rows", len(rows)))
		return nil
	},
}

func init() {
	prototypeCmd.Flags().IntVar(&prototypeLimit, "limit", 0, "number of videos to sample (default from config)")
	rootCmd.AddCommand(prototypeCmd)
}
