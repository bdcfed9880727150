package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chowmap/ingest-cli/internal/publish"
)

var (
	publishOutDir string
	publishXLSX   bool
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Write map artifacts from stored challenges",
	Long:  "Reads challenges from the store and writes challenges.geojson, table.json, and optionally an XLSX export to the output directory.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		rows, err := st.ListChallenges(ctx, cfg.Publish.Limit)
		if err != nil {
			return err
		}

		outDir := cfg.Publish.OutDir
		if publishOutDir != "" {
			outDir = publishOutDir
		}

		p := publish.New(outDir, publish.WithXLSX(publishXLSX || cfg.Publish.XLSX))
		summary, err := p.Publish(rows)
		if err != nil {
			return err
		}

		zap.L().Info("publish finished",
			zap.Int("geo_features", summary.GeoFeatures),
			zap.Int("table_rows", summary.TableRows),
			zap.Strings("files", summary.Files))
		return nil
	},
}

func init() {
	publishCmd.Flags().StringVar(&publishOutDir, "out", "", "output directory (default from config)")
	publishCmd.Flags().BoolVar(&publishXLSX, "xlsx", false, "also write an XLSX export")
	rootCmd.AddCommand(publishCmd)
}
