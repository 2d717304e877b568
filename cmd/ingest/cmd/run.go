package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runcrew/ingest/internal/pipeline"
)

// runCmd ingests a single image without going through the HTTP server.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest a single image from the command line",
	Long: `Run the full ingestion pipeline once for one storage path or image URL
and print the stored result as JSON.

Examples:
  ingest run --profile u1 --path u1/2025-09-27.jpg
  ingest run --profile u1 --url https://example.com/record.jpg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if err := cfg.ValidateService(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		profile, _ := cmd.Flags().GetString("profile")
		path, _ := cmd.Flags().GetString("path")
		bucket, _ := cmd.Flags().GetString("bucket")
		url, _ := cmd.Flags().GetString("url")

		ctx := context.Background()
		pl, db, err := buildPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := pl.Process(ctx, pipeline.Request{
			ProfileID:   profile,
			StoragePath: path,
			Bucket:      bucket,
			ImageURL:    url,
		})
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result.Stored, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		if result.Degraded {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "note: region detection degraded, original image was used")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("profile", "", "owning profile id (required)")
	runCmd.Flags().String("path", "", "storage path of the image")
	runCmd.Flags().String("bucket", "", "storage bucket (defaults to configured bucket)")
	runCmd.Flags().String("url", "", "direct image URL (alternative to --path)")
	_ = runCmd.MarkFlagRequired("profile")
}
