package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runcrew/ingest/internal/parse"
)

// parsedOutput mirrors the API field names so parser output can be diffed
// against live responses.
type parsedOutput struct {
	DistanceKm      *float64 `json:"distanceKm"`
	DurationSeconds *int     `json:"durationSeconds"`
	RecordedAt      *string  `json:"recordedAt"`
	RawText         string   `json:"rawText"`
}

// parseCmd runs only the metrics parser, for debugging OCR text offline.
var parseCmd = &cobra.Command{
	Use:   "parse [text]",
	Short: "Parse metrics out of raw OCR text",
	Long: `Run the metrics parser over the given text (or stdin when no argument
is supplied) and print the extracted fields as JSON.

Examples:
  ingest parse "2025.09.27 거리 17.58km 시간 01:41:50"
  cat ocr.txt | ingest parse`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var text string
		if len(args) == 1 {
			text = args[0]
		} else {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			text = string(data)
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("no text to parse")
		}

		metrics := parse.Parse(text, nil)

		out := parsedOutput{
			DistanceKm:      metrics.DistanceKm,
			DurationSeconds: metrics.DurationSeconds,
			RawText:         metrics.RawText,
		}
		if metrics.RecordedAt != nil {
			s := metrics.RecordedAt.UTC().Format("2006-01-02T15:04:05.000Z")
			out.RecordedAt = &s
		}

		encoded, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
