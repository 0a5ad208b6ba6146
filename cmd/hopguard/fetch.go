package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hopguard/hopguard/internal/output"
	"github.com/hopguard/hopguard/internal/statuscolor"
)

func fetchCmd() *cobra.Command {
	var (
		allowPrivate bool
		outputJSONL  string
		showBody     bool
	)

	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Fetch a URL, re-validating every redirect hop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			startMetrics(cfg, log)

			fetcher := newFetcher(cfg, allowPrivate, log)
			start := time.Now()
			resp, err := fetcher.Fetch(cmd.Context(), args[0], nil)

			if outputJSONL != "" {
				rec := output.Record{
					URL:        args[0],
					DurationMs: time.Since(start).Milliseconds(),
					FetchedAt:  time.Now().UTC(),
				}
				if err != nil {
					rec.Error = err.Error()
				} else {
					rec.FinalURL = resp.FinalURL()
					rec.Status = resp.StatusCode
					rec.Chain = resp.Chain
				}
				if werr := writeRecords(outputJSONL, []output.Record{rec}); werr != nil {
					return werr
				}
			}
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			statuscolor.PrintChain(resp.Chain)
			if showBody {
				if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowPrivate, "allow-private", false, "permit private and reserved addresses")
	cmd.Flags().StringVarP(&outputJSONL, "output", "o", "", "JSONL output file")
	cmd.Flags().BoolVar(&showBody, "body", false, "print the response body")
	return cmd
}

// writeRecords appends records to a JSONL file, creating it if needed.
func writeRecords(path string, recs []output.Record) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer f.Close()

	w := output.NewJSONLWriter(f)
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return w.Close()
}
