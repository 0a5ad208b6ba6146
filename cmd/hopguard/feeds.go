package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hopguard/hopguard/internal/banner"
	"github.com/hopguard/hopguard/internal/connector/rss"
	"github.com/hopguard/hopguard/internal/output"
	"github.com/hopguard/hopguard/internal/runner"
	"github.com/hopguard/hopguard/internal/statuscolor"
)

func feedsCmd() *cobra.Command {
	var (
		inputFile   string
		outputJSONL string
		checkOnly   bool
		noBanner    bool
	)

	cmd := &cobra.Command{
		Use:   "feeds [URL...]",
		Short: "Fetch RSS/Atom feeds concurrently through the safe fetcher",
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

			urls := args
			if inputFile != "" {
				fromFile, err := readFeedList(inputFile)
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}
			if len(urls) == 0 {
				return fmt.Errorf("no feed URLs given; pass them as arguments or via --file")
			}

			if !noBanner {
				banner.PrintBanner(version)
			}

			fetcher := newFetcher(cfg, cfg.Feeds.AllowPrivate, log)
			conn := rss.New(fetcher, log)

			if checkOnly {
				return runFeedChecks(cmd, conn, urls)
			}

			r := runner.New(runner.Config{
				Workers:   cfg.Feeds.Workers,
				RateLimit: cfg.Feeds.RateLimit,
			}, conn, log)
			results := r.Run(cmd.Context(), urls)

			var recs []output.Record
			failed := 0
			for _, res := range results {
				rec := output.Record{
					URL:        res.URL,
					DurationMs: res.Duration.Milliseconds(),
					FetchedAt:  time.Now().UTC(),
				}
				if res.Err != nil {
					failed++
					rec.Error = res.Err.Error()
					fmt.Printf("%s %s: %v\n", statuscolor.WrapByStatus("FAIL", 500), res.URL, res.Err)
				} else {
					rec.FeedTitle = res.Feed.Title
					rec.EntryCount = len(res.Entries)
					fmt.Printf("%s %s: %q, %d new entries\n",
						statuscolor.WrapByStatus("OK", 200), res.URL, res.Feed.Title, len(res.Entries))
				}
				recs = append(recs, rec)
			}
			if outputJSONL != "" {
				if err := writeRecords(outputJSONL, recs); err != nil {
					return err
				}
			}

			log.Info("feed run finished",
				zap.Int("feeds", len(results)),
				zap.Int("failed", failed))
			if failed > 0 {
				return fmt.Errorf("%d of %d feeds failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputFile, "file", "f", "", "feed list file (one URL per line, or OPML)")
	cmd.Flags().StringVarP(&outputJSONL, "output", "o", "", "JSONL output file")
	cmd.Flags().BoolVar(&checkOnly, "check", false, "validate feed health instead of fetching entries")
	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "suppress the banner")
	return cmd
}

func runFeedChecks(cmd *cobra.Command, conn *rss.Connector, urls []string) error {
	invalid := 0
	for _, u := range urls {
		h := conn.Validate(cmd.Context(), u)
		if h.Valid {
			fmt.Printf("%s %s: %q, %d items\n",
				statuscolor.WrapByStatus("VALID", 200), u, h.Title, h.ItemCount)
			continue
		}
		invalid++
		fmt.Printf("%s %s: %s\n", statuscolor.WrapByStatus("INVALID", 500), u, h.Error)
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d feeds invalid", invalid, len(urls))
	}
	return nil
}

// readFeedList reads feed URLs from a file. OPML documents are parsed as
// such; anything else is treated as one URL per line with # comments.
func readFeedList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if bytes.Contains(data, []byte("<opml")) {
		sources, err := rss.ParseOPML(data)
		if err != nil {
			return nil, fmt.Errorf("parse OPML %s: %w", path, err)
		}
		urls := make([]string, 0, len(sources))
		for _, s := range sources {
			urls = append(urls, s.URL)
		}
		return urls, nil
	}

	var urls []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}
