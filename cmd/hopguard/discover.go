package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hopguard/hopguard/internal/connector/rss"
)

func discoverCmd() *cobra.Command {
	var allowPrivate bool

	cmd := &cobra.Command{
		Use:   "discover URL",
		Short: "Find feed links advertised by an HTML page",
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

			conn := rss.New(newFetcher(cfg, allowPrivate, log), log)
			feeds, err := conn.DiscoverFeeds(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(feeds) == 0 {
				return fmt.Errorf("no feeds advertised by %s", args[0])
			}
			for _, f := range feeds {
				fmt.Println(f)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowPrivate, "allow-private", false, "permit private and reserved addresses")
	return cmd
}
