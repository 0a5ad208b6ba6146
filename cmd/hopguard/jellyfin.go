package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hopguard/hopguard/internal/connector/jellyfin"
)

func jellyfinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jellyfin",
		Short: "Check the configured Jellyfin server and list its libraries",
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

			if cfg.Jellyfin.ServerURL == "" {
				return fmt.Errorf("no Jellyfin server configured; set [jellyfin] server_url")
			}

			client, err := jellyfin.New(cmd.Context(), jellyfin.Config{
				ServerURL:    cfg.Jellyfin.ServerURL,
				APIKey:       cfg.Jellyfin.APIKey,
				UserID:       cfg.Jellyfin.UserID,
				AllowPrivate: cfg.Jellyfin.AllowPrivate,
				Timeout:      cfg.Outbound.Timeout(),
			}, nil, log)
			if err != nil {
				return err
			}

			info, err := client.TestConnection(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Connected to %s (version %s)\n", info.ServerName, info.Version)

			libs, err := client.Libraries(cmd.Context())
			if err != nil {
				return err
			}
			for _, lib := range libs {
				fmt.Printf("  %-30s %s\n", lib.Name, lib.CollectionType)
			}
			return nil
		},
	}
	return cmd
}
