package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hopguard/hopguard/internal/ssrf"
)

func checkCmd() *cobra.Command {
	var allowPrivate bool

	cmd := &cobra.Command{
		Use:   "check URL...",
		Short: "Classify URLs without fetching them",
		Args:  cobra.MinimumNArgs(1),
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

			validator := ssrf.NewValidator(nil, log)
			green := color.New(color.FgGreen).SprintFunc()
			red := color.New(color.FgRed).SprintFunc()
			yellow := color.New(color.FgYellow).SprintFunc()

			blocked := 0
			for _, raw := range args {
				res, err := validator.Validate(cmd.Context(), raw, allowPrivate)
				switch {
				case err == nil:
					label := green("OK")
					if len(res.ValidatedIPs) > 0 {
						fmt.Printf("%-8s %s (%d addresses)\n", label, raw, len(res.ValidatedIPs))
					} else {
						fmt.Printf("%-8s %s\n", label, raw)
					}
				case errors.Is(err, ssrf.ErrBlockedTarget):
					blocked++
					fmt.Printf("%-8s %s\n", red("BLOCKED"), raw)
				default:
					blocked++
					fmt.Printf("%-8s %s: %v\n", yellow("INVALID"), raw, err)
				}
			}
			if blocked > 0 {
				return fmt.Errorf("%d of %d URLs rejected", blocked, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowPrivate, "allow-private", false, "permit private and reserved addresses")
	return cmd
}
