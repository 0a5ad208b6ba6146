// hopguard fetches untrusted URLs safely: every hostname is classified and
// resolved before a connection is made, and every redirect hop is
// re-validated before it is followed.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Set at build time via -ldflags
	version = "dev"

	cfgFile       string
	logLevel      string
	logFile       string
	metricsListen string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hopguard",
		Short: "SSRF-safe URL fetcher and feed aggregator",
		Long: `hopguard fetches user-supplied URLs without exposing internal services.
Hostnames are checked against a blocklist of private and reserved ranges,
DNS answers are validated and pinned for the lifetime of each request,
and every redirect hop is re-validated before it is followed.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file path (default: stderr)")
	rootCmd.PersistentFlags().StringVar(&metricsListen, "metrics-listen", "", "Prometheus metrics listen address")

	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(feedsCmd())
	rootCmd.AddCommand(discoverCmd())
	rootCmd.AddCommand(jellyfinCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
