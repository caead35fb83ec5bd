package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "resthost",
	Short: "Resthost - multi-listener REST serving host",
	Long: `Resthost hosts REST APIs behind one or more configured listeners.

It provides:
  - Named and unnamed http/https listeners resolved from one directive
  - TLS termination with file-based or dynamically rotated material
  - SNI-vs-Host enforcement on TLS listeners
  - Denial-of-service rate limiting with pluggable overflow handling
  - Throttling outcome metrics exposed for Prometheus scraping`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
