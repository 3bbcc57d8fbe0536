// Package cli implements the datasetctl command tree: dataset listing and
// querying against a running datasetd API, and offline registry stub
// generation against Postgres.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

const defaultAPIURL = "http://localhost:8080"

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

// Version is set by LDFLAGS at build time.
var Version = "dev"

func Run() ExitCode {
	rootCmd := &cobra.Command{
		Use:   "datasetctl",
		Short: "CLI for the datasetd metadata-driven data access service.",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := cmd.Help()
			if err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}

	var verbose bool
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "set debug logging level")

	var apiURL string
	rootCmd.PersistentFlags().StringVarP(&apiURL, "api", "a", getenv("DATASETD_API_URL", defaultAPIURL), "Base URL of the datasetd API")

	rootCmd.AddCommand(
		NewDatasetsCmd().Command(),
		NewQueryCmd().Command(),
		NewRegistryCmd().Command(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		return exitCodeError
	}

	return exitCodeSuccess
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the datasetctl version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("datasetctl %s\n", Version)
			return nil
		},
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func rootFlags(cmd *cobra.Command) (apiURL string, verbose bool, err error) {
	verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
	if err != nil {
		return "", false, fmt.Errorf("failed to get verbose flag: %w", err)
	}
	apiURL, err = cmd.Root().PersistentFlags().GetString("api")
	if err != nil {
		return "", false, fmt.Errorf("failed to get api flag: %w", err)
	}
	return apiURL, verbose, nil
}
