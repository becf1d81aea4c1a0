package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/applog"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/config"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:           "xmlhub",
	Short:         "Index BEAST2 XML analyses tracked in a Git working tree",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("initializing configuration: %w", err)
		}
		logger := applog.New(applog.Options{
			Path:  config.GetString("log.path"),
			JSON:  config.GetBool("log.json") || jsonOut,
			Level: parseLogLevel(config.GetString("log.level")),
		})
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "has no effect; log detail is set by log.level")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "emit machine-readable JSON output where supported")

	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(helpAttributesCmd)
}

// Execute runs the command tree; main's sole entry point.
func Execute() error {
	return rootCmd.Execute()
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
