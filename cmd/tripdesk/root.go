package main

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/tripdesk/internal/config"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
	"github.com/MrSnakeDoc/tripdesk/internal/version"
)

// logLevelFlag overrides TRIPDESK_LOG_LEVEL when set
var logLevelFlag string

var rootCmd = &cobra.Command{
	Use:   "tripdesk",
	Short: "Tripdesk - federated booking search for the travel back-office",
	Long: `Tripdesk searches every booking collection of the agency backend at once,
falls back to a local copy of the bookings when the backend is unreachable,
and writes amendments back through whichever channel is available.

Running tripdesk without a subcommand starts the HTTP service.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.SetVersionTemplate("tripdesk version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn or error (default: TRIPDESK_LOG_LEVEL)")
}

// loadRuntime reads the environment configuration and builds the logger.
func loadRuntime() (*config.Config, logger.Logger) {
	cfg := config.Load()
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	return cfg, logger.New(cfg.LogLevel, cfg.PrettyLog)
}
