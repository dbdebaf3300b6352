package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/bgatt/pkg/config"
)

// configureLogger creates a logger from the --log-level and --verbose flags, with
// --log-level taking precedence. Without either flag the level comes from the config
// file when one was given, and logging is silent otherwise.
func configureLogger(cmd *cobra.Command, cfg *config.Config) (*logrus.Logger, error) {
	logger := cfg.NewLogger()
	// Silent unless asked otherwise
	logger.SetLevel(logrus.PanicLevel)

	logLevelStr, _ := cmd.Flags().GetString("log-level")
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	switch {
	case logLevelStr != "":
		switch logLevelStr {
		case "trace", "debug", "info", "warn", "error":
			level, _ := logrus.ParseLevel(logLevelStr)
			logger.SetLevel(level)
		default:
			return nil, fmt.Errorf("invalid log level: %s (must be trace, debug, info, warn, or error)", logLevelStr)
		}
	case verbose:
		logger.SetLevel(logrus.DebugLevel)
	case configPath != "":
		logger.SetLevel(cfg.LogLevel)
	}

	return logger, nil
}
