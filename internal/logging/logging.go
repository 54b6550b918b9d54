// Package logging configures the process-wide zap logger.
//
// Call Init once from main; everything else logs through zap.S() or zap.L():
//
//	logger, err := logging.Init(cfg.LogLevel, cfg.LogFormat)
//	if err != nil {
//	    log.Fatalf("failed to initialize logger: %v", err)
//	}
//	defer logger.Sync()
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// Init builds a logger for the given level ("debug", "info", ...) and format
// ("json" or "console") and installs it as the zap global.
func Init(level, format string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console", "":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'json' or 'console'", format)
	}
	cfg.Level = lvl

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	zap.ReplaceGlobals(logger)
	return logger, nil
}
