package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/conneroisu/pagesmith/internal/build"
	"github.com/conneroisu/pagesmith/internal/config"
	"github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/conneroisu/pagesmith/internal/validation"
)

// loadConfig loads the configuration, attaching suggestions on failure.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.NewEnhancedError(
			"Failed to load configuration",
			err,
			errors.ConfigurationSuggestions(err.Error(), configPath()),
		)
	}
	return cfg, nil
}

// newLogger builds the logger described by cfg.Log. The returned function
// closes the log file, if any.
func newLogger(cfg *config.Config) (*logging.PagesmithLogger, func() error, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	loggerConfig := logging.DefaultConfig()
	loggerConfig.Level = level
	loggerConfig.Format = cfg.Log.Format

	if cfg.Log.File == "" {
		return logging.NewLogger(loggerConfig), func() error { return nil }, nil
	}

	fileLogger, err := logging.NewFileLogger(loggerConfig, cfg.Log.File)
	if err != nil {
		return nil, nil, err
	}
	return fileLogger.PagesmithLogger, fileLogger.Close, nil
}

// newPipeline wires the external compilers named in cfg into a build
// pipeline.
func newPipeline(cfg *config.Config, logger *logging.PagesmithLogger) (*build.Pipeline, error) {
	compiler, err := build.NewExecCompiler(
		build.Command{Name: cfg.Build.StyleCommand, Args: cfg.Build.StyleArgs},
		build.Command{Name: cfg.Build.ScriptCommand, Args: cfg.Build.ScriptArgs},
		validation.Compilers,
		logger,
	)
	if err != nil {
		return nil, err
	}
	return build.NewPipeline(cfg, compiler, logger)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
