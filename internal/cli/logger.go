package cli

import (
	"io"
	"log/slog"

	"github.com/msomdec/conduit/internal/config"
	"github.com/spf13/cobra"
)

// newLogger builds the process logger. The "both" format writes text to
// stdout and JSON to stderr.
func newLogger(cfg config.Config, stdout, stderr io.Writer) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch cfg.LogFormat {
	case config.FormatText:
		return slog.New(slog.NewTextHandler(stdout, opts)), nil
	case config.FormatJSON:
		return slog.New(slog.NewJSONHandler(stdout, opts)), nil
	default:
		return slog.New(slog.NewMultiHandler(
			slog.NewTextHandler(stdout, opts),
			slog.NewJSONHandler(stderr, opts),
		)), nil
	}
}

// setupLogging installs the logger for cmd as the slog default.
func setupLogging(cmd *cobra.Command, cfg config.Config) (*slog.Logger, error) {
	logger, err := newLogger(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}
