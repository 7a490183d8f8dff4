package config

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/friendfilter/backend/internal/logging"
)

// Logger holds logger configuration.
type Logger struct {
	Level  string
	Format string
}

// Flags returns CLI flags for Logger configuration.
func (l *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Category:    "Logging",
			Value:       "info",
			Sources:     cli.EnvVars("FRIENDFILTER_LOG_LEVEL"),
			Destination: &l.Level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json, auto)",
			Category:    "Logging",
			Value:       "auto",
			Sources:     cli.EnvVars("FRIENDFILTER_LOG_FORMAT"),
			Destination: &l.Format,
		},
	}
}

// Configure builds the logger. Logs go to stderr so command output on stdout
// stays machine-readable.
func (l *Logger) Configure() (*slog.Logger, error) {
	format, err := logging.ParseFormat(l.Format)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(logging.ParseLevel(l.Level), os.Stderr, format), nil
}
