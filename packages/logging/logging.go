package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level represents a log level.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format represents the log output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Attribute keys attached by the runner.
const (
	KeySuite = "suite"
	KeyCase  = "case"
	KeyStep  = "step"
	KeyHook  = "hook"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level Level

	// Format is the output format (text or json).
	Format Format

	// Output defaults to os.Stderr.
	Output io.Writer

	AddSource bool
}

// DefaultConfig logs text at info level to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: FormatText,
		Output: os.Stderr,
	}
}

// New creates a logger with the given configuration.
func New(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(cfg.Output, opts)
	default:
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	return slog.New(handler)
}

// Nop returns a logger that discards all output.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return Nop()
	}
	return logger
}

// ParseLevel parses "debug", "info", "warn"/"warning" or "error" in any case.
// Unrecognized values yield LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ParseFormat parses "text" or "json". Unrecognized values yield FormatText.
func ParseFormat(s string) Format {
	if strings.EqualFold(s, "json") {
		return FormatJSON
	}
	return FormatText
}

// ForSuite, ForCase and ForStep attach run coordinates to logger.
func ForSuite(logger *slog.Logger, suite string) *slog.Logger {
	return OrNop(logger).With(KeySuite, suite)
}

func ForCase(logger *slog.Logger, suite, caseName string) *slog.Logger {
	return OrNop(logger).With(KeySuite, suite, KeyCase, caseName)
}

func ForStep(logger *slog.Logger, suite, caseName, step string) *slog.Logger {
	return OrNop(logger).With(KeySuite, suite, KeyCase, caseName, KeyStep, step)
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx, falling back to fallback and
// then to a no-op logger.
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return OrNop(fallback)
}
