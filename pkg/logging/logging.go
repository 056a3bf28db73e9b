// Package logging builds the zap logger described by the logging config.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sambeau/tabula/config"
)

// New returns a logger writing to cfg.Output. "stdout" and "stderr" select
// the given writers; anything else is a file path, opened for append. The
// returned close function syncs the logger and closes any opened file.
func New(cfg config.LoggingConfig, stdout, stderr io.Writer) (*zap.Logger, func() error, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}

	var (
		out     zapcore.WriteSyncer
		closeFn = func() error { return nil }
	)
	switch cfg.Output {
	case "", "stderr":
		out = zapcore.AddSync(stderr)
	case "stdout":
		out = zapcore.AddSync(stdout)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = zapcore.AddSync(f)
		closeFn = f.Close
	}

	var enc zapcore.Encoder
	switch cfg.Format {
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
	case "", "text":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05Z07:00")
		ec.EncodeCaller = nil
		ec.CallerKey = ""
		ec.StacktraceKey = ""
		enc = zapcore.NewConsoleEncoder(ec)
	default:
		closeFn()
		return nil, nil, fmt.Errorf("invalid log format: %s", cfg.Format)
	}

	logger := zap.New(zapcore.NewCore(enc, out, zap.NewAtomicLevelAt(level)))
	return logger, func() error {
		_ = logger.Sync()
		return closeFn()
	}, nil
}

// Requests returns the logger used for per-request lines, a no-op when
// request logging is quiet.
func Requests(log *zap.Logger, cfg config.LoggingConfig) *zap.Logger {
	if cfg.Quiet || log == nil {
		return zap.NewNop()
	}
	return log.Named("http")
}
