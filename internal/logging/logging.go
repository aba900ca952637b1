// Package logging builds the operator's zap logger and its logr adapter.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/noderefresh/node-refresh-operator/internal/config"
)

// Options tweaks logger construction.
type Options struct {
	// Output defaults to stderr.
	Output zapcore.WriteSyncer
	// Development enables stack traces on warnings and caller annotations.
	Development bool
}

// New builds a zap logger from cfg. Format "auto" selects console output when
// the output is a terminal and JSON otherwise.
func New(cfg config.LoggingConfig, opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	out, format := resolveOutput(cfg.Format, opts.Output)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	var enc zapcore.Encoder
	switch format {
	case "console":
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	zopts := []zap.Option{zap.ErrorOutput(out)}
	if opts.Development {
		zopts = append(zopts, zap.Development(), zap.AddCaller(), zap.AddStacktrace(zapcore.WarnLevel))
	} else {
		zopts = append(zopts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(zapcore.NewCore(enc, out, zap.NewAtomicLevelAt(level)), zopts...), nil
}

// NewLogr builds the logger and wraps it for controller-runtime.
func NewLogr(cfg config.LoggingConfig, opts Options) (logr.Logger, *zap.Logger, error) {
	zl, err := New(cfg, opts)
	if err != nil {
		return logr.Discard(), nil, err
	}
	return zapr.NewLogger(zl), zl, nil
}

// isTerminal is replaced in tests.
var isTerminal = func(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// resolveOutput picks the sink and the concrete format. The terminal check
// runs on the raw file, before stderr is wrapped in a lock.
func resolveOutput(format string, out zapcore.WriteSyncer) (zapcore.WriteSyncer, string) {
	if out == nil {
		return zapcore.Lock(os.Stderr), resolveFormat(format, os.Stderr)
	}
	return out, resolveFormat(format, out)
}

func resolveFormat(format string, out io.Writer) string {
	if format != "auto" {
		return format
	}
	if f, ok := out.(interface{ Fd() uintptr }); ok && isTerminal(f.Fd()) {
		return "console"
	}
	return "json"
}
