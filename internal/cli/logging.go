package cli

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/sqlbridge/internal/bridge"
	"github.com/mesh-intelligence/sqlbridge/internal/dispatch"
)

// newLogger builds a console logger writing to stderr at the configured
// level. Verbose forces the debug level.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if verbose {
		lvl = zapcore.DebugLevel
	} else if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		lvl = parsed
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = !verbose
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// installLogger routes bridge and dispatcher logs to l.
func installLogger(l *zap.Logger) {
	bridge.SetLogger(l.Named("bridge"))
	dispatch.SetLogger(l.Named("dispatch"))
}
