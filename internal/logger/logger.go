package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates the service logger for env.
// prod and staging write JSON for log shipping; local and dev write colored console lines.
// level (debug, info, warn, error) overrides the environment default when non-empty.
// Every line carries service=scanguard so audit lines can be filtered across deployments.
func NewLogger(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "prod", "staging":
		cfg = zap.NewProductionConfig()
		// Audit lines (scan_completed, scan_degraded) must never be sampled away.
		cfg.Sampling = nil
	case "local", "dev":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}

	if err := setLevel(&cfg, level); err != nil {
		return nil, err
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel), zap.Fields(zap.String("service", "scanguard")))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

// NewCLILogger returns a console logger on stderr for scanctl, or a no-op logger when
// verbose is off so reports on stdout stay machine-readable.
func NewCLILogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = ""
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func setLevel(cfg *zap.Config, level string) error {
	if level == "" {
		return nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return nil
}
