// Package logging builds the process zap logger and adapts it to the
// key-value Logger interface consumed by the service layer.
package logging

import (
	"clinicstaff/internal/core"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the log level and encoding.
type Config struct {
	Level    string `yaml:"level"`    // debug, info, warn, error
	Encoding string `yaml:"encoding"` // json or console
}

// New builds a zap logger from cfg. Empty fields default to info and json.
func New(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
	}
	var zc zap.Config
	switch strings.ToLower(cfg.Encoding) {
	case "", "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log encoding %q", cfg.Encoding)
	}
	zc.Level = level
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// Adapter exposes a zap logger through core.Logger.
type Adapter struct {
	s *zap.SugaredLogger
}

var _ core.Logger = Adapter{}

// Adapt wraps l; a nil logger discards everything.
func Adapt(l *zap.Logger) Adapter {
	if l == nil {
		l = zap.NewNop()
	}
	return Adapter{s: l.Sugar()}
}

// Named returns an adapter for a child logger.
func (a Adapter) Named(name string) Adapter { return Adapter{s: a.s.Named(name)} }

func (a Adapter) Debug(msg string, kv ...any) { a.s.Debugw(msg, kv...) }
func (a Adapter) Info(msg string, kv ...any)  { a.s.Infow(msg, kv...) }
func (a Adapter) Warn(msg string, kv ...any)  { a.s.Warnw(msg, kv...) }
func (a Adapter) Error(msg string, kv ...any) { a.s.Errorw(msg, kv...) }
