// Package logger builds the zap logger shared by the studio commands.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options select the level, the encoder and where records go.
type Options struct {
	Level string // debug, info, warn, error; empty means info
	Dev   bool   // console encoder with colors instead of JSON
	// Path is a file to append to. Empty means stderr. The terminal
	// viewer owns the screen, so it logs to a file or not at all.
	Path string
}

// New returns a logger for opts.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		l, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}

	cfg := zap.NewProductionConfig()
	if opts.Dev {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Sampling = nil
	if opts.Path != "" {
		cfg.OutputPaths = []string{opts.Path}
		cfg.ErrorOutputPaths = []string{opts.Path}
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}

// Must is New for main packages; it panics on a bad level.
func Must(opts Options) *zap.Logger {
	log, err := New(opts)
	if err != nil {
		panic(err)
	}
	return log
}
