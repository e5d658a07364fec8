// Package logging builds the zap loggers used by both binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // console, json
	File   string // optional; every level is appended here too

	// Quiet disables stdout/stderr output. Used where the terminal belongs
	// to something else (CLI output, the POS screen).
	Quiet bool
}

// New builds a logger that writes INFO/WARN to stdout and ERROR+ to stderr.
// The returned func flushes and closes the log file.
func New(cfg Config) (*zap.Logger, func(), error) {
	return build(cfg, os.Stdout, os.Stderr)
}

func build(cfg Config, stdout, stderr io.Writer) (*zap.Logger, func(), error) {
	level := parseLevel(cfg.Level)
	enc := encoder(cfg.Format)
	cleanup := func() {}

	var cores []zapcore.Core
	if !cfg.Quiet {
		belowError := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= level && l < zapcore.ErrorLevel
		})
		atLeastError := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= level && l >= zapcore.ErrorLevel
		})
		cores = append(cores,
			zapcore.NewCore(enc, zapcore.AddSync(stdout), belowError),
			zapcore.NewCore(enc.Clone(), zapcore.AddSync(stderr), atLeastError),
		)
	}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		// Files never get colour codes.
		cores = append(cores, zapcore.NewCore(encoder("json"), zapcore.AddSync(f), level))
		cleanup = func() { f.Close() }
	}

	if len(cores) == 0 {
		return zap.NewNop(), cleanup, nil
	}

	logger := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	return logger, func() {
		logger.Sync()
		cleanup()
	}, nil
}

// parseLevel converts a string level to zapcore.Level.
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoder(format string) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if format == "json" {
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}
