// Package logging builds a configurable zap logger for stayfly services.
package logging

import (
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Style selects the rendering used for log lines.
type Style string

const (
	StyleTerminal Style = "terminal"
	StyleJSON     Style = "json"
	StyleLogfmt   Style = "logfmt"
	StyleNoop     Style = "noop"
)

// Level is a string form of a zap level, validated by zapcore.ParseLevel.
type Level string

// Config controls logger construction. Populated once from internal/config
// and threaded through constructors — never read from a package global.
type Config struct {
	Style Style
	Level Level
}

// New creates a *zap.Logger from c. A zero Config defaults to terminal
// style at info level, matching local development.
func New(c Config) *zap.Logger {
	style := c.Style
	if style == "" {
		style = StyleTerminal
	}
	level := zapcore.InfoLevel
	if c.Level != "" {
		if lvl, err := zapcore.ParseLevel(string(c.Level)); err == nil {
			level = lvl
		}
	}

	var logger *zap.Logger
	var err error

	switch style {
	case StyleNoop:
		logger = zap.NewNop()
	case StyleJSON:
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		logger, err = cfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	case StyleLogfmt:
		encoderConfig := zapcore.EncoderConfig{
			TimeKey:       "ts",
			LevelKey:      "lvl",
			NameKey:       "logger",
			CallerKey:     "caller",
			MessageKey:    "msg",
			StacktraceKey: "stacktrace",
			LineEnding:    zapcore.DefaultLineEnding,
		}
		core := zapcore.NewCore(NewLogfmtEncoder(encoderConfig), zapcore.AddSync(os.Stderr), level)
		logger = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	case StyleTerminal:
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		logger, err = cfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	default:
		log.Fatalf("invalid logging style %q: must be one of terminal, json, logfmt, noop", style)
	}

	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	return logger
}
