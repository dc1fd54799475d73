// Package logging provides the structured logger used by the slr CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LevelEnv names the environment variable that overrides the log level.
const LevelEnv = "SLR_LOG_LEVEL"

// DefaultLevel keeps stderr quiet unless something goes wrong.
const DefaultLevel = "warn"

var levels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// Logger wraps a sugared zap logger with key/value helpers.
type Logger struct {
	sugar *zap.SugaredLogger
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(name string) (zapcore.Level, error) {
	level, ok := levels[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return zapcore.WarnLevel, fmt.Errorf("unknown log level %q (valid: debug, info, warn, error)", name)
	}
	return level, nil
}

// ResolveLevel picks the first non-empty of the flag value, $SLR_LOG_LEVEL
// and the configured value, falling back to DefaultLevel.
func ResolveLevel(flag, configured string) string {
	for _, v := range []string{flag, os.Getenv(LevelEnv), configured} {
		if v != "" {
			return v
		}
	}
	return DefaultLevel
}

// New builds a console logger writing to w at the named level.
func New(w io.Writer, level string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	encoderConfig.CallerKey = ""

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(w), lvl)
	return &Logger{sugar: zap.New(core).Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

func (l *Logger) Debug(msg string, kv ...any) { l.sugar.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.sugar.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.sugar.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.sugar.Errorw(msg, kv...) }

// With returns a child logger that always carries kv.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{sugar: l.sugar.With(kv...)}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
