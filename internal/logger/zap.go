package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a zap SugaredLogger whose level can be moved at runtime.
type Logger struct {
	*zap.SugaredLogger
	level zap.AtomicLevel
}

// An unreadable log.level logs everything rather than hiding events.
const fallbackLevel = zapcore.DebugLevel

// parseLevel reads a log.level value, ignoring case and surrounding space.
func parseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl > zapcore.ErrorLevel {
		return fallbackLevel
	}
	return lvl
}

// stdoutCore writes console lines `ts LEVEL msg k=v` to stdout.
func stdoutCore(level zap.AtomicLevel) zapcore.Core {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder

	return zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stdout), level)
}

func newZapLogger(levelStr string) *Logger {
	level := zap.NewAtomicLevelAt(parseLevel(levelStr))
	return &Logger{
		SugaredLogger: zap.New(stdoutCore(level)).Sugar(),
		level:         level,
	}
}

// SetLevel applies a new log.level, typically after config.yml changed.
func (l *Logger) SetLevel(levelStr string) {
	l.level.SetLevel(parseLevel(levelStr))
}

// Level reports the active level name.
func (l *Logger) Level() string {
	return l.level.Level().String()
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{
		SugaredLogger: zap.NewNop().Sugar(),
		level:         zap.NewAtomicLevelAt(zapcore.FatalLevel),
	}
}
