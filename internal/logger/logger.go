// Package logger is the dashboard's process-wide structured logger.
// Components log snake_case event names with key/value pairs. The level
// comes from log.level in config.yml and follows edits to that file.
package logger

import (
	"sync"
)

// Accepted values of log.level.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	shared   *Logger
	initOnce sync.Once
)

// Get returns the dashboard logger, creating it at level on first use.
// Later calls return the same logger; config reloads go through SetLevel.
func Get(level string) *Logger {
	initOnce.Do(func() {
		shared = newZapLogger(level)
	})
	return shared
}

// OrNop returns l, or a discarding logger for components wired without one.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return Nop()
	}
	return l
}
