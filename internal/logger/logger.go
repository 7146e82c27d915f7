// Package logger provides the shared structured logger for the pipeline.
package logger

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Init initializes the default logger writing JSON to stderr. Safe to call
// multiple times; only the first call takes effect.
func Init(level string) {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339
		lvl, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil || level == "" {
			lvl = zerolog.InfoLevel
		}
		defaultLogger = zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
	})
}

// Get returns the initialized default logger, initializing it at info level
// if Init was never called.
func Get() *zerolog.Logger {
	Init("")
	return &defaultLogger
}

// Debug logs a debug message with alternating key/value pairs.
func Debug(msg string, kv ...any) { logWith(Get().Debug(), msg, kv) }

// Info logs an informational message with alternating key/value pairs.
func Info(msg string, kv ...any) { logWith(Get().Info(), msg, kv) }

// Warn logs a warning with alternating key/value pairs.
func Warn(msg string, kv ...any) { logWith(Get().Warn(), msg, kv) }

// Error logs an error with alternating key/value pairs.
func Error(msg string, err error, kv ...any) {
	ev := Get().Error()
	if err != nil {
		ev = ev.Err(err)
	}
	logWith(ev, msg, kv)
}

func logWith(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
