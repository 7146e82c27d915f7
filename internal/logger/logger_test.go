package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestGetInitializesOnce(t *testing.T) {
	first := Get()
	if first == nil {
		t.Fatal("Get() returned nil")
	}
	Init("debug") // after the first Get, level changes are ignored
	if second := Get(); second != first {
		t.Error("Get() should return the same logger instance")
	}
	if first.GetLevel() != zerolog.InfoLevel {
		t.Errorf("level = %v, want info when Init was never called first", first.GetLevel())
	}
}

func TestHelpersAcceptKeyValuePairs(t *testing.T) {
	// Exercise every helper, including odd and non-string keys, which must be
	// tolerated rather than panic.
	Debug("debug message", "key", "value")
	Info("info message", "count", 3, "dangling")
	Warn("warn message", 42, "not-a-string-key")
	Error("error message", nil, "key", "value")
}
