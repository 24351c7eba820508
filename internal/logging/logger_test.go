package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		development bool
		level       string
		enabled     zapcore.Level
		disabled    zapcore.Level
	}{
		{name: "development default", development: true, enabled: zapcore.DebugLevel, disabled: zapcore.DebugLevel - 1},
		{name: "production default", development: false, enabled: zapcore.InfoLevel, disabled: zapcore.DebugLevel},
		{name: "explicit warn", development: false, level: "warn", enabled: zapcore.WarnLevel, disabled: zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			logger, err := New(tt.development, tt.level)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush
			if !logger.Core().Enabled(tt.enabled) {
				t.Fatalf("expected %v enabled", tt.enabled)
			}
			if logger.Core().Enabled(tt.disabled) {
				t.Fatalf("expected %v disabled", tt.disabled)
			}
		})
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	if _, err := New(false, "chatty"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
