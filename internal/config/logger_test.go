package config

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	cfg := &Config{Env: "development", LogLevel: "warn"}
	logger, err := cfg.NewLogger()
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info enabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn disabled at warn level")
	}
}

func TestNewLogger_BadLevel(t *testing.T) {
	cfg := &Config{LogLevel: "chatty"}
	if _, err := cfg.NewLogger(); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
