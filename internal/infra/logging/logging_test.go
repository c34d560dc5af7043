package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zap.InfoLevel, false},
		{"debug", zap.DebugLevel, false},
		{"WARN", zap.WarnLevel, false},
		{" error ", zap.ErrorLevel, false},
		{"loud", zap.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/tmp/tally")
	if cfg.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Level)
	}
	if cfg.File != filepath.Join("/tmp/tally", "logs", "tally.log") {
		t.Errorf("File = %q", cfg.File)
	}
	if cfg.MaxSizeMB != 100 || cfg.MaxBackups != 5 || cfg.MaxAgeDays != 30 {
		t.Errorf("rotation = %d/%d/%d, want 100/5/30", cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	}
}

func TestNew_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.Compress = false

	log, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	log.Info("hello", zap.Int("points", 3))
	_ = log.Sync()

	data, err := os.ReadFile(cfg.File)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, `"msg":"hello"`) {
		t.Errorf("log line missing message: %s", line)
	}
	if !strings.Contains(line, `"points":3`) {
		t.Errorf("log line missing field: %s", line)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.Level = "warn"

	log, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	log.Info("quiet")
	log.Warn("loud")
	_ = log.Sync()

	data, _ := os.ReadFile(cfg.File)
	if strings.Contains(string(data), "quiet") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(string(data), "loud") {
		t.Error("warn line should be written")
	}
}

func TestNew_NoOutputs(t *testing.T) {
	log, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if log.Core().Enabled(zap.ErrorLevel) {
		t.Error("logger without outputs should be a no-op")
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New(Config{Level: "chatty"}); err == nil {
		t.Error("New() should reject an unknown level")
	}
}
