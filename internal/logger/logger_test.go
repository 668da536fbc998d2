package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewDisabledIsNop(t *testing.T) {
	l, err := New(Options{Enabled: false})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if l.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("disabled logger should not log")
	}
}

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "panel.log")
	l, err := New(Options{Enabled: true, Level: "info", File: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	l.Debug("hidden")
	l.Info("submit", zap.Int("count", 2))
	l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d: %s", len(lines), data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["message"] != "submit" {
		t.Errorf("Expected message submit, got %v", entry["message"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("Expected level INFO, got %v", entry["level"])
	}
	if entry["count"] != float64(2) {
		t.Errorf("Expected count 2, got %v", entry["count"])
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	if _, err := New(Options{Enabled: true}); err == nil {
		t.Error("Expected error for empty file")
	}
	if _, err := New(Options{Enabled: true, File: filepath.Join(t.TempDir(), "x.log"), Level: "loud"}); err == nil {
		t.Error("Expected error for bad level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"":       zapcore.InfoLevel,
		"debug":  zapcore.DebugLevel,
		" WARN ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitReplacesGlobal(t *testing.T) {
	t.Cleanup(func() { Init(Options{}) })

	path := filepath.Join(t.TempDir(), "global.log")
	if _, err := Init(Options{Enabled: true, Level: "debug", File: path}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	L().Named("window").Debug("splice")
	Sync()

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"logger":"window"`) {
		t.Errorf("Expected named logger in output, got %s", data)
	}
}
