package logs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mnehpets/rpcenvelope/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetup_RotatedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, closer, err := Setup(config.Log{Level: "warn", Format: "json", Output: dir})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept", slog.String("k", "v"))
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(b)
	if strings.Contains(out, "dropped") {
		t.Errorf("info line written at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"kept"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("warn line missing: %s", out)
	}
}

func TestSetup_TextFormat(t *testing.T) {
	dir := t.TempDir()
	logger, closer, err := Setup(config.Log{Level: "debug", Format: "text", Output: dir})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	logger.Debug("hello", slog.Int("n", 1))
	closer.Close()

	b, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "msg=hello n=1") {
		t.Errorf("unexpected text output: %s", b)
	}
}

func TestSetup_Stdout(t *testing.T) {
	for _, out := range []string{"stdout", "stderr", ""} {
		logger, closer, err := Setup(config.Log{Level: "info", Format: "json", Output: out})
		if err != nil || logger == nil || closer == nil {
			t.Fatalf("Setup(%q) = %v, %v, %v", out, logger, closer, err)
		}
		if err := closer.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	}
}

func TestSetup_Errors(t *testing.T) {
	if _, _, err := Setup(config.Log{Level: "loud", Format: "json"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, _, err := Setup(config.Log{Level: "info", Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestDiscard(t *testing.T) {
	if Discard().Enabled(context.Background(), slog.LevelError) {
		t.Error("Discard logger should not be enabled")
	}
}
