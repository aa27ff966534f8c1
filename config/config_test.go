package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.HTTP.Address != "0.0.0.0:3030" {
		t.Errorf("address: got %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 5*time.Second || cfg.HTTP.ShutdownTimeout != 30*time.Second {
		t.Errorf("timeouts: got %+v", cfg.HTTP)
	}
	if cfg.RPC.Path != "/json_rpc" || cfg.RPC.MaxBodyBytes != 1<<20 || cfg.RPC.RateBurst != 20 {
		t.Errorf("rpc: got %+v", cfg.RPC)
	}
	if cfg.RPC.StrictVersion || cfg.RPC.RateLimit != 0 {
		t.Errorf("rpc: got %+v", cfg.RPC)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" || cfg.Log.Output != "stdout" {
		t.Errorf("log: got %+v", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RPCENV_HTTP_ADDRESS", "127.0.0.1:9000")
	t.Setenv("RPCENV_HTTP_READ_TIMEOUT", "2s")
	t.Setenv("RPCENV_RPC_STRICT_VERSION", "true")
	t.Setenv("RPCENV_RPC_RATE_LIMIT", "2.5")
	t.Setenv("RPCENV_CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("RPCENV_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Address != "127.0.0.1:9000" {
		t.Errorf("address: got %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Errorf("read_timeout: got %v", cfg.HTTP.ReadTimeout)
	}
	if !cfg.RPC.StrictVersion || cfg.RPC.RateLimit != 2.5 {
		t.Errorf("rpc: got %+v", cfg.RPC)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, want) {
		t.Errorf("allowed_origins: got %v, want %v", cfg.CORS.AllowedOrigins, want)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level: got %q", cfg.Log.Level)
	}
}

func writeYAML(t *testing.T, v any) string {
	t.Helper()
	b, err := yaml.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeYAML(t, map[string]any{
		"http": map[string]any{"address": ":8081", "idle_timeout": "90s"},
		"rpc":  map[string]any{"path": "/rpc", "max_body_bytes": 4096},
		"log":  map[string]any{"format": "text"},
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Address != ":8081" || cfg.HTTP.IdleTimeout != 90*time.Second {
		t.Errorf("http: got %+v", cfg.HTTP)
	}
	if cfg.RPC.Path != "/rpc" || cfg.RPC.MaxBodyBytes != 4096 {
		t.Errorf("rpc: got %+v", cfg.RPC)
	}
	if cfg.Log.Format != "text" || cfg.Log.Level != "info" {
		t.Errorf("log: got %+v", cfg.Log)
	}
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := writeYAML(t, map[string]any{"rpc": map[string]any{"path": "/from-file"}})
	t.Setenv("RPCENV_RPC_PATH", "/from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RPC.Path != "/from-env" {
		t.Errorf("rpc.path: got %q", cfg.RPC.Path)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}

	path := writeYAML(t, map[string]any{"rpc": map[string]any{"path": "no-slash"}})
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "rpc.path") {
		t.Errorf("expected rpc.path validation error, got %v", err)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	in, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	in.HTTP.WriteTimeout = 42 * time.Second
	in.CORS.AllowedOrigins = []string{"https://x.example"}

	b, err := in.YAML()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "write_timeout: 42s") {
		t.Errorf("durations should be written as strings:\n%s", b)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"empty address", func(c *Config) { c.HTTP.Address = "" }, false},
		{"negative timeout", func(c *Config) { c.HTTP.ReadTimeout = -time.Second }, false},
		{"relative path", func(c *Config) { c.RPC.Path = "rpc" }, false},
		{"root path", func(c *Config) { c.RPC.Path = "/" }, false},
		{"negative body limit", func(c *Config) { c.RPC.MaxBodyBytes = -1 }, false},
		{"negative rate", func(c *Config) { c.RPC.RateLimit = -1 }, false},
		{"negative burst", func(c *Config) { c.RPC.RateBurst = -1 }, false},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }, false},
		{"upper-case level", func(c *Config) { c.Log.Level = "WARN" }, true},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, false},
		{"empty output", func(c *Config) { c.Log.Output = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
