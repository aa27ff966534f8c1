// Package config loads rpcserver settings from defaults, an optional config
// file, a .env file and RPCENV_* environment variables, in increasing order
// of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. RPCENV_HTTP_ADDRESS.
const EnvPrefix = "RPCENV"

// Config is the complete server configuration.
type Config struct {
	HTTP HTTP `mapstructure:"http" yaml:"http"`
	RPC  RPC  `mapstructure:"rpc" yaml:"rpc"`
	CORS CORS `mapstructure:"cors" yaml:"cors"`
	Log  Log  `mapstructure:"log" yaml:"log"`
}

type HTTP struct {
	Address         string        `mapstructure:"address" yaml:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type RPC struct {
	Path          string `mapstructure:"path" yaml:"path"`
	StrictVersion bool   `mapstructure:"strict_version" yaml:"strict_version"`
	MaxBodyBytes  int64  `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst"`
}

type CORS struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	// Output is "stdout", "stderr", or a directory for rotated log files.
	Output string `mapstructure:"output" yaml:"output"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.address", "0.0.0.0:3030")
	v.SetDefault("http.read_timeout", "5s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("http.shutdown_timeout", "30s")
	v.SetDefault("rpc.path", "/json_rpc")
	v.SetDefault("rpc.strict_version", false)
	v.SetDefault("rpc.max_body_bytes", 1<<20)
	v.SetDefault("rpc.rate_limit", 0)
	v.SetDefault("rpc.rate_burst", 20)
	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; failing here is a programming error.
		panic(err)
	}
	return &cfg
}

// Load builds a Config. path names an optional YAML, TOML or JSON file; an
// empty path skips it. A .env file in the working directory is loaded if
// present and never overrides variables already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	// Env values for list keys arrive as a single string.
	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.HTTP.Address == "":
		return errors.New("config: http.address is empty")
	case c.HTTP.ReadTimeout < 0, c.HTTP.WriteTimeout < 0, c.HTTP.IdleTimeout < 0, c.HTTP.ShutdownTimeout < 0:
		return errors.New("config: http timeouts must not be negative")
	case !strings.HasPrefix(c.RPC.Path, "/"):
		return errors.Errorf("config: rpc.path %q must start with /", c.RPC.Path)
	case c.RPC.Path == "/":
		return errors.New("config: rpc.path must not be /")
	case c.RPC.MaxBodyBytes < 0:
		return errors.New("config: rpc.max_body_bytes must not be negative")
	case c.RPC.RateLimit < 0:
		return errors.New("config: rpc.rate_limit must not be negative")
	case c.RPC.RateBurst < 0:
		return errors.New("config: rpc.rate_burst must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("config: unknown log.level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return errors.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	if c.Log.Output == "" {
		return errors.New("config: log.output is empty")
	}
	return nil
}

// YAML renders the effective configuration. Durations are written in
// time.Duration string form, so the output loads back with Load.
func (c *Config) YAML() ([]byte, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "marshal config")
	}
	return b, nil
}
