// Package config loads sitehost configuration from a YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix         = "SITEHOST_"
	maxConfigFileSize = 1024 * 1024

	DefaultPort     = 3000
	DefaultSitesDir = "./sites"
	DefaultMaxBytes = 500 << 20
	DefaultWorkers  = 8
	DefaultPHPCGI   = "php-cgi"
)

type Config struct {
	Server ServerConfig `koanf:"server"`
	Sites  SitesConfig  `koanf:"sites"`
	Upload UploadConfig `koanf:"upload"`
	PHP    PHPConfig    `koanf:"php"`
	Log    LogConfig    `koanf:"log"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

type SitesConfig struct {
	Root string `koanf:"root"`
}

type UploadConfig struct {
	MaxBytes int64 `koanf:"max_bytes"`
	Workers  int   `koanf:"workers"`
}

type PHPConfig struct {
	Enabled *bool  `koanf:"enabled"`
	Binary  string `koanf:"binary"`
}

// On reports whether .php requests are executed. Defaults to true.
func (p PHPConfig) On() bool { return p.Enabled == nil || *p.Enabled }

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Load reads .env (if present), then the YAML file at path (optional),
// then SITEHOST_* environment variables.
//
// Precedence, highest first:
//  1. SITEHOST_SECTION_FIELD env vars (SITEHOST_SERVER_PORT -> server.port)
//  2. the YAML file
//  3. defaults
//
// PORT is honoured when no port is configured otherwise.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Server.Port == 0 {
		if p := os.Getenv("PORT"); p != "" {
			port, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("invalid PORT %q: %w", p, err)
			}
			cfg.Server.Port = port
		}
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps SITEHOST_UPLOAD_MAX_BYTES to upload.max_bytes: the first
// underscore separates section from field.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// Default returns a config with every default applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Sites.Root == "" {
		cfg.Sites.Root = DefaultSitesDir
	}
	if cfg.Upload.MaxBytes == 0 {
		cfg.Upload.MaxBytes = DefaultMaxBytes
	}
	if cfg.Upload.Workers == 0 {
		cfg.Upload.Workers = DefaultWorkers
	}
	if cfg.PHP.Binary == "" {
		cfg.PHP.Binary = DefaultPHPCGI
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Upload.MaxBytes < 0 {
		return fmt.Errorf("upload max_bytes must be positive, got %d", c.Upload.MaxBytes)
	}
	if c.Upload.Workers < 1 {
		return fmt.Errorf("upload workers must be >= 1, got %d", c.Upload.Workers)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got %q", c.Log.Format)
	}
	return nil
}
