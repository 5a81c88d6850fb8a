// Package config loads clearlist settings from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting of the backend.
type Config struct {
	DatabaseURL    string        `yaml:"database_url"`
	UploadFolder   string        `yaml:"upload_folder"`
	LogLevel       string        `yaml:"log_level"`
	HTTPAddr       string        `yaml:"http_addr"`
	GRPCAddr       string        `yaml:"grpc_addr"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	CORSOrigin     string        `yaml:"cors_origin"`
	HealthInterval time.Duration `yaml:"health_interval"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DatabaseURL:    "clearlist.db",
		UploadFolder:   "uploads",
		LogLevel:       "INFO",
		HTTPAddr:       ":5000",
		GRPCAddr:       ":5051",
		MaxUploadBytes: 32 << 20,
		HealthInterval: 10 * time.Second,
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load builds the configuration. path may be empty, in which case no file is read.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup LookupFunc) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	str := map[string]*string{
		"DATABASE_URL":  &cfg.DatabaseURL,
		"UPLOAD_FOLDER": &cfg.UploadFolder,
		"LOG_LEVEL":     &cfg.LogLevel,
		"HTTP_ADDR":     &cfg.HTTPAddr,
		"GRPC_ADDR":     &cfg.GRPCAddr,
		"CORS_ORIGIN":   &cfg.CORSOrigin,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	if v, ok := lookup("MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		cfg.MaxUploadBytes = n
	}

	if v, ok := lookup("HEALTH_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("HEALTH_INTERVAL: %w", err)
		}
		cfg.HealthInterval = d
	}

	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database_url must not be empty")
	case c.UploadFolder == "":
		return errors.New("upload_folder must not be empty")
	case c.HTTPAddr == "":
		return errors.New("http_addr must not be empty")
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	case c.HealthInterval <= 0:
		return fmt.Errorf("health_interval must be positive, got %s", c.HealthInterval)
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// ParseLevel maps LOG_LEVEL names to slog levels. Besides the slog names it
// accepts WARNING, CRITICAL and FATAL; the last two map to error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "INFO":
		return slog.LevelInfo, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR", "CRITICAL", "FATAL":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown level %q", s)
}
