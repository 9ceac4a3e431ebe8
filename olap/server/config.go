package server

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig is read from a YAML file; command line flags override it
type ServerConfig struct {
	ListenAddr  string        `yaml:"listen_addr"`
	SchemaPath  string        `yaml:"schema"`
	BaseProgram string        `yaml:"base_program,omitempty"`
	StorePath   string        `yaml:"store_path,omitempty"`
	CacheSize   int           `yaml:"cache_size,omitempty"`
	CacheTTL    time.Duration `yaml:"cache_ttl,omitempty"`
	LogLevel    string        `yaml:"log_level,omitempty"`
	ShutdownTTL time.Duration `yaml:"shutdown_timeout,omitempty"`
}

// DefaultServerConfig returns the settings used when no file is given
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:  ":8080",
		CacheSize:   1000,
		CacheTTL:    5 * time.Minute,
		LogLevel:    "info",
		ShutdownTTL: 10 * time.Second,
	}
}

// LoadServerConfig reads path over the defaults. Unknown keys are errors.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
