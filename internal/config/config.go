// Package config provides configuration loading and structs for the Kusuri server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Inbox     InboxConfig     `yaml:"inbox"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// EmbeddingConfig holds settings for the external embedding service.
// When Enabled is false (or Endpoint is empty) the pipeline runs in
// full-text mode and never calls out.
type EmbeddingConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Endpoint          string `yaml:"endpoint"`
	TokenEnv          string `yaml:"token_env"`
	Dimensions        int    `yaml:"dimensions"`
	MaxAttempts       int    `yaml:"max_attempts"`
	RetryBackoffMS    int    `yaml:"retry_backoff_ms"`
	RequestIntervalMS int    `yaml:"request_interval_ms"`
	RequestTimeoutMS  int    `yaml:"request_timeout_ms"`
	CacheSize         int    `yaml:"cache_size"`
}

// RetryBackoff returns the 503 backoff as a duration.
func (e *EmbeddingConfig) RetryBackoff() time.Duration {
	return time.Duration(e.RetryBackoffMS) * time.Millisecond
}

// RequestInterval returns the inter-call pacing delay as a duration.
func (e *EmbeddingConfig) RequestInterval() time.Duration {
	return time.Duration(e.RequestIntervalMS) * time.Millisecond
}

// RequestTimeout returns the per-request timeout as a duration.
func (e *EmbeddingConfig) RequestTimeout() time.Duration {
	return time.Duration(e.RequestTimeoutMS) * time.Millisecond
}

// Token resolves the bearer token from the configured environment variable.
func (e *EmbeddingConfig) Token() string {
	if e.TokenEnv == "" {
		return ""
	}
	return os.Getenv(e.TokenEnv)
}

// PipelineConfig holds chunking, retrieval, and safety limits.
type PipelineConfig struct {
	ChunkSize      int `yaml:"chunk_size"`
	ChunkOverlap   int `yaml:"chunk_overlap"`
	TopK           int `yaml:"top_k"`
	MinTextLength  int `yaml:"min_text_length"`
	MaxInputLength int `yaml:"max_input_length"`
}

// InboxConfig holds drop-directory ingestion settings.
type InboxConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Directory string `yaml:"directory"`
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	if cfg.Inbox.Directory != "" {
		cfg.Inbox.Directory = expandPath(cfg.Inbox.Directory, configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
