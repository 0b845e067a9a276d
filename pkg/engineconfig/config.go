/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package engineconfig

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/blt/pkg/vtree"
)

// Config is the top-level engine + server configuration.
type Config struct {
	DataDir string `yaml:"data_dir"`
	Engine  Engine `yaml:"engine"`
	WAL     WAL    `yaml:"wal"`
	Server  Server `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// Engine carries the buffer-cache and tree sizing knobs.
type Engine struct {
	// LRUCapacity is the number of offsets tracked for hit/miss
	// accounting. Zero selects bufcache.DefaultLRUCapacity.
	LRUCapacity int `yaml:"lru_capacity"`

	// DiskLatencyEnabled turns on the simulated disk-latency sleep on a
	// cache miss.
	DiskLatencyEnabled bool `yaml:"disk_latency_enabled"`

	// ThroughputBytesPerSec controls the miss-latency sleep duration.
	// Zero selects bufcache.DefaultThroughputBytesPerSec.
	ThroughputBytesPerSec float64 `yaml:"throughput_bytes_per_sec"`

	// ValueSize is the fixed value width every tree record carries.
	ValueSize int `yaml:"value_size"`
}

// WAL carries the virtual-tree write buffer's sizing and flush policy.
type WAL struct {
	// MaxEntries is the number of (key, value) pairs the WAL holds
	// before it flushes. Zero (or less) serves the tree without a WAL.
	MaxEntries int `yaml:"max_entries"`

	// FlushMode is "point" or "bulk"; see vtree.FlushMode.
	FlushMode string `yaml:"flush_mode"`
}

// Server carries the HTTP server's bind address and security settings.
type Server struct {
	Bind   string `yaml:"bind"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration.
type Logging struct {
	Level string `yaml:"level"`
}

// FlushModeValue translates the config's textual flush mode into a
// vtree.FlushMode, defaulting to point-insert flushing on anything
// other than "bulk".
func (w WAL) FlushModeValue() vtree.FlushMode {
	if w.FlushMode == "bulk" {
		return vtree.FlushBulk
	}
	return vtree.FlushPointInserts
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Engine: Engine{
			LRUCapacity:           0,
			DiskLatencyEnabled:    false,
			ThroughputBytesPerSec: 0,
			ValueSize:             32,
		},
		WAL: WAL{
			MaxEntries: 0,
			FlushMode:  "point",
		},
		Server: Server{
			Bind:   "127.0.0.1",
			Port:   8080,
			APIKey: "auto",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from the specified path.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveConfig saves the configuration to the specified path with secure
// permissions.
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key.
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a default configuration with a generated API
// key and saves it to configPath. It does not check for an existing
// file; one already at configPath is overwritten.
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the
// current platform.
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./blt.yaml"
	}

	configDir := filepath.Join(homeDir, ".config", "blt")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists.
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
