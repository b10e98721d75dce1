// Package config handles the configuration management for rehash.
// Settings come from a YAML file and may be overridden by REHASH_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REHASH_"

// Config represents the rehash configuration
type Config struct {
	VaultPath         string        `yaml:"vault_path" env:"VAULT_PATH"`
	Storage           string        `yaml:"storage" env:"STORAGE"`
	HistoryLimit      int           `yaml:"history_limit" env:"HISTORY_LIMIT"`
	ClipboardTTL      time.Duration `yaml:"clipboard_ttl" env:"CLIPBOARD_TTL"`
	DefaultLength     uint          `yaml:"default_length" env:"DEFAULT_LENGTH"`
	DefaultGeneration uint          `yaml:"default_generation" env:"DEFAULT_GENERATION"`
	EncryptNewVaults  bool          `yaml:"encrypt_new_vaults" env:"ENCRYPT_NEW_VAULTS"`
	LogLevel          string        `yaml:"log_level" env:"LOG_LEVEL"`
}

// DefaultPath returns $HOME/.config/rehash/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "rehash", "config.yaml"), nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		VaultPath:         filepath.Join(home, ".local", "share", "rehash", "vault.json"),
		Storage:           "auto",
		HistoryLimit:      10,
		ClipboardTTL:      30 * time.Second,
		DefaultLength:     32,
		DefaultGeneration: 1,
		EncryptNewVaults:  true,
		LogLevel:          "warn",
	}
}

// LoadConfig loads configuration from file (creating it with defaults if it
// does not exist yet) and applies environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		cleanPath := filepath.Clean(configPath)
		data, err := os.ReadFile(cleanPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			if err := SaveConfig(cfg, cleanPath); err != nil {
				return cfg, fmt.Errorf("failed to create default config: %w", err)
			}
		case err != nil:
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	cfg.VaultPath = expandHome(cfg.VaultPath)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config, configPath string) error {
	cleanPath := filepath.Clean(configPath)

	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(cleanPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage) {
	case "", "auto", "file", "bolt":
	default:
		return fmt.Errorf("invalid storage backend %q (valid: auto, file, bolt)", c.Storage)
	}
	if c.VaultPath == "" {
		return errors.New("vault_path must not be empty")
	}
	if c.DefaultLength < 1 || c.DefaultLength > 64 {
		return fmt.Errorf("default_length must be between 1 and 64, got %d", c.DefaultLength)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must not be negative, got %d", c.HistoryLimit)
	}
	if c.ClipboardTTL < 0 {
		return fmt.Errorf("clipboard_ttl must not be negative, got %s", c.ClipboardTTL)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (valid: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
