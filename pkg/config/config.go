package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the mimir repair tool's configuration.
type Config struct {
	DatabaseDir string  `yaml:"database_dir"`
	Logging     Logging `yaml:"logging"`
}

// Logging contains logging configuration.
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration: database_dir resolves
// relative to the current directory, matching the configuration lookup
// the repair operations are specified against.
func DefaultConfig() *Config {
	return &Config{
		DatabaseDir: ".",
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

	// Validate path to prevent directory traversal
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

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// SaveConfig saves the configuration to the specified path with secure
// permissions.
func SaveConfig(cfg *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default configuration path for the
// current platform.
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./mimir.yaml"
	}
	configDir := filepath.Join(homeDir, ".config", "mimir")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists.
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

// ResolveDBPath maps a database name to the filesystem path its .couch
// file lives at, under database_dir. dbName may itself contain path
// separators (as it does for a lost-and-found target, "lost+found/name"),
// in which case the intermediate directory is not created here — callers
// that create a new file at the resolved path are responsible for that.
func (c *Config) ResolveDBPath(dbName string) string {
	return filepath.Join(c.DatabaseDir, dbName+".couch")
}

// LostAndFoundName returns the target database name make_lost_and_found
// writes to for a given source database name.
func LostAndFoundName(dbName string) string {
	return filepath.Join("lost+found", dbName)
}
