package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (SHADOWUI_*)
// 2. Config file (.shadowui/config.yml or .shadowui/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".shadowui")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("SHADOWUI")
	v.AutomaticEnv()
	// SHADOWUI_EXTRACT_WORKERS -> extract.workers
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("dialect.id_keyword")
	v.BindEnv("extract.workers")
	v.BindEnv("storage.db_path")
	v.BindEnv("storage.json_out")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing file is fine: defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("paths.include", defaults.Paths.Include)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)

	v.SetDefault("dialect.prefixes", defaults.Dialect.Prefixes)
	v.SetDefault("dialect.ignore_names", defaults.Dialect.IgnoreNames)
	v.SetDefault("dialect.id_keyword", defaults.Dialect.IDKeyword)
	v.SetDefault("dialect.attach_methods", defaults.Dialect.AttachMethods)
	v.SetDefault("dialect.inline_css_attributes", defaults.Dialect.InlineCSSAttributes)
	v.SetDefault("dialect.stylesheet_extensions", defaults.Dialect.StylesheetExtensions)

	v.SetDefault("extract.workers", defaults.Extract.Workers)

	v.SetDefault("storage.db_path", defaults.Storage.DBPath)
	v.SetDefault("storage.json_out", defaults.Storage.JSONOut)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
