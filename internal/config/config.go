package config

import (
	"path/filepath"
	"strings"
)

// Config represents the complete shadowui configuration.
// It can be loaded from .shadowui/config.yml with environment variable overrides.
type Config struct {
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Dialect DialectConfig `yaml:"dialect" mapstructure:"dialect"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
}

// PathsConfig defines which files to extract from and which to ignore.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for source and stylesheet files
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to ignore
}

// DialectConfig describes the UI framework being extracted.
type DialectConfig struct {
	Prefixes             []string `yaml:"prefixes" mapstructure:"prefixes"`                           // import roots whose names are UI constructors
	IgnoreNames          []string `yaml:"ignore_names" mapstructure:"ignore_names"`                   // imported names that are never constructors
	IDKeyword            string   `yaml:"id_keyword" mapstructure:"id_keyword"`                       // keyword argument carrying the identity
	AttachMethods        []string `yaml:"attach_methods" mapstructure:"attach_methods"`               // e.g. mount, mount_all
	InlineCSSAttributes  []string `yaml:"inline_css_attributes" mapstructure:"inline_css_attributes"` // e.g. DEFAULT_CSS
	StylesheetExtensions []string `yaml:"stylesheet_extensions" mapstructure:"stylesheet_extensions"` // e.g. .tcss
}

// ExtractConfig tunes the extraction pipeline.
type ExtractConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // 0 means one per CPU
}

// StorageConfig defines where artifacts are written.
type StorageConfig struct {
	DBPath  string `yaml:"db_path" mapstructure:"db_path"`   // relative paths resolve against the root
	JSONOut string `yaml:"json_out" mapstructure:"json_out"` // optional directory for JSON exports
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Include: []string{
				"**/*.py",
				"**/*.tcss",
				"**/*.css",
			},
			Ignore: []string{
				".git/**",
				".shadowui/**",
				"__pycache__/**",
				".venv/**",
				"venv/**",
				"node_modules/**",
				"build/**",
				"dist/**",
			},
		},
		Dialect: DialectConfig{
			Prefixes:             []string{"textual"},
			IgnoreNames:          []string{"on", "work"},
			IDKeyword:            "id",
			AttachMethods:        []string{"mount", "mount_all"},
			InlineCSSAttributes:  []string{"DEFAULT_CSS", "CSS"},
			StylesheetExtensions: []string{".tcss", ".css"},
		},
		Extract: ExtractConfig{
			Workers: 0,
		},
		Storage: StorageConfig{
			DBPath: filepath.Join(".shadowui", "shadowui.db"),
		},
	}
}

// ResolveDBPath returns the database path, resolving relative paths against rootDir.
func (c *Config) ResolveDBPath(rootDir string) string {
	if filepath.IsAbs(c.Storage.DBPath) {
		return c.Storage.DBPath
	}
	return filepath.Join(rootDir, c.Storage.DBPath)
}

// IsStylesheet reports whether path has one of the configured stylesheet extensions.
func (c *Config) IsStylesheet(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range c.Dialect.StylesheetExtensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// WatchedExtensions extracts unique file extensions from include patterns.
// Returns extensions with leading dot (e.g., []string{".py", ".tcss"}).
func (c *Config) WatchedExtensions() []string {
	seen := make(map[string]bool)
	var extensions []string
	for _, pattern := range c.Paths.Include {
		if ext := extractExtension(pattern); ext != "" && !seen[ext] {
			seen[ext] = true
			extensions = append(extensions, ext)
		}
	}
	return extensions
}

// extractExtension extracts the file extension from a glob pattern.
// Returns empty string if pattern doesn't match a simple extension pattern.
// Examples: "**/*.py" -> ".py", "*.tcss" -> ".tcss"
func extractExtension(pattern string) string {
	for i := len(pattern) - 1; i >= 1; i-- {
		if pattern[i] == '.' && pattern[i-1] == '*' {
			return pattern[i:]
		}
	}
	return ""
}
