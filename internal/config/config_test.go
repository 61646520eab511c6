package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - LoadConfig() uses defaults when no config file exists
// - LoadConfig() loads from .shadowui/config.yml when present
// - LoadConfig() merges config file with defaults
// - Environment variables override config file values
// - LoadConfig() returns error for malformed YAML
// - LoadConfig() returns error for invalid configuration values
// - Validate() rejects empty include patterns, empty dialect prefixes, bad identifiers,
//   bad extensions, negative workers, empty db path
// - Validate() returns multiple errors for multiple invalid fields
// - ResolveDBPath(), IsStylesheet() and WatchedExtensions() helpers

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, []string{"textual"}, cfg.Dialect.Prefixes)
	assert.Equal(t, "id", cfg.Dialect.IDKeyword)
	assert.Equal(t, []string{"mount", "mount_all"}, cfg.Dialect.AttachMethods)
	assert.Equal(t, []string{"DEFAULT_CSS", "CSS"}, cfg.Dialect.InlineCSSAttributes)
	assert.Equal(t, []string{".tcss", ".css"}, cfg.Dialect.StylesheetExtensions)
	assert.Contains(t, cfg.Paths.Include, "**/*.py")
	assert.Contains(t, cfg.Paths.Ignore, ".git/**")
	assert.Equal(t, 0, cfg.Extract.Workers)
	assert.Equal(t, filepath.Join(".shadowui", "shadowui.db"), cfg.Storage.DBPath)

	require.NoError(t, Validate(cfg))
}

func TestLoadConfig_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig_LoadsFromConfigYml(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	dir := filepath.Join(tempDir, ".shadowui")
	require.NoError(t, os.MkdirAll(dir, 0755))

	configContent := `
dialect:
  prefixes: [textual, myui]
  attach_methods: [mount]
extract:
  workers: 3
storage:
  db_path: /tmp/out.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(configContent), 0644))

	cfg, err := LoadConfigFromDir(tempDir)
	require.NoError(t, err)

	assert.Equal(t, []string{"textual", "myui"}, cfg.Dialect.Prefixes)
	assert.Equal(t, []string{"mount"}, cfg.Dialect.AttachMethods)
	assert.Equal(t, 3, cfg.Extract.Workers)
	assert.Equal(t, "/tmp/out.db", cfg.Storage.DBPath)

	// Untouched sections keep defaults
	assert.Equal(t, "id", cfg.Dialect.IDKeyword)
	assert.Equal(t, Default().Paths.Include, cfg.Paths.Include)
}

func TestLoadConfig_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()

	tempDir := t.TempDir()
	dir := filepath.Join(tempDir, ".shadowui")
	require.NoError(t, os.MkdirAll(dir, 0755))

	configContent := `
extract:
  workers: 2
storage:
  db_path: file.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(configContent), 0644))

	t.Setenv("SHADOWUI_EXTRACT_WORKERS", "8")

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Extract.Workers)
	assert.Equal(t, "file.db", cfg.Storage.DBPath)
}

func TestLoadConfig_ReturnsErrorForMalformedYaml(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	dir := filepath.Join(tempDir, ".shadowui")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("dialect: [unclosed\n  - x: :"), 0644))

	_, err := NewLoader(tempDir).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_ReturnsErrorForInvalidValues(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	dir := filepath.Join(tempDir, ".shadowui")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("extract:\n  workers: -1\n"), 0644))

	_, err := NewLoader(tempDir).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidWorkers)
}

func TestValidate_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"empty include", func(c *Config) { c.Paths.Include = nil }, ErrEmptyInclude},
		{"empty prefixes", func(c *Config) { c.Dialect.Prefixes = nil }, ErrEmptyDialect},
		{"bad prefix", func(c *Config) { c.Dialect.Prefixes = []string{"textual..x"} }, ErrInvalidIdentifier},
		{"bad id keyword", func(c *Config) { c.Dialect.IDKeyword = "1d" }, ErrInvalidIdentifier},
		{"bad attach method", func(c *Config) { c.Dialect.AttachMethods = []string{"mount-all"} }, ErrInvalidIdentifier},
		{"bad extension", func(c *Config) { c.Dialect.StylesheetExtensions = []string{"tcss"} }, ErrInvalidExtension},
		{"negative workers", func(c *Config) { c.Extract.Workers = -2 }, ErrInvalidWorkers},
		{"empty db path", func(c *Config) { c.Storage.DBPath = " " }, ErrEmptyDBPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidate_ReturnsMultipleErrorsForMultipleInvalidFields(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Dialect.Prefixes = nil
	cfg.Extract.Workers = -1
	cfg.Storage.DBPath = ""

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "empty dialect prefixes")
	assert.Contains(t, err.Error(), "invalid worker count")
	assert.Contains(t, err.Error(), "empty database path")
}

func TestConfigHelpers(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, filepath.Join("/repo", ".shadowui", "shadowui.db"), cfg.ResolveDBPath("/repo"))

	cfg.Storage.DBPath = "/abs/x.db"
	assert.Equal(t, "/abs/x.db", cfg.ResolveDBPath("/repo"))

	assert.True(t, cfg.IsStylesheet("ui/app.TCSS"))
	assert.True(t, cfg.IsStylesheet("web/site.css"))
	assert.False(t, cfg.IsStylesheet("ui/app.py"))

	assert.ElementsMatch(t, []string{".py", ".tcss", ".css"}, cfg.WatchedExtensions())
}
