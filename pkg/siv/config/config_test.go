package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config lookup at an empty temp directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultAlgorithm, cfg.Hash.Default)
	assert.Equal(t, DefaultFormat, cfg.Report.Format)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, HistoryDir(), cfg.History.Path)
	assert.Equal(t, DefaultRetentionDays, cfg.History.RetentionDays)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.Empty(t, cfg.Logging.Path)
	assert.Equal(t, DefaultLogMaxBackups, cfg.Logging.MaxBackups)

	size, err := cfg.Logging.MaxSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), size)
}

func TestLoad_FromFile(t *testing.T) {
	home := isolate(t)

	dir := filepath.Join(home, "xdg", "siv")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := `
hash:
  default: blake3
report:
  format: json
history:
  enabled: false
  path: ~/runs
logging:
  level: debug
  max_size: 1MiB
  components:
    scanner: warn
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "blake3", cfg.Hash.Default)
	assert.Equal(t, "json", cfg.Report.Format)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, filepath.Join(home, "runs"), cfg.History.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "warn", cfg.Logging.Components["scanner"])

	size, err := cfg.Logging.MaxSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), size)
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("SIV_HASH_DEFAULT", "sha256")
	t.Setenv("SIV_REPORT_FORMAT", "yaml")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sha256", cfg.Hash.Default)
	assert.Equal(t, "yaml", cfg.Report.Format)
}

func TestLoad_InvalidFile(t *testing.T) {
	home := isolate(t)

	dir := filepath.Join(home, "xdg", "siv")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("hash: [unclosed"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestWriteDefault(t *testing.T) {
	isolate(t)

	path, err := WriteDefault()
	require.NoError(t, err)

	want, err := ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, want, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultAlgorithm, cfg.Hash.Default)
	assert.Equal(t, "info", cfg.Logging.Components["engine"])

	// A second call must not overwrite user edits.
	require.NoError(t, os.WriteFile(path, []byte("hash:\n  default: md5\n"), 0o644))
	_, err = WriteDefault()
	require.NoError(t, err)

	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "md5", cfg.Hash.Default)
}

func TestMaxSizeBytes_Invalid(t *testing.T) {
	t.Parallel()

	_, err := LoggingConfig{MaxSize: "lots"}.MaxSizeBytes()
	assert.Error(t, err)
}

func TestLoadFile_Explicit(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("report:\n  format: text\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Report.Format)
	assert.Equal(t, DefaultAlgorithm, cfg.Hash.Default)

	_, err = LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
