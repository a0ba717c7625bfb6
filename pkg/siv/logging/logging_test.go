package logging_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/siv/pkg/siv/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests share the package's global state and must not run in parallel.

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logging.Level
		wantErr bool
	}{
		{"debug", logging.LevelDebug, false},
		{"INFO", logging.LevelInfo, false},
		{"", logging.LevelInfo, false},
		{"warning", logging.LevelWarn, false},
		{"error", logging.LevelError, false},
		{"loud", logging.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := logging.ParseLevel(tt.in)
		if tt.wantErr {
			assert.True(t, errors.Is(err, logging.ErrInvalidLevel), "ParseLevel(%q)", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.want.String(), got.String())
	}
}

func TestInit_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "siv.log")

	// A logger fetched before Init must follow the later configuration.
	early := logging.Get("scanner")

	require.NoError(t, logging.Init(logging.Config{Level: "debug", Path: path}))
	t.Cleanup(func() { _ = logging.Close() })

	early.Info("scan started", "root", "/srv")
	logging.Get("engine").Debug("baseline read")

	require.NoError(t, logging.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "scan started")
	assert.Contains(t, out, "root=/srv")
	assert.Contains(t, out, "scanner")
	assert.Contains(t, out, "baseline read")
}

func TestInit_ComponentLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "siv.log")

	require.NoError(t, logging.Init(logging.Config{
		Level:      "info",
		Path:       path,
		Components: map[string]string{"noisy": "error"},
	}))
	t.Cleanup(func() { _ = logging.Close() })

	logging.Get("noisy").Warn("suppressed warning")
	logging.Get("quiet").Debug("suppressed debug")
	logging.Get("quiet").Info("visible info")
	require.NoError(t, logging.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "suppressed")
	assert.Contains(t, out, "visible info")
}

func TestInit_InvalidLevel(t *testing.T) {
	err := logging.Init(logging.Config{Level: "loud", Path: filepath.Join(t.TempDir(), "x.log")})
	assert.ErrorIs(t, err, logging.ErrInvalidLevel)
}

func TestGet_BeforeInitIsSilent(t *testing.T) {
	require.NoError(t, logging.Close())
	l := logging.Get("silent")
	l.Error("goes nowhere")
	assert.Equal(t, "silent", l.Component())
}

func TestRotatingWriter_Rotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.log")

	w, err := logging.NewRotatingWriter(path, 16, 2)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := w.Write([]byte(strings.Repeat("x", 10) + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	for _, name := range []string{path, path + ".1", path + ".2"} {
		_, err := os.Stat(name)
		assert.NoError(t, err, "expected %s", name)
	}
	_, err = os.Stat(path + ".3")
	assert.True(t, os.IsNotExist(err), "only two backups are kept")

	_, err = w.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestLogger_EachLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "siv.log")
	require.NoError(t, logging.Init(logging.Config{Level: "debug", Path: path}))
	t.Cleanup(func() { _ = logging.Close() })

	l := logging.Get("levels")
	l.Debug("at debug")
	l.Info("at info")
	l.Warn("at warn")
	l.Error("at error", "code", 4)
	require.NoError(t, logging.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	for i, want := range []string{"DEBU", "INFO", "WARN", "ERRO"} {
		assert.Contains(t, lines[i], want)
	}
	assert.Contains(t, lines[3], "code=4")
}
