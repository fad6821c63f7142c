package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genbak/genbak/internal/config"
)

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Nil(t, cfg.Defaults.MinDiff)
	assert.Nil(t, cfg.Defaults.Verify)
	assert.Nil(t, cfg.Daemon.Schedule)
	assert.Nil(t, cfg.Theme.Green)
}

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	configDir := filepath.Join(dir, "genbak")
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	content := `
[defaults]
min_diff = 5
verify = true
iouring = false
bwlimit = "100M"
stats = "/var/log/genbak-stats.csv"
exclude = ["tmp", ".cache"]

[daemon]
schedule = "0 3 * * *"

[theme]
green = "#00ff00"
red = "#ff0000"
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(content), 0o644))

	cfg, err := config.Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Defaults.MinDiff)
	assert.Equal(t, int64(5), *cfg.Defaults.MinDiff)

	require.NotNil(t, cfg.Defaults.Verify)
	assert.True(t, *cfg.Defaults.Verify)

	require.NotNil(t, cfg.Defaults.IOURing)
	assert.False(t, *cfg.Defaults.IOURing)

	require.NotNil(t, cfg.Defaults.BWLimit)
	assert.Equal(t, "100M", *cfg.Defaults.BWLimit)

	require.NotNil(t, cfg.Defaults.Stats)
	assert.Equal(t, "/var/log/genbak-stats.csv", *cfg.Defaults.Stats)

	assert.Equal(t, []string{"tmp", ".cache"}, cfg.Defaults.Exclude)

	require.NotNil(t, cfg.Daemon.Schedule)
	assert.Equal(t, "0 3 * * *", *cfg.Daemon.Schedule)

	require.NotNil(t, cfg.Theme.Green)
	assert.Equal(t, "#00ff00", *cfg.Theme.Green)

	require.NotNil(t, cfg.Theme.Red)
	assert.Equal(t, "#ff0000", *cfg.Theme.Red)

	// Unset fields should remain nil.
	assert.Nil(t, cfg.Theme.Blue)
	assert.Nil(t, cfg.Theme.Bright)
}

func TestLoad_PartialConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	configDir := filepath.Join(dir, "genbak")
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	content := `
[defaults]
verify = true
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(content), 0o644))

	cfg, err := config.Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Defaults.Verify)
	assert.True(t, *cfg.Defaults.Verify)
	assert.Nil(t, cfg.Defaults.MinDiff)
	assert.Nil(t, cfg.Defaults.BWLimit)
	assert.Empty(t, cfg.Defaults.Exclude)
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	configDir := filepath.Join(dir, "genbak")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte("[defaults\n"), 0o644))

	_, err := config.Load()
	assert.Error(t, err)
}

func TestPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/etc/xdg")
	assert.Equal(t, filepath.Join("/etc/xdg", "genbak", "config.toml"), config.Path())
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		err  bool
	}{
		{"100", 100, false},
		{"100B", 100, false},
		{"1K", 1024, false},
		{"10k", 10 * 1024, false},
		{"100M", 100 * 1024 * 1024, false},
		{"1G", 1 << 30, false},
		{"2T", 2 << 40, false},
		{"1.5M", int64(1.5 * 1024 * 1024), false},
		{" 64K ", 64 * 1024, false},
		{"", 0, true},
		{"M", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := config.ParseSize(tt.in)
		if tt.err {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}
