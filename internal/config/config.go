package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the optional genbak configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Daemon   DaemonConfig   `toml:"daemon"`
	Theme    ThemeConfig    `toml:"theme"`
}

// DefaultsConfig holds persistent flag defaults. Nil means "not set",
// so explicit CLI flags always win.
type DefaultsConfig struct {
	MinDiff *int64   `toml:"min_diff"`
	Verify  *bool    `toml:"verify"`
	IOURing *bool    `toml:"iouring"`
	BWLimit *string  `toml:"bwlimit"`
	Stats   *string  `toml:"stats"`
	Exclude []string `toml:"exclude"`
}

// DaemonConfig holds the scheduled-run settings for `genbak daemon`.
type DaemonConfig struct {
	Schedule *string `toml:"schedule"`
}

// ThemeConfig holds optional color overrides.
type ThemeConfig struct {
	Green  *string `toml:"green"`
	Blue   *string `toml:"blue"`
	Yellow *string `toml:"yellow"`
	Red    *string `toml:"red"`
	Muted  *string `toml:"muted"`
	Dim    *string `toml:"dim"`
	Bright *string `toml:"bright"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "genbak", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}

	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	return cfg, nil
}
