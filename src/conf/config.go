package conf

import (
	"fmt"
	"runtime"

	"github.com/BurntSushi/toml"
)

type (
	// Config is the cli configuration loaded from a toml file. Registry type
	// declarations may live in the same file under [[type]], they are read by
	// the types package.
	Config struct {
		Log   LogConfig   `toml:"log"`
		Match MatchConfig `toml:"match"`
	}
	// LogConfig configures the cli logger.
	LogConfig struct {
		// Level is one of debug, info, warn, error.
		Level string `toml:"level"`
		// TimeFormat is a strftime pattern used for the time of each record.
		TimeFormat string `toml:"time_format"`
		// File is an optional path that records are written to as well as stderr.
		File string `toml:"file"`
	}
	// MatchConfig configures how files are matched.
	MatchConfig struct {
		// Workers is the amount of files that are matched concurrently.
		Workers int `toml:"workers"`
		// Tests will include _test.go files when walking directories.
		Tests bool `toml:"tests"`
	}
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "warn",
			TimeFormat: "%H:%M:%S",
		},
		Match: MatchConfig{
			Workers: runtime.NumCPU(),
		},
	}
}

// Load reads a toml configuration file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if cfg.Match.Workers <= 0 {
		cfg.Match.Workers = 1
	}
	return cfg, nil
}
