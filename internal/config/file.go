package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const defaultConfigFile = ".config/focuslog/config.toml"

// fileConfig mirrors Config for TOML decoding. Pointers distinguish unset
// keys from zero values; durations are strings such as "5s".
type fileConfig struct {
	Store struct {
		Kind    *string `toml:"kind"`
		Path    *string `toml:"path"`
		CSVPath *string `toml:"csv_path"`
	} `toml:"store"`
	Tracker struct {
		Display           *string `toml:"display"`
		IdleThreshold     *string `toml:"idle_threshold"`
		IdleCredit        *string `toml:"idle_credit"`
		InputPollInterval *string `toml:"input_poll_interval"`
	} `toml:"tracker"`
	Flush struct {
		MemoryThreshold *float64 `toml:"memory_threshold"`
		OnExit          *bool    `toml:"on_exit"`
	} `toml:"flush"`
	Daemon struct {
		PIDFile *string `toml:"pid_file"`
		LogFile *string `toml:"log_file"`
	} `toml:"daemon"`
	Report struct {
		TimeZone *string `toml:"timezone"`
	} `toml:"report"`
}

// DefaultFilePath returns ~/.config/focuslog/config.toml
func DefaultFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, defaultConfigFile)
}

// LoadFile applies a TOML config file to cfg. An empty path means the
// default location, which may be missing; an explicit path must exist.
func LoadFile(cfg *Config, path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultFilePath()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(cfg, data)
}

// Parse applies TOML data to cfg
func Parse(cfg *Config, data []byte) error {
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	setString(&cfg.Store.Kind, fc.Store.Kind)
	setString(&cfg.Store.Path, fc.Store.Path)
	setString(&cfg.Store.CSVPath, fc.Store.CSVPath)

	setString(&cfg.Tracker.Display, fc.Tracker.Display)
	if err := setDuration(&cfg.Tracker.IdleThreshold, fc.Tracker.IdleThreshold, "tracker.idle_threshold"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Tracker.IdleCredit, fc.Tracker.IdleCredit, "tracker.idle_credit"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Tracker.InputPollInterval, fc.Tracker.InputPollInterval, "tracker.input_poll_interval"); err != nil {
		return err
	}

	if fc.Flush.MemoryThreshold != nil {
		cfg.Flush.MemoryThreshold = *fc.Flush.MemoryThreshold
	}
	if fc.Flush.OnExit != nil {
		cfg.Flush.OnExit = *fc.Flush.OnExit
	}

	setString(&cfg.Daemon.PIDFile, fc.Daemon.PIDFile)
	setString(&cfg.Daemon.LogFile, fc.Daemon.LogFile)
	setString(&cfg.Report.TimeZone, fc.Report.TimeZone)

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, key string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, *v, err)
	}
	*dst = d
	return nil
}
