package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override default and file values
func LoadFromEnv(cfg *Config) {
	// Store configuration
	if kind := os.Getenv("FOCUSLOG_STORE"); kind != "" {
		cfg.Store.Kind = kind
	}

	if dbPath := os.Getenv("FOCUSLOG_DB_PATH"); dbPath != "" {
		cfg.Store.Path = dbPath
	}

	if csvPath := os.Getenv("FOCUSLOG_CSV_PATH"); csvPath != "" {
		cfg.Store.CSVPath = csvPath
	}

	// Tracker configuration
	if display := os.Getenv("FOCUSLOG_DISPLAY"); display != "" {
		cfg.Tracker.Display = display
	}

	if idleThreshold := os.Getenv("FOCUSLOG_IDLE_THRESHOLD"); idleThreshold != "" {
		if seconds, err := strconv.Atoi(idleThreshold); err == nil && seconds > 0 {
			cfg.Tracker.IdleThreshold = time.Duration(seconds) * time.Second
		}
	}

	if idleCredit := os.Getenv("FOCUSLOG_IDLE_CREDIT"); idleCredit != "" {
		if seconds, err := strconv.Atoi(idleCredit); err == nil && seconds >= 0 {
			cfg.Tracker.IdleCredit = time.Duration(seconds) * time.Second
		}
	}

	if pollInterval := os.Getenv("FOCUSLOG_INPUT_POLL_MS"); pollInterval != "" {
		if ms, err := strconv.Atoi(pollInterval); err == nil && ms > 0 {
			interval := time.Duration(ms) * time.Millisecond
			if interval >= cfg.Tracker.MinPollInterval && interval <= cfg.Tracker.MaxPollInterval {
				cfg.Tracker.InputPollInterval = interval
			}
		}
	}

	// Flush configuration
	if threshold := os.Getenv("FOCUSLOG_MEMORY_THRESHOLD"); threshold != "" {
		if val, err := strconv.ParseFloat(threshold, 64); err == nil && val >= 0 {
			cfg.Flush.MemoryThreshold = val
		}
	}

	if onExit := os.Getenv("FOCUSLOG_FLUSH_ON_EXIT"); onExit != "" {
		if val, err := strconv.ParseBool(onExit); err == nil {
			cfg.Flush.OnExit = val
		}
	}

	// Daemon configuration
	if pidFile := os.Getenv("FOCUSLOG_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if logFile := os.Getenv("FOCUSLOG_LOG_FILE"); logFile != "" {
		cfg.Daemon.LogFile = logFile
	}

	// Report configuration
	if timeZone := os.Getenv("FOCUSLOG_TIMEZONE"); timeZone != "" {
		cfg.Report.TimeZone = timeZone
	}
}

// New creates a new Config with default values, the config file when one
// exists, and environment overrides
func New(path string) (*Config, error) {
	cfg := Default()
	if err := LoadFile(cfg, path); err != nil {
		return nil, err
	}
	LoadFromEnv(cfg)
	return cfg, nil
}
