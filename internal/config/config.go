package config

import (
	"fmt"
	"os"
	"time"
)

// Store kinds
const (
	StoreSQLite = "sqlite"
	StoreCSV    = "csv"
)

// Config holds all application configuration
type Config struct {
	// Store configuration
	Store StoreConfig

	// Tracker configuration
	Tracker TrackerConfig

	// Flush configuration
	Flush FlushConfig

	// Daemon configuration
	Daemon DaemonConfig

	// Report configuration
	Report ReportConfig
}

// StoreConfig selects where flushed intervals go
type StoreConfig struct {
	Kind    string // "sqlite" or "csv"
	Path    string // SQLite database file; empty means ~/.config/focuslog/focuslog.db
	CSVPath string // CSV table used when Kind is "csv"
}

// TrackerConfig holds accounting behavior configuration
type TrackerConfig struct {
	Display           string        // X display name; empty uses $DISPLAY
	IdleThreshold     time.Duration // Gap between ticks after which a segment is idle
	IdleCredit        time.Duration // Time credited past the last input of an idle segment
	InputPollInterval time.Duration // How often the input counter is sampled
	MinPollInterval   time.Duration // Minimum allowed input poll interval
	MaxPollInterval   time.Duration // Maximum allowed input poll interval
}

// FlushConfig holds flush policy configuration
type FlushConfig struct {
	MemoryThreshold float64 // Process memory share, in percent, that triggers a flush
	OnExit          bool    // Drain everything on graceful shutdown
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string // Path to PID file for daemon management
	LogFile string // Where the daemon writes its log
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	TimeZone string
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Kind:    StoreSQLite,
			Path:    "", // Empty means use default ~/.config/focuslog/focuslog.db
			CSVPath: "Activity.csv",
		},
		Tracker: TrackerConfig{
			IdleThreshold:     5 * time.Second,
			IdleCredit:        10 * time.Second,
			InputPollInterval: 250 * time.Millisecond,
			MinPollInterval:   50 * time.Millisecond,
			MaxPollInterval:   5 * time.Second,
		},
		Flush: FlushConfig{
			MemoryThreshold: 1.0,
			OnExit:          true,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/focuslog-%d.pid", os.Getuid()),
			LogFile: fmt.Sprintf("/tmp/focuslog-%d.log", os.Getuid()),
		},
		Report: ReportConfig{
			TimeZone: "Local",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Kind {
	case StoreSQLite:
	case StoreCSV:
		if c.Store.CSVPath == "" {
			return fmt.Errorf("csv store requires a csv path")
		}
	default:
		return fmt.Errorf("unknown store kind %q (valid: %s, %s)", c.Store.Kind, StoreSQLite, StoreCSV)
	}

	if c.Tracker.IdleThreshold <= 0 {
		return fmt.Errorf("idle threshold must be positive, got %v", c.Tracker.IdleThreshold)
	}

	if c.Tracker.IdleCredit < 0 {
		return fmt.Errorf("idle credit cannot be negative")
	}

	if c.Tracker.InputPollInterval < c.Tracker.MinPollInterval {
		return fmt.Errorf("input poll interval (%v) cannot be less than minimum (%v)",
			c.Tracker.InputPollInterval, c.Tracker.MinPollInterval)
	}

	if c.Tracker.InputPollInterval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("input poll interval (%v) cannot be greater than maximum (%v)",
			c.Tracker.InputPollInterval, c.Tracker.MaxPollInterval)
	}

	if c.Flush.MemoryThreshold < 0 || c.Flush.MemoryThreshold > 100 {
		return fmt.Errorf("memory threshold must be between 0 and 100 percent, got %v", c.Flush.MemoryThreshold)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	// Validate daemon config
	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// SetInputPollInterval sets the input poll interval with validation
func (c *Config) SetInputPollInterval(interval time.Duration) error {
	if interval < c.Tracker.MinPollInterval {
		return fmt.Errorf("input poll interval cannot be less than %v", c.Tracker.MinPollInterval)
	}
	if interval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("input poll interval cannot be greater than %v", c.Tracker.MaxPollInterval)
	}
	c.Tracker.InputPollInterval = interval
	return nil
}

// Location resolves the report time zone
func (c *Config) Location() (*time.Location, error) {
	if c.Report.TimeZone == "" || c.Report.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Report.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.Report.TimeZone, err)
	}
	return loc, nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Store:
    Kind: %s
    Path: %s
    CSV Path: %s
  Tracker:
    Display: %s
    Idle Threshold: %v
    Idle Credit: %v
    Input Poll Interval: %v
  Flush:
    Memory Threshold: %.2f%%
    On Exit: %v
  Daemon:
    PID File: %s
    Log File: %s
  Report:
    Time Zone: %s`,
		c.Store.Kind,
		c.Store.Path,
		c.Store.CSVPath,
		c.Tracker.Display,
		c.Tracker.IdleThreshold,
		c.Tracker.IdleCredit,
		c.Tracker.InputPollInterval,
		c.Flush.MemoryThreshold,
		c.Flush.OnExit,
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
		c.Report.TimeZone,
	)
}
