// Package database stores closed activity intervals in the SQLite table
// activity_rows (title, started_at, ended_at, session) and tracker failures
// in error_logs, both through gorm.
package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/actionsum/focuslog/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	dbFileName = "focuslog.db"
	dbDir      = ".config/focuslog"

	// the daemon writes while report and status read from other processes
	dsnOptions = "?_journal_mode=WAL&_busy_timeout=5000"
)

// DB is an open SQLite database
type DB struct {
	*gorm.DB
	path string
}

// DefaultPath returns ~/.config/focuslog/focuslog.db
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, dbDir, dbFileName), nil
}

// Connect opens the database at path, or DefaultPath when empty, creating
// its directory first
func Connect(path string) (*DB, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path+dsnOptions), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	return &DB{DB: db, path: path}, nil
}

// Path returns the database file
func (db *DB) Path() string {
	return db.path
}

// Initialize creates or migrates activity_rows and error_logs
func (db *DB) Initialize() error {
	if err := db.AutoMigrate(&models.ActivityRow{}, &models.ErrorLog{}); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", db.path, err)
	}
	return nil
}

// Close closes the underlying connection pool
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
