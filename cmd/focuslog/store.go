package main

import (
	"context"
	"time"

	"github.com/actionsum/focuslog/internal/config"
	"github.com/actionsum/focuslog/internal/csvstore"
	"github.com/actionsum/focuslog/internal/database"
	"github.com/actionsum/focuslog/internal/flush"
	"github.com/actionsum/focuslog/internal/reporter"
)

// rowStore is what the commands need from either backend
type rowStore interface {
	flush.Store
	reporter.RowSource
	Clear(ctx context.Context) (int64, error)
	DeleteOldRows(ctx context.Context, before time.Time) (int64, error)
}

// openStore opens the configured backend. The returned close function is
// never nil.
func openStore(cfg *config.Config) (rowStore, *database.Repository, func() error, error) {
	if cfg.Store.Kind == config.StoreCSV {
		loc, err := cfg.Location()
		if err != nil {
			return nil, nil, nil, err
		}
		return csvstore.New(cfg.Store.CSVPath, loc), nil, func() error { return nil }, nil
	}

	db, err := database.Connect(cfg.Store.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	repo := database.NewRepository(db)
	return repo, repo, db.Close, nil
}
