package database

import (
	"context"
	"time"

	"github.com/actionsum/focuslog/internal/activity"
	"github.com/actionsum/focuslog/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

const insertBatchSize = 500

// Repository stores activity rows and error logs in SQLite
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func toModel(row activity.Row) models.ActivityRow {
	return models.ActivityRow{
		Title:   row.Title,
		Start:   row.Start.UTC(),
		End:     row.End.UTC(),
		Session: row.Session,
	}
}

func fromModel(m models.ActivityRow) activity.Row {
	return activity.Row{
		Title:   m.Title,
		Start:   m.Start.Local(),
		End:     m.End.Local(),
		Session: m.Session,
	}
}

func fromModels(ms []models.ActivityRow) []activity.Row {
	rows := make([]activity.Row, 0, len(ms))
	for _, m := range ms {
		rows = append(rows, fromModel(m))
	}
	return rows
}

// LoadRows returns every stored row ordered by start time
func (r *Repository) LoadRows(ctx context.Context) ([]activity.Row, error) {
	var ms []models.ActivityRow
	result := r.db.WithContext(ctx).Order("started_at ASC, id ASC").Find(&ms)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to load activity rows")
	}
	return fromModels(ms), nil
}

// SaveRows replaces the stored rows with rows
func (r *Repository) SaveRows(ctx context.Context, rows []activity.Row) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM activity_rows").Error; err != nil {
			return errors.Wrap(err, "failed to clear activity rows")
		}
		return insertRows(tx, rows)
	})
	if err != nil {
		return errors.Wrap(err, "failed to save activity rows")
	}
	return nil
}

// AppendRows inserts rows after the stored ones
func (r *Repository) AppendRows(ctx context.Context, rows []activity.Row) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertRows(tx, rows)
	})
	if err != nil {
		return errors.Wrap(err, "failed to append activity rows")
	}
	return nil
}

func insertRows(tx *gorm.DB, rows []activity.Row) error {
	if len(rows) == 0 {
		return nil
	}
	ms := make([]models.ActivityRow, 0, len(rows))
	for _, row := range rows {
		ms = append(ms, toModel(row))
	}
	if err := tx.CreateInBatches(ms, insertBatchSize).Error; err != nil {
		return errors.Wrap(err, "failed to insert activity rows")
	}
	return nil
}

// RowsBetween returns rows overlapping [start, end), ordered by start time
func (r *Repository) RowsBetween(ctx context.Context, start, end time.Time) ([]activity.Row, error) {
	var ms []models.ActivityRow
	result := r.db.WithContext(ctx).
		Where("started_at < ? AND ended_at > ?", end.UTC(), start.UTC()).
		Order("started_at ASC, id ASC").
		Find(&ms)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query activity rows")
	}
	return fromModels(ms), nil
}

// GetLatest retrieves the most recently started row
func (r *Repository) GetLatest(ctx context.Context) (*activity.Row, error) {
	var m models.ActivityRow
	result := r.db.WithContext(ctx).Order("started_at DESC, id DESC").First(&m)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest row")
	}
	row := fromModel(m)
	return &row, nil
}

// Count returns the number of stored rows
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.ActivityRow{}).Count(&n).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count activity rows")
	}
	return n, nil
}

// DeleteOldRows deletes rows that ended before a given time
func (r *Repository) DeleteOldRows(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("ended_at < ?", before.UTC()).Delete(&models.ActivityRow{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old rows")
	}
	return result.RowsAffected, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// RecentErrors returns the latest error logs, newest first
func (r *Repository) RecentErrors(ctx context.Context, limit int) ([]models.ErrorLog, error) {
	var logs []models.ErrorLog
	result := r.db.WithContext(ctx).Order("timestamp DESC").Limit(limit).Find(&logs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error logs")
	}
	return logs, nil
}

// Clear removes all activity rows from the database
func (r *Repository) Clear(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Exec("DELETE FROM activity_rows")
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to clear activity rows")
	}
	return result.RowsAffected, nil
}
