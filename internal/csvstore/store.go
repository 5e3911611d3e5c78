// Package csvstore keeps activity rows in a flat CSV table with the columns
// ",Title,Start,End", the layout written by pandas DataFrame.to_csv.
package csvstore

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/actionsum/focuslog/internal/activity"
)

// TimeLayout is the timestamp format of written rows
const TimeLayout = "2006-01-02 15:04:05.000000"

// parseLayouts are tried in order when reading; the first also accepts
// values without fractional seconds
var parseLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
}

// ErrMalformed is returned when the file exists but cannot be read as a table
var ErrMalformed = errors.New("malformed activity table")

// Store is a CSV backed row table. The whole file is rewritten on save.
type Store struct {
	path string
	loc  *time.Location
	mu   sync.Mutex
}

// New returns a store for path. Timestamps are read and written in loc,
// local time when nil.
func New(path string, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{path: path, loc: loc}
}

// Path returns the file the store reads and writes
func (s *Store) Path() string {
	return s.path
}

// LoadRows reads all rows. A missing file is an empty table.
func (s *Store) LoadRows(ctx context.Context) ([]activity.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]activity.Row, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []activity.Row{}, nil
		}
		return nil, errors.Wrap(err, "failed to open activity table")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return []activity.Row{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(ErrMalformed, "header: %v", err)
	}
	cols, err := columnIndexes(header)
	if err != nil {
		return nil, err
	}

	var rows []activity.Row
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(ErrMalformed, "line %d: %v", line, err)
		}
		row, err := s.parseRecord(rec, cols)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformed, "line %d: %v", line, err)
		}
		rows = append(rows, row)
	}
	if rows == nil {
		rows = []activity.Row{}
	}
	return rows, nil
}

type columns struct {
	title, start, end int
}

func columnIndexes(header []string) (columns, error) {
	cols := columns{title: -1, start: -1, end: -1}
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "Title":
			cols.title = i
		case "Start":
			cols.start = i
		case "End":
			cols.end = i
		}
	}
	if cols.title < 0 || cols.start < 0 || cols.end < 0 {
		return cols, errors.Wrapf(ErrMalformed, "missing Title, Start or End column in %q", strings.Join(header, ","))
	}
	return cols, nil
}

func (s *Store) parseRecord(rec []string, cols columns) (activity.Row, error) {
	need := max(cols.title, cols.start, cols.end)
	if len(rec) <= need {
		return activity.Row{}, errors.Errorf("expected at least %d fields, got %d", need+1, len(rec))
	}
	start, err := s.parseTime(rec[cols.start])
	if err != nil {
		return activity.Row{}, err
	}
	end, err := s.parseTime(rec[cols.end])
	if err != nil {
		return activity.Row{}, err
	}
	return activity.Row{Title: rec[cols.title], Start: start, End: end}, nil
}

func (s *Store) parseTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	var lastErr error
	for _, layout := range parseLayouts {
		t, err := time.ParseInLocation(layout, v, s.loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, errors.Wrapf(lastErr, "bad timestamp %q", v)
}

// SaveRows rewrites the table with rows. The file is replaced atomically.
func (s *Store) SaveRows(ctx context.Context, rows []activity.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(rows)
}

func (s *Store) save(rows []activity.Row) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.Wrap(err, "failed to create table directory")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".activity-*.csv")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary table")
	}
	defer os.Remove(tmp.Name())

	if err := s.write(tmp, rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temporary table")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(err, "failed to replace activity table")
	}
	return nil
}

func (s *Store) write(w io.Writer, rows []activity.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"", "Title", "Start", "End"}); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	for i, row := range rows {
		rec := []string{
			strconv.Itoa(i),
			row.Title,
			row.Start.In(s.loc).Format(TimeLayout),
			row.End.In(s.loc).Format(TimeLayout),
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "failed to write row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush table")
}

// RowsBetween returns rows overlapping [start, end)
func (s *Store) RowsBetween(ctx context.Context, start, end time.Time) ([]activity.Row, error) {
	rows, err := s.LoadRows(ctx)
	if err != nil {
		return nil, err
	}
	var out []activity.Row
	for _, row := range rows {
		if row.Start.Before(end) && row.End.After(start) {
			out = append(out, row)
		}
	}
	return out, nil
}

// Clear empties the table, returning how many rows it held
func (s *Store) Clear(ctx context.Context) (int64, error) {
	rows, err := s.LoadRows(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.SaveRows(ctx, nil); err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// DeleteOldRows removes rows that ended before a given time, returning how
// many were removed
func (s *Store) DeleteOldRows(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.load()
	if err != nil {
		return 0, err
	}
	kept := rows[:0]
	for _, row := range rows {
		if !row.End.Before(before) {
			kept = append(kept, row)
		}
	}
	removed := int64(len(rows) - len(kept))
	if removed == 0 {
		return 0, nil
	}
	if err := s.save(kept); err != nil {
		return 0, err
	}
	return removed, nil
}
