package flush

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actionsum/focuslog/internal/activity"
	"github.com/actionsum/focuslog/internal/memory"
)

var base = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return base.Add(time.Duration(seconds) * time.Second)
}

// tableStore is a read-modify-write store kept in memory
type tableStore struct {
	mu      sync.Mutex
	rows    []activity.Row
	loadErr error
	saveErr error
	saves   int
	block   chan struct{}
}

func (s *tableStore) LoadRows(ctx context.Context) ([]activity.Row, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return append([]activity.Row(nil), s.rows...), nil
}

func (s *tableStore) SaveRows(ctx context.Context, rows []activity.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.rows = append([]activity.Row(nil), rows...)
	return nil
}

func (s *tableStore) snapshot() []activity.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]activity.Row(nil), s.rows...)
}

// appendStore only supports appends
type appendStore struct {
	tableStore
	appended []activity.Row
}

func (s *appendStore) AppendRows(ctx context.Context, rows []activity.Row) error {
	s.appended = append(s.appended, rows...)
	return nil
}

func filledLog() *activity.Log {
	log := activity.NewLog()
	log.Append("Editor", activity.Interval{Start: at(0), End: at(3)})
	log.Append("Browser", activity.Interval{Start: at(3), End: at(7)})
	log.Append("Editor", activity.Interval{Start: at(7), End: at(9)})
	return log
}

func TestMaybeFlushBelowThreshold(t *testing.T) {
	log := filledLog()
	store := &tableStore{rows: []activity.Row{{Title: "Old", Start: at(-10), End: at(-5)}}}
	c := NewCoordinator(log, store, memory.Fixed(0.5), 1.0, "run")

	res, err := c.MaybeFlush(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Flushed)
	assert.Equal(t, 0.5, res.Pressure)

	assert.Equal(t, 3, log.Len())
	assert.Zero(t, store.saves)
	assert.Len(t, store.snapshot(), 1)
}

func TestMaybeFlushDrainsFully(t *testing.T) {
	log := filledLog()
	old := activity.Row{Title: "Old", Start: at(-10), End: at(-5)}
	store := &tableStore{rows: []activity.Row{old}}
	c := NewCoordinator(log, store, memory.Fixed(2.5), 1.0, "run")

	res, err := c.MaybeFlush(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Flushed)
	assert.Equal(t, 3, res.Rows)

	assert.Zero(t, log.Len())
	snap := log.Snapshot()
	assert.Len(t, snap, 2, "titles stay as keys")
	assert.Contains(t, snap, "Browser")
	assert.Contains(t, snap, "Editor")

	assert.ElementsMatch(t, []activity.Row{
		old,
		{Title: "Editor", Start: at(0), End: at(3), Session: "run"},
		{Title: "Browser", Start: at(3), End: at(7), Session: "run"},
		{Title: "Editor", Start: at(7), End: at(9), Session: "run"},
	}, store.snapshot())
}

func TestFlushUsesAppender(t *testing.T) {
	store := &appendStore{}
	c := NewCoordinator(filledLog(), store, memory.Fixed(5), 1.0, "run")

	_, err := c.MaybeFlush(context.Background())
	require.NoError(t, err)
	assert.Len(t, store.appended, 3)
	assert.Zero(t, store.saves, "append path never rewrites the table")
}

func TestFlushFailureRestoresLog(t *testing.T) {
	tests := []struct {
		name  string
		store *tableStore
	}{
		{"load fails", &tableStore{loadErr: errors.New("malformed store")}},
		{"save fails", &tableStore{saveErr: errors.New("disk full")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := filledLog()
			before := log.Snapshot()
			c := NewCoordinator(log, tt.store, memory.Fixed(5), 1.0, "run")

			_, err := c.MaybeFlush(context.Background())
			require.Error(t, err)
			assert.Equal(t, before, log.Snapshot())

			tt.store.loadErr = nil
			tt.store.saveErr = nil
			res, err := c.MaybeFlush(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 3, res.Rows)
			assert.Len(t, tt.store.snapshot(), 3)
		})
	}
}

func TestFlushKeepsAppendsMadeDuringFlush(t *testing.T) {
	log := filledLog()
	store := &tableStore{block: make(chan struct{})}
	c := NewCoordinator(log, store, memory.Fixed(5), 1.0, "run")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := c.Flush(context.Background())
		assert.NoError(t, err)
	}()

	// The flush has swapped the log by the time the store blocks, or it will
	// swap right after; either way this append must survive.
	log.Append("Terminal", activity.Interval{Start: at(9), End: at(12)})
	close(store.block)
	<-done

	total := log.Len() + len(store.snapshot())
	assert.Equal(t, 4, total)
}

func TestMaybeFlushPressureError(t *testing.T) {
	log := filledLog()
	c := NewCoordinator(log, &tableStore{}, failingPressure{}, 1.0, "run")

	_, err := c.MaybeFlush(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, log.Len())
}

func TestTriggerAndWait(t *testing.T) {
	log := filledLog()
	store := &tableStore{}
	c := NewCoordinator(log, store, memory.Fixed(5), 1.0, "run")

	var mu sync.Mutex
	var errs []error
	c.OnError = func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	}

	for i := 0; i < 5; i++ {
		c.Trigger(context.Background())
	}
	c.Wait()

	assert.Empty(t, errs)
	assert.Len(t, store.snapshot(), 3, "concurrent flushes never write a row twice")
	assert.Zero(t, log.Len())
}

func TestTriggerReportsErrors(t *testing.T) {
	store := &tableStore{saveErr: errors.New("disk full")}
	c := NewCoordinator(filledLog(), store, memory.Fixed(5), 1.0, "run")

	got := make(chan error, 1)
	c.OnError = func(err error) { got <- err }
	c.Trigger(context.Background())
	c.Wait()

	select {
	case err := <-got:
		assert.ErrorContains(t, err, "disk full")
	default:
		t.Fatal("OnError was not called")
	}
}

type failingPressure struct{}

func (failingPressure) Percent() (float64, error) {
	return 0, errors.New("no /proc")
}
