package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actionsum/focuslog/internal/activity"
	"github.com/actionsum/focuslog/internal/config"
	"github.com/actionsum/focuslog/internal/memory"
	"github.com/actionsum/focuslog/internal/models"
	"github.com/actionsum/focuslog/pkg/window"
	"github.com/actionsum/focuslog/pkg/window/windowtest"
)

var base = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return base.Add(time.Duration(seconds) * time.Second)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type memStore struct {
	mu      sync.Mutex
	rows    []activity.Row
	saveErr error
	errs    []*models.ErrorLog
}

func (s *memStore) LoadRows(ctx context.Context) ([]activity.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]activity.Row{}, s.rows...), nil
}

func (s *memStore) SaveRows(ctx context.Context, rows []activity.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.rows = append([]activity.Row{}, rows...)
	return nil
}

func (s *memStore) CreateErrorLog(errorLog *models.ErrorLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, errorLog)
	return nil
}

func (s *memStore) stored() []activity.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]activity.Row{}, s.rows...)
}

func (s *memStore) errorLogs() []*models.ErrorLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.ErrorLog{}, s.errs...)
}

type harness struct {
	svc     *Service
	windows *windowtest.Source
	inputs  *windowtest.InputSource
	store   *memStore
	clock   *fakeClock
	changes chan activity.Closed
	cancel  context.CancelFunc
	done    chan error
}

func newHarness(t *testing.T, cfg *config.Config, pressure float64) *harness {
	t.Helper()
	h := &harness{
		windows: windowtest.NewSource(),
		inputs:  windowtest.NewInputSource(),
		store:   &memStore{},
		clock:   &fakeClock{now: at(0)},
		changes: make(chan activity.Closed, 16),
		done:    make(chan error, 1),
	}
	h.windows.AddWindow(1, "Editor")
	h.windows.SetActive(1)

	h.svc = NewService(cfg, h.windows, h.inputs, h.store, memory.Fixed(pressure))
	h.svc.now = h.clock.Now
	h.svc.OnChange = func(title string, closed activity.Closed, ok bool) {
		h.changes <- closed
	}
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.svc.Start(ctx) }()
	require.Eventually(t, h.svc.machine.Primed, time.Second, time.Millisecond)
}

func (h *harness) next(t *testing.T) activity.Closed {
	t.Helper()
	select {
	case c := <-h.changes:
		return c
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a title change")
		return activity.Closed{}
	}
}

func (h *harness) stop(t *testing.T) error {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.done:
		return err
	case <-time.After(time.Second):
		t.Fatal("tracker did not stop")
		return nil
	}
}

func TestServiceAccountsTitleChanges(t *testing.T) {
	h := newHarness(t, config.Default(), 0)
	h.start(t)
	assert.Equal(t, "Editor", h.svc.signal.Resolver().State().Title)

	h.clock.Set(at(3))
	h.windows.AddWindow(2, "Terminal")
	h.windows.Activate(2)
	c := h.next(t)
	assert.Equal(t, "Editor", c.Title)
	assert.Equal(t, activity.Interval{Start: at(0), End: at(3)}, c.Interval)

	h.clock.Set(at(5))
	h.windows.Rename(2, "Terminal - vim")
	h.next(t)

	// a repeated notification with the same title is not accounted
	h.windows.Push(window.Event{Kind: window.EventPropertyChanged, Window: 2, Atom: window.AtomTitleUTF8})

	h.clock.Set(at(6))
	require.NoError(t, h.stop(t))

	session := h.svc.Session()
	assert.Equal(t, []activity.Row{
		{Title: "Editor", Start: at(0), End: at(3), Session: session},
		{Title: "Terminal", Start: at(3), End: at(5), Session: session},
		{Title: "Terminal - vim", Start: at(5), End: at(6), Session: session},
	}, h.store.stored())
	assert.Zero(t, h.svc.Pending())
}

func TestServiceCapsIdleSegment(t *testing.T) {
	h := newHarness(t, config.Default(), 0)
	h.start(t)

	h.inputs.Push(at(2))
	require.Eventually(t, func() bool {
		last, ok := h.svc.clock.Last()
		return ok && last.Equal(at(2))
	}, time.Second, time.Millisecond)

	h.clock.Set(at(20))
	h.windows.AddWindow(2, "Terminal")
	h.windows.Activate(2)
	c := h.next(t)
	assert.True(t, c.Capped)
	assert.Equal(t, activity.Interval{Start: at(0), End: at(12)}, c.Interval)

	require.NoError(t, h.stop(t))
}

func TestServiceCapsIdleSegmentOnInput(t *testing.T) {
	h := newHarness(t, config.Default(), 0)
	h.start(t)

	h.inputs.Push(at(2))
	require.Eventually(t, func() bool {
		return h.svc.machine.Cursor().LastTickAt.Equal(at(2))
	}, time.Second, time.Millisecond)

	h.inputs.Push(at(30))
	require.Eventually(t, func() bool { return h.svc.Pending() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []activity.Interval{{Start: at(0), End: at(12)}}, h.svc.Snapshot()["Editor"])

	h.clock.Set(at(31))
	require.NoError(t, h.stop(t))

	session := h.svc.Session()
	assert.Equal(t, []activity.Row{
		{Title: "Editor", Start: at(0), End: at(12), Session: session},
		{Title: "Editor", Start: at(30), End: at(31), Session: session},
	}, h.store.stored())
}

func TestServiceFlushesUnderPressure(t *testing.T) {
	h := newHarness(t, config.Default(), 50)
	h.start(t)

	h.clock.Set(at(4))
	h.windows.AddWindow(2, "Terminal")
	h.windows.Activate(2)
	h.next(t)

	require.Eventually(t, func() bool { return len(h.store.stored()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "Editor", h.store.stored()[0].Title)

	require.NoError(t, h.stop(t))
}

func TestServiceRecordsFlushErrors(t *testing.T) {
	h := newHarness(t, config.Default(), 50)
	h.store.saveErr = errors.New("disk full")
	h.start(t)

	h.clock.Set(at(4))
	h.windows.AddWindow(2, "Terminal")
	h.windows.Activate(2)
	h.next(t)

	require.Eventually(t, func() bool { return len(h.store.errorLogs()) >= 1 }, time.Second, time.Millisecond)
	require.NoError(t, h.stop(t))

	logs := h.store.errorLogs()
	assert.Contains(t, logs[0].ErrorMsg, "disk full")
	assert.Equal(t, "flush", logs[0].Component)
	assert.Equal(t, h.svc.Session(), logs[0].Session)
	// nothing was lost: the failed intervals are still pending
	assert.Equal(t, 2, h.svc.Pending())
}

func TestServiceWithoutExitFlush(t *testing.T) {
	cfg := config.Default()
	cfg.Flush.OnExit = false
	h := newHarness(t, cfg, 0)
	h.start(t)

	h.clock.Set(at(4))
	require.NoError(t, h.stop(t))
	assert.Empty(t, h.store.stored())
	assert.Equal(t, 1, h.svc.Pending())
}

func TestServiceStopsWhenSourceCloses(t *testing.T) {
	h := newHarness(t, config.Default(), 0)
	h.start(t)

	h.clock.Set(at(2))
	require.NoError(t, h.windows.Close())

	select {
	case err := <-h.done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, window.ErrClosed))
	case <-time.After(time.Second):
		t.Fatal("tracker did not stop")
	}
	h.cancel()

	rows := h.store.stored()
	require.Len(t, rows, 1)
	assert.Equal(t, activity.Row{Title: "Editor", Start: at(0), End: at(2), Session: h.svc.Session()}, rows[0])
}

func TestServiceStartTwice(t *testing.T) {
	h := newHarness(t, config.Default(), 0)
	h.start(t)
	assert.True(t, h.svc.IsRunning())
	assert.Error(t, h.svc.Start(context.Background()))
	require.NoError(t, h.stop(t))
	assert.False(t, h.svc.IsRunning())
}
