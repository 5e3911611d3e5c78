package tracker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/actionsum/focuslog/internal/activity"
	"github.com/actionsum/focuslog/internal/config"
	"github.com/actionsum/focuslog/internal/flush"
	"github.com/actionsum/focuslog/internal/focus"
	"github.com/actionsum/focuslog/internal/models"
	"github.com/actionsum/focuslog/pkg/window"
)

// ErrorRecorder persists tracker failures. The SQLite repository implements it.
type ErrorRecorder interface {
	CreateErrorLog(errorLog *models.ErrorLog) error
}

// Service owns everything one tracking run shares: the title signal, the
// accounting machine, the input clock, the interval log and the flusher
type Service struct {
	config  *config.Config
	windows window.Source
	inputs  window.InputSource

	signal  *focus.Signal
	clock   *activity.InputClock
	log     *activity.Log
	machine *activity.Machine
	flusher *flush.Coordinator
	records ErrorRecorder

	session string
	now     func() time.Time
	running atomic.Bool
	wg      sync.WaitGroup

	// OnChange, when set, is called from the window listener after every
	// accounted title change with the interval it closed
	OnChange func(title string, closed activity.Closed, ok bool)
}

// NewService wires a tracker reading windows and inputs and flushing into store
func NewService(cfg *config.Config, windows window.Source, inputs window.InputSource, store flush.Store, pressure flush.Pressure) *Service {
	s := &Service{
		config:  cfg,
		windows: windows,
		inputs:  inputs,
		signal:  focus.NewSignal(focus.NewResolver(windows)),
		clock:   &activity.InputClock{},
		log:     activity.NewLog(),
		session: uuid.NewString(),
		now:     time.Now,
	}
	s.machine = activity.NewMachine(s.log, s.clock, activity.Options{
		IdleThreshold: cfg.Tracker.IdleThreshold,
		IdleCredit:    cfg.Tracker.IdleCredit,
	})
	s.flusher = flush.NewCoordinator(s.log, store, pressure, cfg.Flush.MemoryThreshold, s.session)
	s.flusher.OnError = s.storeError
	if rec, ok := store.(ErrorRecorder); ok {
		s.records = rec
	}
	return s
}

// Session returns the id stamped on every row of this run
func (s *Service) Session() string {
	return s.session
}

// Pending returns how many intervals are waiting to be flushed
func (s *Service) Pending() int {
	return s.log.Len()
}

// Snapshot returns a copy of the intervals waiting to be flushed
func (s *Service) Snapshot() activity.Snapshot {
	return s.log.Snapshot()
}

// IsRunning reports whether Start is active
func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// Start primes the tracker with the focused window and runs the window and
// input listeners until ctx is cancelled or a source fails. On return the
// open segment is closed and, when configured, every interval is flushed.
func (s *Service) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("tracker is already running")
	}
	defer s.running.Store(false)

	state := s.signal.Prime()
	s.machine.Prime(state.Title, s.now())
	log.Printf("Starting tracker on %s (session %s), initial title %q", s.windows.GetDisplayServer(), s.session, state.Title)

	flushCtx := context.WithoutCancel(ctx)
	done := make(chan error, 2)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		done <- s.listenWindows(flushCtx)
	}()
	go func() {
		defer s.wg.Done()
		done <- s.listenInputs()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Println("Tracker stopped by context")
	case err := <-done:
		if err == nil {
			err = window.ErrClosed
		}
		runErr = fmt.Errorf("event source stopped: %w", err)
		log.Printf("Tracker stopping: %v", runErr)
	}

	s.shutdown()
	return runErr
}

func (s *Service) shutdown() {
	_ = s.windows.Close()
	_ = s.inputs.Close()
	s.wg.Wait()

	if closed, ok := s.machine.Close(s.now()); ok {
		logClosed("Closed final", closed)
	}
	s.flusher.Wait()

	if !s.config.Flush.OnExit {
		if n := s.log.Len(); n > 0 {
			log.Printf("Discarding %d unflushed intervals", n)
		}
		return
	}
	res, err := s.flusher.Flush(context.Background())
	if err != nil {
		s.storeError(fmt.Errorf("exit flush failed: %w", err))
		return
	}
	log.Printf("Exit flush wrote %d intervals", res.Rows)
}

func (s *Service) listenWindows(ctx context.Context) error {
	for {
		ev, err := s.windows.NextEvent()
		if err != nil {
			return err
		}
		title, changed := s.signal.Handle(ev)
		if !changed {
			continue
		}
		s.accountTitle(ctx, title)
	}
}

func (s *Service) accountTitle(ctx context.Context, title string) {
	closed, ok := s.machine.OnTitleChange(title, s.now())
	if ok {
		logClosed("Closed", closed)
	}
	if s.OnChange != nil {
		s.OnChange(title, closed, ok)
	}
	s.flusher.Trigger(ctx)
}

func (s *Service) listenInputs() error {
	for {
		at, err := s.inputs.NextInput()
		if err != nil {
			return err
		}
		s.clock.Touch(at)
		if closed, ok := s.machine.OnInput(at); ok {
			logClosed("Closed idle", closed)
		}
	}
}

func logClosed(prefix string, c activity.Closed) {
	suffix := ""
	if c.Capped {
		suffix = " (capped at last input)"
	}
	log.Printf("%s %q: %s -> %s%s", prefix, c.Title,
		c.Interval.Start.Format("15:04:05.000"), c.Interval.End.Format("15:04:05.000"), suffix)
}

func (s *Service) storeError(err error) {
	if s.records == nil {
		log.Printf("Tracker error: %v", err)
		return
	}

	errorLog := &models.ErrorLog{
		Timestamp: time.Now(),
		ErrorMsg:  err.Error(),
		Component: "flush",
		Session:   s.session,
		CreatedAt: time.Now(),
	}

	if dbErr := s.records.CreateErrorLog(errorLog); dbErr != nil {
		log.Printf("Failed to store error in database: %v (original error: %v)", dbErr, err)
	} else {
		log.Printf("Error logged to database: %v", err)
	}
}
