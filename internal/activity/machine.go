package activity

import (
	"sync"
	"time"
)

const (
	// DefaultIdleThreshold is the gap between accounting ticks after which a
	// segment is treated as idle
	DefaultIdleThreshold = 5 * time.Second

	// DefaultIdleCredit is how long past the last input an idle segment is credited
	DefaultIdleCredit = 10 * time.Second
)

// Options tunes the idle decision
type Options struct {
	IdleThreshold time.Duration
	IdleCredit    time.Duration
}

// DefaultOptions returns the reference 5s threshold / 10s credit policy
func DefaultOptions() Options {
	return Options{
		IdleThreshold: DefaultIdleThreshold,
		IdleCredit:    DefaultIdleCredit,
	}
}

// Cursor is the working state of the machine: the open title and its markers
type Cursor struct {
	Title        string
	SegmentStart time.Time
	LastInputAt  time.Time
	LastTickAt   time.Time
}

// Closed describes an interval the machine just appended to the log
type Closed struct {
	Title    string
	Interval Interval
	Capped   bool // end was limited to the last input plus the idle credit
}

// Machine turns title changes and input events into closed intervals. It is
// safe for use by the window and input listeners at the same time.
type Machine struct {
	mu     sync.Mutex
	log    *Log
	clock  *InputClock
	opts   Options
	cursor Cursor
	primed bool
}

// NewMachine creates a machine appending to log and reading input times from clock
func NewMachine(log *Log, clock *InputClock, opts Options) *Machine {
	if opts.IdleThreshold <= 0 {
		opts.IdleThreshold = DefaultIdleThreshold
	}
	if opts.IdleCredit < 0 {
		opts.IdleCredit = 0
	}
	return &Machine{
		log:   log,
		clock: clock,
		opts:  opts,
	}
}

// Prime opens the first segment for the title active at startup
func (m *Machine) Prime(title string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset(title, now)
	m.primed = true
	m.log.Register(title)
}

// Cursor returns a copy of the current cursor
func (m *Machine) Cursor() Cursor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// Primed reports whether the machine has an open segment
func (m *Machine) Primed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.primed
}

// OnTitleChange closes the segment of the previous title and opens one for
// title. The first call on an unprimed machine only primes it.
func (m *Machine) OnTitleChange(title string, now time.Time) (Closed, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.primed {
		m.reset(title, now)
		m.primed = true
		m.log.Register(title)
		return Closed{}, false
	}
	closed := m.closeSegment(now)
	m.reset(title, m.clamp(now))
	return closed, true
}

// OnInput applies the idle check for the current title. After an idle gap the
// open segment is closed with the capped end and a new one starts at now;
// otherwise only the tick and input markers move.
func (m *Machine) OnInput(now time.Time) (Closed, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.primed {
		return Closed{}, false
	}
	now = m.clamp(now)
	if now.Sub(m.cursor.LastTickAt) > m.opts.IdleThreshold {
		closed := m.closeSegment(now)
		m.reset(m.cursor.Title, now)
		return closed, true
	}
	m.cursor.LastTickAt = now
	m.cursor.LastInputAt = now
	return Closed{}, false
}

// Close ends the open segment at now, for use at shutdown. The machine must
// be primed again before further use.
func (m *Machine) Close(now time.Time) (Closed, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.primed {
		return Closed{}, false
	}
	closed := m.closeSegment(now)
	m.primed = false
	return closed, true
}

// closeSegment appends the open segment of the cursor title. Callers hold mu.
// Inputs at or after now belong to the event doing the closing and never
// count as the last input of the segment.
func (m *Machine) closeSegment(now time.Time) Closed {
	c := m.cursor
	now = m.clamp(now)

	lastInput := c.LastInputAt
	if m.clock != nil {
		if t, ok := m.clock.Last(); ok && t.After(lastInput) && t.Before(now) {
			lastInput = t
		}
	}

	iv := Interval{Start: c.SegmentStart, End: now}
	capped := false
	if now.Sub(c.LastTickAt) > m.opts.IdleThreshold {
		capped = true
		iv.End = lastInput.Add(m.opts.IdleCredit)
		if iv.End.Before(iv.Start) {
			iv.End = iv.Start
		}
	}

	m.log.Append(c.Title, iv)
	return Closed{Title: c.Title, Interval: iv, Capped: capped}
}

// clamp keeps events from another source that arrive slightly out of order
// from moving the cursor backwards
func (m *Machine) clamp(now time.Time) time.Time {
	if now.Before(m.cursor.LastTickAt) {
		return m.cursor.LastTickAt
	}
	return now
}

func (m *Machine) reset(title string, now time.Time) {
	m.cursor = Cursor{
		Title:        title,
		SegmentStart: now,
		LastInputAt:  now,
		LastTickAt:   now,
	}
}
