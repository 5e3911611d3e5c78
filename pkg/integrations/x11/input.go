package x11

import (
	"fmt"
	"sync"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"

	"github.com/actionsum/focuslog/pkg/window"
)

// InputMonitor implements window.InputSource by sampling the server's
// time-since-last-input counter. Key presses, button presses and pointer
// motion all reset that counter.
type InputMonitor struct {
	conn     *xgb.Conn
	root     xproto.Drawable
	interval time.Duration
	sampled  time.Time
	closed   chan struct{}
	once     sync.Once
}

// NewInputMonitor opens its own connection to display and samples every interval
func NewInputMonitor(display string, interval time.Duration) (*InputMonitor, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	if err := screensaver.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("MIT-SCREEN-SAVER extension not available: %w", err)
	}

	return &InputMonitor{
		conn:     conn,
		root:     xproto.Drawable(xproto.Setup(conn).DefaultScreen(conn).Root),
		interval: interval,
		sampled:  time.Now(),
		closed:   make(chan struct{}),
	}, nil
}

// NextInput blocks until a sample shows input newer than the previous sample
func (m *InputMonitor) NextInput() (time.Time, error) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.closed:
			return time.Time{}, window.ErrClosed
		case <-ticker.C:
		}

		reply, err := screensaver.QueryInfo(m.conn, m.root).Reply()
		if err != nil {
			select {
			case <-m.closed:
				return time.Time{}, window.ErrClosed
			default:
			}
			return time.Time{}, fmt.Errorf("failed to query input idle time: %w", err)
		}

		now := time.Now()
		at, ok := inputSince(m.sampled, now, time.Duration(reply.MsSinceUserInput)*time.Millisecond)
		m.sampled = now
		if ok {
			return at, nil
		}
	}
}

// inputSince reports the instant of the last input when it happened after
// the previous sample
func inputSince(previous, now time.Time, idle time.Duration) (time.Time, bool) {
	if idle >= now.Sub(previous) {
		return time.Time{}, false
	}
	return now.Add(-idle), true
}

// Close closes the connection, which unblocks NextInput
func (m *InputMonitor) Close() error {
	m.once.Do(func() {
		close(m.closed)
		m.conn.Close()
	})
	return nil
}
