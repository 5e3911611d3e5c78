package flush

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/actionsum/focuslog/internal/activity"
)

// DefaultThreshold is the process memory share, in percent, above which the
// log is drained to the store
const DefaultThreshold = 1.0

// Store is the durable row table. LoadRows on a store that does not exist
// yet returns an empty slice and no error.
type Store interface {
	LoadRows(ctx context.Context) ([]activity.Row, error)
	SaveRows(ctx context.Context, rows []activity.Row) error
}

// Appender is implemented by stores that can add rows without rewriting
// the whole table
type Appender interface {
	AppendRows(ctx context.Context, rows []activity.Row) error
}

// Pressure reports how much system memory the process uses, in percent
type Pressure interface {
	Percent() (float64, error)
}

// Result describes one flush attempt
type Result struct {
	Flushed  bool
	Rows     int
	Pressure float64
}

// Coordinator moves intervals from the in-memory log to a store
type Coordinator struct {
	log       *activity.Log
	store     Store
	pressure  Pressure
	threshold float64
	session   string

	mu sync.Mutex // serializes flushes against each other
	wg sync.WaitGroup

	// OnError is called with failures of triggered flushes
	OnError func(err error)
}

// NewCoordinator creates a coordinator draining log into store when pressure
// exceeds threshold percent. Rows are stamped with session.
func NewCoordinator(log *activity.Log, store Store, pressure Pressure, threshold float64, session string) *Coordinator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Coordinator{
		log:       log,
		store:     store,
		pressure:  pressure,
		threshold: threshold,
		session:   session,
	}
}

// MaybeFlush drains the log when memory pressure is above the threshold.
// Below it, neither the log nor the store is touched.
func (c *Coordinator) MaybeFlush(ctx context.Context) (Result, error) {
	pct, err := c.pressure.Percent()
	if err != nil {
		return Result{}, fmt.Errorf("failed to read memory pressure: %w", err)
	}
	if pct <= c.threshold {
		return Result{Pressure: pct}, nil
	}

	res, err := c.Flush(ctx)
	res.Pressure = pct
	return res, err
}

// Flush drains the log regardless of pressure. On failure the drained
// intervals are put back so a later flush can retry them.
func (c *Coordinator) Flush(ctx context.Context) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	held := c.log.Swap()
	rows := held.Rows(c.session)
	if len(rows) == 0 {
		return Result{Flushed: true}, nil
	}

	if err := c.write(ctx, rows); err != nil {
		c.log.Restore(held)
		return Result{}, err
	}

	return Result{Flushed: true, Rows: len(rows)}, nil
}

func (c *Coordinator) write(ctx context.Context, rows []activity.Row) error {
	if app, ok := c.store.(Appender); ok {
		if err := app.AppendRows(ctx, rows); err != nil {
			return fmt.Errorf("failed to append rows: %w", err)
		}
		return nil
	}

	existing, err := c.store.LoadRows(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stored rows: %w", err)
	}
	combined := make([]activity.Row, 0, len(existing)+len(rows))
	combined = append(combined, existing...)
	combined = append(combined, rows...)
	if err := c.store.SaveRows(ctx, combined); err != nil {
		return fmt.Errorf("failed to save rows: %w", err)
	}
	return nil
}

// Trigger runs MaybeFlush in the background. Failures go to OnError or the
// log; the caller never waits for the flush.
func (c *Coordinator) Trigger(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res, err := c.MaybeFlush(ctx)
		if err != nil {
			if c.OnError != nil {
				c.OnError(err)
			} else {
				log.Printf("Flush failed: %v", err)
			}
			return
		}
		if res.Flushed && res.Rows > 0 {
			log.Printf("Flushed %d intervals (memory %.2f%%)", res.Rows, res.Pressure)
		}
	}()
}

// Wait blocks until every triggered flush has finished
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
