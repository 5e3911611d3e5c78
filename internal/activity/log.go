package activity

import (
	"sort"
	"sync"
	"time"
)

// Interval is a closed span during which a title was active
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End - Start
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Row is one persisted (title, start, end) triple. Session identifies the
// tracker run that produced it and may be empty.
type Row struct {
	Title   string    `json:"title"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Session string    `json:"session,omitempty"`
}

// Snapshot is a detached copy of the log contents
type Snapshot map[string][]Interval

// Rows flattens the snapshot, ordered by start time then title
func (s Snapshot) Rows(session string) []Row {
	var rows []Row
	for title, intervals := range s {
		for _, iv := range intervals {
			rows = append(rows, Row{Title: title, Start: iv.Start, End: iv.End, Session: session})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Start.Equal(rows[j].Start) {
			return rows[i].Title < rows[j].Title
		}
		return rows[i].Start.Before(rows[j].Start)
	})
	return rows
}

// Len returns the number of intervals held
func (s Snapshot) Len() int {
	n := 0
	for _, intervals := range s {
		n += len(intervals)
	}
	return n
}

// Log maps titles to their closed intervals in chronological order
type Log struct {
	mu      sync.Mutex
	entries map[string][]Interval
}

// NewLog returns an empty log
func NewLog() *Log {
	return &Log{entries: make(map[string][]Interval)}
}

// Register makes sure title has a (possibly empty) sequence
func (l *Log) Register(title string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[title]; !ok {
		l.entries[title] = nil
	}
}

// Append adds a closed interval to title, creating the sequence if needed
func (l *Log) Append(title string, iv Interval) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[title] = append(l.entries[title], iv)
}

// Snapshot returns a copy of the current contents without clearing them
func (l *Log) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(Snapshot, len(l.entries))
	for title, intervals := range l.entries {
		out[title] = append([]Interval(nil), intervals...)
	}
	return out
}

// Swap replaces the contents with empty sequences for every known title and
// returns what was held. Appends made after Swap land in the fresh mapping.
func (l *Log) Swap() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	held := Snapshot(l.entries)
	l.entries = make(map[string][]Interval, len(held))
	for title := range held {
		l.entries[title] = nil
	}
	return held
}

// Restore puts a snapshot taken by Swap back in front of anything appended
// since, keeping each title's sequence chronological.
func (l *Log) Restore(s Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for title, intervals := range s {
		if len(intervals) == 0 {
			if _, ok := l.entries[title]; !ok {
				l.entries[title] = nil
			}
			continue
		}
		merged := make([]Interval, 0, len(intervals)+len(l.entries[title]))
		merged = append(merged, intervals...)
		l.entries[title] = append(merged, l.entries[title]...)
	}
}

// Len returns the number of intervals held across all titles
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, intervals := range l.entries {
		n += len(intervals)
	}
	return n
}
