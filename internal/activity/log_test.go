package activity

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func titlesOf(s Snapshot) []string {
	titles := make([]string, 0, len(s))
	for title := range s {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles
}

func TestLogAppendCreatesSequence(t *testing.T) {
	log := NewLog()
	log.Append("Unseen", Interval{Start: at(0), End: at(1)})

	assert.Equal(t, []string{"Unseen"}, titlesOf(log.Snapshot()))
	assert.Equal(t, 1, log.Len())
}

func TestLogSwapKeepsTitles(t *testing.T) {
	log := NewLog()
	log.Register("Idle")
	log.Append("A", Interval{Start: at(0), End: at(1)})
	log.Append("B", Interval{Start: at(1), End: at(2)})

	held := log.Swap()
	assert.Equal(t, 2, held.Len())
	assert.Len(t, held["A"], 1)
	assert.Len(t, held["B"], 1)

	assert.Equal(t, []string{"A", "B", "Idle"}, titlesOf(log.Snapshot()))
	assert.Zero(t, log.Len())

	log.Append("A", Interval{Start: at(5), End: at(6)})
	assert.Len(t, held["A"], 1, "appends after swap do not reach the snapshot")
}

func TestLogRestoreKeepsOrder(t *testing.T) {
	log := NewLog()
	log.Append("A", Interval{Start: at(0), End: at(1)})
	held := log.Swap()

	log.Append("A", Interval{Start: at(3), End: at(4)})
	log.Append("C", Interval{Start: at(4), End: at(5)})
	log.Restore(held)

	snap := log.Snapshot()
	assert.Equal(t, []Interval{
		{Start: at(0), End: at(1)},
		{Start: at(3), End: at(4)},
	}, snap["A"])
	assert.Len(t, snap["C"], 1)
}

func TestLogSnapshotIsDetached(t *testing.T) {
	log := NewLog()
	log.Append("A", Interval{Start: at(0), End: at(1)})

	snap := log.Snapshot()
	snap["A"][0].End = at(100)
	assert.Equal(t, at(1), log.Snapshot()["A"][0].End)
}

func TestSnapshotRows(t *testing.T) {
	snap := Snapshot{
		"B": {{Start: at(2), End: at(3)}},
		"A": {{Start: at(0), End: at(1)}, {Start: at(4), End: at(5)}},
		"C": nil,
	}

	rows := snap.Rows("run-1")
	assert.Equal(t, []Row{
		{Title: "A", Start: at(0), End: at(1), Session: "run-1"},
		{Title: "B", Start: at(2), End: at(3), Session: "run-1"},
		{Title: "A", Start: at(4), End: at(5), Session: "run-1"},
	}, rows)
	assert.Equal(t, 3, snap.Len())
}
