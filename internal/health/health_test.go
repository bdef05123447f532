package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/0xsamyy/fibwatch/internal/alert"
	"github.com/0xsamyy/fibwatch/internal/watchlist"
)

type stubStats struct{ watched, stopped, alerts int }

func (s stubStats) Stats() (int, int, int) { return s.watched, s.stopped, s.alerts }

type stubCycles struct {
	rep alert.Report
	ok  bool
}

func (s stubCycles) LastReport() (alert.Report, bool) { return s.rep, s.ok }

type stubLoader struct {
	path string
	snap watchlist.Snapshot
	err  error
}

func (s stubLoader) Load(context.Context) (watchlist.Snapshot, error) { return s.snap, s.err }
func (s stubLoader) Path() string                                     { return s.path }

func TestSnapshotAggregates(t *testing.T) {
	started := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	cycles := stubCycles{ok: true, rep: alert.Report{
		ID:        "cycle-1",
		StartedAt: started,
		Duration:  1500 * time.Millisecond,
		Events:    []alert.Event{{Token: "AAA"}},
		Failures:  map[string]error{"BBB": errors.New("boom"), "CCC": errors.New("boom")},
	}}
	loader := stubLoader{path: "state.db", snap: watchlist.Snapshot{Watchlist: []string{"AAA", "BBB"}}}

	rep := New(stubStats{watched: 3, stopped: 1, alerts: 4}, cycles, loader).Snapshot(context.Background())

	assert.Equal(t, 3, rep.Watched)
	assert.Equal(t, 1, rep.Stopped)
	assert.Equal(t, 4, rep.AlertsSent)
	assert.True(t, rep.HasCycle)
	assert.Equal(t, "cycle-1", rep.LastCycleID)
	assert.True(t, started.Equal(rep.LastCycleAt))
	assert.Equal(t, 1500*time.Millisecond, rep.LastCycleTook)
	assert.Equal(t, 1, rep.LastEvents)
	assert.Equal(t, 2, rep.LastFailures)
	assert.Equal(t, "state.db", rep.PersistPath)
	assert.Equal(t, 2, rep.TrackedPersisted)
	assert.Empty(t, rep.PersistErr)
	assert.False(t, rep.GeneratedAt.IsZero())
}

func TestSnapshotWithoutCycleOrStore(t *testing.T) {
	rep := New(stubStats{}, stubCycles{}, stubLoader{}).Snapshot(context.Background())
	assert.False(t, rep.HasCycle)
	assert.Empty(t, rep.PersistPath)
	assert.Zero(t, rep.TrackedPersisted)

	rep = New(stubStats{watched: 1}, nil, nil).Snapshot(context.Background())
	assert.Equal(t, 1, rep.Watched)
}

func TestSnapshotReportsLoadError(t *testing.T) {
	loader := stubLoader{path: "state.json", err: errors.New("corrupt")}
	rep := New(stubStats{}, nil, loader).Snapshot(context.Background())
	assert.Equal(t, "corrupt", rep.PersistErr)
	assert.Zero(t, rep.TrackedPersisted)
}
