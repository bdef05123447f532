package health

import (
	"context"
	"time"

	"github.com/0xsamyy/fibwatch/internal/alert"
	"github.com/0xsamyy/fibwatch/internal/watchlist"
)

// WatchStats is the minimal interface we need from the watch-list.
type WatchStats interface {
	Stats() (watched, stopped, alerts int)
}

// CycleSource exposes the most recent cycle report.
type CycleSource interface {
	LastReport() (alert.Report, bool)
}

// SnapshotLoader reads what is on disk.
type SnapshotLoader interface {
	Load(ctx context.Context) (watchlist.Snapshot, error)
	Path() string
}

// Health exposes a read-only snapshot of service state for the /health command.
type Health struct {
	wl     WatchStats
	cycles CycleSource
	st     SnapshotLoader
}

// New returns a Health aggregator.
func New(wl WatchStats, cycles CycleSource, st SnapshotLoader) *Health {
	return &Health{wl: wl, cycles: cycles, st: st}
}

// Report is the struct returned to the caller (Telegram handler) for formatting.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`

	// From the watch-list
	Watched    int `json:"watched"`
	Stopped    int `json:"stopped"`
	AlertsSent int `json:"alerts_sent"`

	// From the scheduler's last cycle
	HasCycle      bool          `json:"has_cycle"`
	LastCycleID   string        `json:"last_cycle_id,omitempty"`
	LastCycleAt   time.Time     `json:"last_cycle_at"`
	LastCycleTook time.Duration `json:"last_cycle_took"`
	LastEvents    int           `json:"last_events"`
	LastFailures  int           `json:"last_failures"`

	// From persistent store
	PersistPath      string `json:"persist_path,omitempty"`
	TrackedPersisted int    `json:"tracked_in_store"`
	PersistErr       string `json:"persist_err,omitempty"`
}

// Snapshot gathers a point-in-time report. It does not block for long operations.
func (h *Health) Snapshot(ctx context.Context) Report {
	rep := Report{GeneratedAt: time.Now().UTC()}
	rep.Watched, rep.Stopped, rep.AlertsSent = h.wl.Stats()

	if h.cycles != nil {
		if last, ok := h.cycles.LastReport(); ok {
			rep.HasCycle = true
			rep.LastCycleID = last.ID
			rep.LastCycleAt = last.StartedAt
			rep.LastCycleTook = last.Duration
			rep.LastEvents = len(last.Events)
			rep.LastFailures = len(last.Failures)
		}
	}

	if h.st != nil && h.st.Path() != "" {
		rep.PersistPath = h.st.Path()
		if snap, err := h.st.Load(ctx); err == nil {
			rep.TrackedPersisted = len(snap.Watchlist)
		} else {
			rep.PersistErr = err.Error()
		}
	}

	return rep
}
