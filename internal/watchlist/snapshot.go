package watchlist

import (
	"sort"

	"github.com/0xsamyy/fibwatch/internal/alert"
)

// Snapshot is the persisted form of a Store: the watch-list and every
// token's state.
type Snapshot struct {
	Watchlist []string                    `json:"watchlist" yaml:"watchlist"`
	States    map[string]alert.TokenState `json:"states" yaml:"states"`
}

// Export copies the store into a Snapshot.
func (s *Store) Export() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Watchlist: make([]string, 0, len(s.tokens)),
		States:    make(map[string]alert.TokenState, len(s.tokens)),
	}
	for addr, st := range s.tokens {
		snap.Watchlist = append(snap.Watchlist, addr)
		snap.States[addr] = cloneState(st)
	}
	sort.Strings(snap.Watchlist)
	return snap
}

// Restore replaces the store contents with snap. Watch-list entries with no
// recorded state start fresh; states for tokens absent from the watch-list
// are dropped.
func (s *Store) Restore(snap Snapshot) {
	tokens := make(map[string]*alert.TokenState, len(snap.Watchlist))
	for _, addr := range snap.Watchlist {
		st, ok := snap.States[addr]
		if !ok {
			st = alert.TokenState{AddedAt: s.now().UTC()}
		}
		c := cloneState(&st)
		tokens[addr] = &c
	}

	s.mu.Lock()
	s.tokens = tokens
	s.mu.Unlock()
}
