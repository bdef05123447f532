package watchlist

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/0xsamyy/fibwatch/internal/alert"
)

// ErrNotWatched is returned when removing a token that is not on the list.
var ErrNotWatched = errors.New("token is not on the watch-list")

// Store owns the set of watched tokens and their alert state.
// It is concurrency-safe via an internal RWMutex.
type Store struct {
	now func() time.Time

	mu     sync.RWMutex
	tokens map[string]*alert.TokenState // addr -> state
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		now:    time.Now,
		tokens: make(map[string]*alert.TokenState),
	}
}

// Entry is a copy of one token's record, as returned by List.
type Entry struct {
	Token string
	State alert.TokenState
}

// Add puts addr on the watch-list with a fresh state. Re-adding a watched
// token is a no-op and returns false.
func (s *Store) Add(addr string) bool {
	return s.AddWithRange(addr, nil)
}

// AddWithRange is Add with a manual low/high override. Re-adding a watched
// token only replaces its range.
func (s *Store) AddWithRange(addr string, r *alert.Range) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, exists := s.tokens[addr]; exists {
		if r != nil {
			rc := *r
			st.Range = &rc
		}
		return false
	}

	st := &alert.TokenState{AddedAt: s.now().UTC()}
	if r != nil {
		rc := *r
		st.Range = &rc
	}
	s.tokens[addr] = st
	return true
}

// Remove deletes addr and its state.
func (s *Store) Remove(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[addr]; !ok {
		return ErrNotWatched
	}
	delete(s.tokens, addr)
	return nil
}

// Clear drops every token and returns how many were removed.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.tokens)
	s.tokens = make(map[string]*alert.TokenState)
	return n
}

// Contains reports whether addr is watched.
func (s *Store) Contains(addr string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tokens[addr]
	return ok
}

// Snapshot returns a sorted point-in-time copy of the watched addresses.
func (s *Store) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := lo.Keys(s.tokens)
	sort.Strings(out)
	return out
}

// List returns a sorted copy of every record.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.tokens))
	for addr, st := range s.tokens {
		out = append(out, Entry{Token: addr, State: cloneState(st)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// State returns a copy of addr's state.
func (s *Store) State(addr string) (alert.TokenState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.tokens[addr]
	if !ok {
		return alert.TokenState{}, false
	}
	return cloneState(st), true
}

// Apply runs fn on addr's state while holding the write lock. It returns false
// without calling fn when addr is not watched.
func (s *Store) Apply(addr string, fn func(*alert.TokenState)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.tokens[addr]
	if !ok {
		return false
	}
	fn(st)
	return true
}

// PruneStopped removes every token whose budget is exhausted and returns the
// removed addresses, sorted.
func (s *Store) PruneStopped() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pruned []string
	for addr, st := range s.tokens {
		if st.Stopped {
			pruned = append(pruned, addr)
			delete(s.tokens, addr)
		}
	}
	sort.Strings(pruned)
	return pruned
}

// Stats reports:
//
//	watched = tokens on the list
//	stopped = tokens that exhausted their alert budget
//	alerts  = alerts sent across all tokens
//
// This is used by the /health command and the gauges.
func (s *Store) Stats() (watched, stopped, alerts int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	watched = len(s.tokens)
	for _, st := range s.tokens {
		if st.Stopped {
			stopped++
		}
		alerts += st.AlertsSent
	}
	return
}

func cloneState(st *alert.TokenState) alert.TokenState {
	out := *st
	if st.Range != nil {
		r := *st.Range
		out.Range = &r
	}
	if st.Last != nil {
		l := *st.Last
		out.Last = &l
	}
	return out
}
