package track

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gridpulse/gridpulse/internal/bucket"
)

// Observation is the latest scored state of one cell.
type Observation struct {
	CellID       string
	VehicleCount int
	AvgSpeedKmh  *float64
	Level        string
	Method       string
	Bucket       bucket.Bucket
}

// Entry is an observation together with the time it was last received.
type Entry struct {
	Obs       Observation
	UpdatedAt time.Time
}

// Store is a thread-safe in-memory registry of recently observed cells,
// keyed by cell ID. A background goroutine (Run) periodically evicts entries
// that have not been updated within the configured TTL.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// TTL returns the configured retention window.
func (s *Store) TTL() time.Duration { return s.ttl }

// Put stores or replaces the observation for obs.CellID.
func (s *Store) Put(obs Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[obs.CellID] = &Entry{
		Obs:       obs,
		UpdatedAt: s.now(),
	}
}

// Get returns the Entry for the given cell ID and a boolean indicating
// whether an entry was found. The entry may be stale if TTL has elapsed.
func (s *Store) Get(cellID string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[cellID]
	return e, ok
}

// List returns a snapshot of all entries whose UpdatedAt is within the TTL.
// Stale entries that have not yet been evicted are excluded.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-s.ttl)
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		if e.UpdatedAt.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries whose UpdatedAt is older than now minus TTL.
// It returns the number of entries removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for id, e := range s.data {
		if !e.UpdatedAt.After(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// interval (minimum 1 second) so entries are evicted promptly. Run blocks
// until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("track: evicted stale cells", "count", n)
			}
		}
	}
}
