package live

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with per-key TTL expiry. It backs tests
// and single-node deployments that run without Redis. All operations are
// atomic under one mutex, and expired keys read as absent before the sweeper
// removes them.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]*memEntry
	now  func() time.Time // injectable for deterministic tests
}

// memEntry is the value at one key. A key holds a set, a list, or a plain
// string depending on which operations touched it — mirroring how the Redis
// key space is used.
type memEntry struct {
	members   map[string]struct{}
	list      []float64
	value     string
	expiresAt time.Time // zero means no expiry set yet
}

func (e *memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !e.expiresAt.After(now)
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*memEntry),
		now:  time.Now,
	}
}

// live returns the entry at key, lazily discarding it if expired.
// Callers must hold mu.
func (m *MemoryStore) live(key string) *memEntry {
	e, ok := m.data[key]
	if !ok {
		return nil
	}
	if e.expired(m.now()) {
		delete(m.data, key)
		return nil
	}
	return e
}

func (m *MemoryStore) AddUnique(_ context.Context, key, member string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil {
		e = &memEntry{members: make(map[string]struct{})}
		m.data[key] = e
	}
	if e.members == nil {
		e.members = make(map[string]struct{})
	}
	e.members[member] = struct{}{}
	return int64(len(e.members)), nil
}

func (m *MemoryStore) Count(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil {
		return 0, nil
	}
	return int64(len(e.members)), nil
}

func (m *MemoryStore) Append(_ context.Context, key string, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil {
		e = &memEntry{}
		m.data[key] = e
	}
	e.list = append(e.list, value)
	return nil
}

func (m *MemoryStore) ReadAll(_ context.Context, key string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil || len(e.list) == 0 {
		return nil, nil
	}
	out := make([]float64, len(e.list))
	copy(out, e.list)
	return out, nil
}

func (m *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e := m.live(key); e != nil {
		e.expiresAt = m.now().Add(ttl)
	}
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live(key) != nil, nil
}

func (m *MemoryStore) SetIfAbsent(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live(key) != nil {
		return false, nil
	}
	m.data[key] = &memEntry{value: value, expiresAt: m.now().Add(ttl)}
	return true, nil
}

// Len returns the number of keys currently held, including expired keys the
// sweeper has not yet removed.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Evict removes keys whose TTL elapsed before now. It returns the number of
// keys removed.
func (m *MemoryStore) Evict(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, e := range m.data {
		if e.expired(now) {
			delete(m.data, key)
			removed++
		}
	}
	return removed
}

// sweepInterval is how often Run removes abandoned expired keys. Reads purge
// expired keys lazily, so the sweep only reclaims memory for keys nothing
// touches again.
const sweepInterval = time.Minute

// Run starts the background eviction loop and blocks until ctx is cancelled.
func (m *MemoryStore) Run(ctx context.Context) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := m.Evict(now); n > 0 {
				slog.Debug("live: evicted expired buckets", "count", n)
			}
		}
	}
}
