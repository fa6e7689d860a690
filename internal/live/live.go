package live

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/gridpulse/gridpulse/internal/bucket"
)

// Store is the ephemeral counting store contract. Every operation must be
// atomic per key at the store level; no caller-side serialization is
// required. Entries vanish when their TTL elapses — that is the sole
// garbage-collection mechanism.
type Store interface {
	// AddUnique adds member to the set at key and returns the set's new
	// cardinality. Re-adding an existing member is a no-op for the count.
	AddUnique(ctx context.Context, key, member string) (int64, error)

	// Count returns the cardinality of the set at key; 0 for absent keys.
	Count(ctx context.Context, key string) (int64, error)

	// Append appends value to the list at key.
	Append(ctx context.Context, key string, value float64) error

	// ReadAll returns the list at key in insertion order; empty for absent keys.
	ReadAll(ctx context.Context, key string) ([]float64, error)

	// Expire sets key's time-to-live, replacing any previous TTL.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)

	// SetIfAbsent atomically creates key with value and ttl, returning true
	// only if the key did not exist. This is the race-safe check-and-set used
	// by the flush-once guard.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// batchRecorder is an optional Store upgrade: record one ping (device add,
// speed append, TTL refresh) in a single round trip. The Redis store
// implements it via pipelining.
type batchRecorder interface {
	RecordPing(ctx context.Context, countKey, speedsKey, member string, speed *float64, ttl time.Duration) (int64, error)
}

// CountKey returns the store key holding the unique-device set for
// (cell, bucket).
func CountKey(cell string, b bucket.Bucket) string {
	return fmt.Sprintf("cell:%s:bucket:%d", cell, b)
}

// SpeedsKey returns the store key holding the speed sample list for
// (cell, bucket).
func SpeedsKey(cell string, b bucket.Bucket) string {
	return CountKey(cell, b) + ":speeds"
}

// FlushMarkerKey returns the store key claimed when (cell, bucket) is folded
// into the baseline.
func FlushMarkerKey(cell string, b bucket.Bucket) string {
	return CountKey(cell, b) + ":flushed"
}

// markerGrace extends the flush marker's TTL past the bucket TTL so a marker
// never expires before the aggregate it guards.
const markerGrace = time.Minute

// Aggregator accumulates unique-device counts and speed samples per
// (cell, bucket) on top of a Store. It is safe for concurrent use by any
// number of callers.
type Aggregator struct {
	store Store
	ttl   time.Duration
}

// NewAggregator returns an Aggregator over store with the standard bucket TTL.
func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store, ttl: bucket.Window}
}

// Record adds one ping to (cell, b): the device joins the bucket's unique
// set, the speed (when present) is appended, and the bucket's expiry is
// refreshed. It returns the unique-device count after the write.
//
// Store failures degrade rather than fail: the ping is acknowledged and the
// count reported as 0. At-least-once toward the caller, at-most-once toward
// the statistic.
func (a *Aggregator) Record(ctx context.Context, cell string, b bucket.Bucket, deviceID string, speed *float64) int64 {
	countKey, speedsKey := CountKey(cell, b), SpeedsKey(cell, b)

	if br, ok := a.store.(batchRecorder); ok {
		n, err := br.RecordPing(ctx, countKey, speedsKey, deviceID, speed, a.ttl)
		if err != nil {
			slog.Warn("live: record failed — ping acknowledged without count",
				"cell", cell, "bucket", b, "err", err)
			return 0
		}
		return n
	}

	n, err := a.store.AddUnique(ctx, countKey, deviceID)
	if err != nil {
		slog.Warn("live: record failed — ping acknowledged without count",
			"cell", cell, "bucket", b, "err", err)
		return 0
	}
	if err := a.store.Expire(ctx, countKey, a.ttl); err != nil {
		slog.Warn("live: expire failed", "key", countKey, "err", err)
	}
	if speed != nil {
		if err := a.store.Append(ctx, speedsKey, *speed); err != nil {
			slog.Warn("live: speed append failed", "key", speedsKey, "err", err)
		} else if err := a.store.Expire(ctx, speedsKey, a.ttl); err != nil {
			slog.Warn("live: expire failed", "key", speedsKey, "err", err)
		}
	}
	return n
}

// Read returns the current unique-device count and mean recorded speed for
// (cell, b). Absent or expired buckets read as (0, nil); a bucket without
// speed samples reads as (count, nil). Store failures degrade the same way.
func (a *Aggregator) Read(ctx context.Context, cell string, b bucket.Bucket) (int64, *float64) {
	n, err := a.store.Count(ctx, CountKey(cell, b))
	if err != nil {
		slog.Warn("live: count read failed — treating bucket as empty",
			"cell", cell, "bucket", b, "err", err)
		return 0, nil
	}

	speeds, err := a.store.ReadAll(ctx, SpeedsKey(cell, b))
	if err != nil {
		slog.Warn("live: speeds read failed", "cell", cell, "bucket", b, "err", err)
		return n, nil
	}
	if len(speeds) == 0 {
		return n, nil
	}
	mean := stat.Mean(speeds, nil)
	return n, &mean
}

// CountOnly returns just the unique-device count for (cell, b), skipping the
// speed list read. Area queries use it to keep wide scans cheap.
func (a *Aggregator) CountOnly(ctx context.Context, cell string, b bucket.Bucket) int64 {
	n, err := a.store.Count(ctx, CountKey(cell, b))
	if err != nil {
		slog.Warn("live: count read failed — treating bucket as empty",
			"cell", cell, "bucket", b, "err", err)
		return 0
	}
	return n
}

// MarkFlushed claims the flush-once marker for (cell, b). It returns true
// exactly once per (cell, bucket) across all concurrent callers; a store
// failure returns false so the flush is skipped rather than duplicated.
func (a *Aggregator) MarkFlushed(ctx context.Context, cell string, b bucket.Bucket) bool {
	ok, err := a.store.SetIfAbsent(ctx, FlushMarkerKey(cell, b), "1", a.ttl+markerGrace)
	if err != nil {
		slog.Warn("live: flush marker failed — skipping flush",
			"cell", cell, "bucket", b, "err", err)
		return false
	}
	return ok
}
