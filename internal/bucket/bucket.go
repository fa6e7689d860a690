// Package bucket discretizes wall-clock time into fixed five-minute windows.
//
// A Bucket is the floor of unix seconds over the window width: any two
// timestamps inside the same window map to the same Bucket, and consecutive
// windows differ by exactly 1. Bucket numbers are monotonic non-decreasing
// with wall-clock time.
package bucket

import "time"

// WindowSeconds is the width of one aggregation window.
const WindowSeconds = 300

// Window is WindowSeconds as a time.Duration. Live aggregates expire this
// long after their last write.
const Window = WindowSeconds * time.Second

// Bucket identifies one five-minute window since the unix epoch.
type Bucket int64

// At returns the bucket containing ts. The calculation uses unix seconds,
// so the timestamp's zone is irrelevant — a "naive" timestamp parsed as UTC
// lands in the same bucket as its zoned equivalent.
func At(ts time.Time) Bucket {
	return Bucket(ts.Unix() / WindowSeconds)
}

// Start returns the UTC wall-clock time at which b begins.
func (b Bucket) Start() time.Time {
	return time.Unix(int64(b)*WindowSeconds, 0).UTC()
}

// Prev returns the bucket immediately before b.
func (b Bucket) Prev() Bucket { return b - 1 }
