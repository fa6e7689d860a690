package ingest

import (
	"context"
	"time"

	"github.com/gridpulse/gridpulse/internal/baseline"
	"github.com/gridpulse/gridpulse/internal/score"
)

// Strategy binds one statistical representation of "normal" to its scorer.
// Exactly one strategy is active per deployment; both read and write sides of
// the baseline go through it so the representation can never diverge from the
// comparison.
type Strategy interface {
	// Name identifies the strategy in logs and config ("zscore" | "percentile").
	Name() string

	// Score classifies the current (count, avgSpeed) for cell against its
	// learned baseline. Baseline read failures degrade to the fallback table
	// inside the store layer, so Score itself cannot fail.
	Score(ctx context.Context, cell string, count int, avgSpeed *float64) score.Verdict

	// Flush folds one completed bucket's aggregate into cell's baseline.
	Flush(ctx context.Context, cell string, bucketStart time.Time, count int, avgSpeed *float64) error
}

// BaselineStore is the persistence surface the z-score strategy needs.
// *baseline.Store satisfies it.
type BaselineStore interface {
	Baseline(ctx context.Context, cellID string) baseline.Stats
	UpdateBaseline(ctx context.Context, cellID string, fn func(baseline.Stats) baseline.Stats) error
}

// HistoryStore is the persistence surface the percentile strategy needs.
// *baseline.Store satisfies it.
type HistoryStore interface {
	HistoryPercentiles(ctx context.Context, cellID string, window time.Duration) baseline.Percentiles
	AppendHistory(ctx context.Context, row baseline.HistoryRow) error
}

// ZScoreStrategy scores against an EMA baseline and folds completed buckets
// into it with exponential smoothing.
type ZScoreStrategy struct {
	Store  BaselineStore
	Scorer score.ZScorer

	// Alpha is the EMA smoothing factor; zero means baseline.DefaultAlpha.
	Alpha float64
}

func (ZScoreStrategy) Name() string { return "zscore" }

func (s ZScoreStrategy) Score(ctx context.Context, cell string, count int, avgSpeed *float64) score.Verdict {
	return s.Scorer.Score(count, avgSpeed, s.Store.Baseline(ctx, cell))
}

func (s ZScoreStrategy) Flush(ctx context.Context, cell string, _ time.Time, count int, avgSpeed *float64) error {
	return s.Store.UpdateBaseline(ctx, cell, func(cur baseline.Stats) baseline.Stats {
		return baseline.Update(cur, count, avgSpeed, s.Alpha)
	})
}

// PercentileStrategy scores against trailing-window percentiles and appends
// completed buckets to the history log they are derived from.
type PercentileStrategy struct {
	Store  HistoryStore
	Scorer score.PercentileScorer

	// Window is the trailing history window; zero means a week.
	Window time.Duration
}

func (PercentileStrategy) Name() string { return "percentile" }

func (s PercentileStrategy) window() time.Duration {
	if s.Window > 0 {
		return s.Window
	}
	return 7 * 24 * time.Hour
}

func (s PercentileStrategy) Score(ctx context.Context, cell string, count int, avgSpeed *float64) score.Verdict {
	return s.Scorer.Score(count, avgSpeed, s.Store.HistoryPercentiles(ctx, cell, s.window()))
}

func (s PercentileStrategy) Flush(ctx context.Context, cell string, bucketStart time.Time, count int, avgSpeed *float64) error {
	start := bucketStart.UTC()
	return s.Store.AppendHistory(ctx, baseline.HistoryRow{
		CellID:       cell,
		BucketTime:   start,
		VehicleCount: count,
		AvgSpeed:     avgSpeed,
		HourOfDay:    start.Hour(),
		DayOfWeek:    mondayWeekday(start),
	})
}

// mondayWeekday numbers weekdays with Monday as 0 and Sunday as 6.
func mondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
