package ingest

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/gridpulse/gridpulse/internal/alerts"
	"github.com/gridpulse/gridpulse/internal/bucket"
	"github.com/gridpulse/gridpulse/internal/events"
	"github.com/gridpulse/gridpulse/internal/live"
	"github.com/gridpulse/gridpulse/internal/metrics"
	"github.com/gridpulse/gridpulse/internal/score"
	"github.com/gridpulse/gridpulse/internal/spatial"
	"github.com/gridpulse/gridpulse/internal/track"
)

// Ping is one accepted device report.
type Ping struct {
	DeviceID  string
	Lat       float64
	Lon       float64
	SpeedKmh  *float64
	Timestamp time.Time // zero means "now"
}

// PingResult is the acknowledgement returned to the reporting device.
type PingResult struct {
	CellID        string        `json:"cell_id"`
	Bucket        bucket.Bucket `json:"bucket"`
	UniqueDevices int64         `json:"unique_devices"`
}

// CellCongestion is the scored state of one cell's current bucket.
type CellCongestion struct {
	CellID       string        `json:"cell_id"`
	Bucket       bucket.Bucket `json:"bucket"`
	VehicleCount int           `json:"vehicle_count"`
	AvgSpeedKmh  *float64      `json:"avg_speed_kmh,omitempty"`
	Level        string        `json:"level"`
	Debug        score.Debug   `json:"debug"`
}

// AreaCell is one cell's contribution to an area query.
type AreaCell struct {
	CellID       string `json:"cell_id"`
	VehicleCount int    `json:"vehicle_count"`
	Level        string `json:"level"`
}

// AreaCongestion is the rolled-up state of a cell neighborhood.
type AreaCongestion struct {
	CenterCell         string     `json:"center_cell"`
	Bucket             bucket.Bucket `json:"bucket"`
	Cells              []AreaCell `json:"cells"`
	TotalVehicles      int        `json:"total_vehicles"`
	AvgVehiclesPerCell float64    `json:"avg_vehicles_per_cell"`
	Level              string     `json:"level"`
}

// Service wires the ingestion and query pipeline: spatial bucketing, live
// aggregation, strategy scoring, baseline flushing, and the event/alert/track
// side channels.
type Service struct {
	grid     spatial.Grid
	agg      *live.Aggregator
	strategy Strategy
	pub      events.Publisher
	tracker  *track.Store
	alerts   *alerts.Engine
	now      func() time.Time // injectable for deterministic tests
}

// New assembles a Service. pub, tracker, and alertEngine may be nil; the
// corresponding side channels are then skipped.
func New(grid spatial.Grid, agg *live.Aggregator, strategy Strategy, pub events.Publisher, tracker *track.Store, alertEngine *alerts.Engine) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		grid:     grid,
		agg:      agg,
		strategy: strategy,
		pub:      pub,
		tracker:  tracker,
		alerts:   alertEngine,
		now:      time.Now,
	}
}

// RecordPing folds one device report into its cell's current bucket and
// returns the acknowledgement. Duplicate reports from the same device in the
// same bucket are acknowledged but do not grow the count.
//
// As a side effect the previous bucket of the touched cell is flushed into
// the baseline if it has not been already — activity drives baseline
// maintenance, there is no scheduler.
func (s *Service) RecordPing(ctx context.Context, p Ping) PingResult {
	ts := p.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	cell := s.grid.CellOf(p.Lat, p.Lon)
	b := bucket.At(ts)

	n := s.agg.Record(ctx, cell, b, p.DeviceID, p.SpeedKmh)
	metrics.UniqueDevicesPerBucket.WithLabelValues(cell).Set(float64(n))

	s.flushPrevious(ctx, cell, b)

	ev := events.NewEvent(events.TypePingReceived, cell)
	ev.DeviceID = p.DeviceID
	s.pub.Publish(ctx, ev)

	if n >= int64(score.FallbackCountHigh) {
		hc := events.NewEvent(events.TypeHighCongestion, cell)
		hc.VehicleCount = int(n)
		hc.Level = score.LevelHigh
		s.pub.Publish(ctx, hc)
	}

	return PingResult{CellID: cell, Bucket: b, UniqueDevices: n}
}

// flushPrevious folds the previous bucket of cell into the baseline, at most
// once per (cell, bucket). Empty buckets are skipped without claiming the
// marker. A failed flush is logged and dropped; the bucket's aggregate
// expires unconsumed and the baseline simply sees one fewer sample.
func (s *Service) flushPrevious(ctx context.Context, cell string, b bucket.Bucket) {
	prev := b.Prev()

	count, avgSpeed := s.agg.Read(ctx, cell, prev)
	if count == 0 {
		return
	}
	if !s.agg.MarkFlushed(ctx, cell, prev) {
		return
	}

	if err := s.strategy.Flush(ctx, cell, prev.Start(), int(count), avgSpeed); err != nil {
		metrics.BaselineFlushes.WithLabelValues("error").Inc()
		slog.Warn("ingest: baseline flush failed — bucket dropped",
			"cell", cell, "bucket", prev, "strategy", s.strategy.Name(), "err", err)
		return
	}
	metrics.BaselineFlushes.WithLabelValues("ok").Inc()
	slog.Debug("ingest: bucket flushed",
		"cell", cell, "bucket", prev, "count", count, "strategy", s.strategy.Name())
}

// Congestion scores the current bucket of the cell containing (lat, lon).
func (s *Service) Congestion(ctx context.Context, lat, lon float64) CellCongestion {
	cell := s.grid.CellOf(lat, lon)
	b := bucket.At(s.now())

	count, avgSpeed := s.agg.Read(ctx, cell, b)
	v := s.strategy.Score(ctx, cell, int(count), avgSpeed)

	metrics.CongestionLevels.WithLabelValues(v.Level).Inc()

	if s.tracker != nil {
		s.tracker.Put(track.Observation{
			CellID:       cell,
			VehicleCount: int(count),
			AvgSpeedKmh:  avgSpeed,
			Level:        v.Level,
			Method:       v.Debug.Method,
			Bucket:       b,
		})
	}
	if s.alerts != nil {
		s.alerts.Evaluate(alerts.Observation{
			CellID:       cell,
			VehicleCount: int(count),
			AvgSpeedKmh:  avgSpeed,
			Level:        v.Level,
			CombinedZ:    v.Debug.CombinedZ,
			SampleCount:  v.Debug.SampleCount,
		})
	}

	return CellCongestion{
		CellID:       cell,
		Bucket:       b,
		VehicleCount: int(count),
		AvgSpeedKmh:  avgSpeed,
		Level:        v.Level,
		Debug:        v.Debug,
	}
}

// CongestionArea surveys the neighborhood within k hops of the cell
// containing (lat, lon). Per-cell levels use the absolute count thresholds
// rather than per-cell baselines to keep a wide scan to one cheap read per
// cell.
func (s *Service) CongestionArea(ctx context.Context, lat, lon float64, k int) AreaCongestion {
	center := s.grid.CellOf(lat, lon)
	b := bucket.At(s.now())
	cellIDs := s.grid.Neighbors(center, k)

	cells := make([]AreaCell, 0, len(cellIDs))
	total := 0
	high := 0
	for _, id := range cellIDs {
		count := int(s.agg.CountOnly(ctx, id, b))
		level := score.LevelLow
		switch {
		case count >= score.FallbackCountHigh:
			level = score.LevelHigh
			high++
		case count >= score.FallbackCountModerate:
			level = score.LevelModerate
		}
		total += count
		cells = append(cells, AreaCell{CellID: id, VehicleCount: count, Level: level})
	}

	sort.Slice(cells, func(i, j int) bool {
		if cells[i].VehicleCount != cells[j].VehicleCount {
			return cells[i].VehicleCount > cells[j].VehicleCount
		}
		return cells[i].CellID < cells[j].CellID
	})

	avg := 0.0
	if len(cells) > 0 {
		avg = float64(total) / float64(len(cells))
	}

	level := score.LevelLow
	switch {
	case avg >= float64(score.FallbackCountHigh) || high >= 3:
		level = score.LevelHigh
	case avg >= float64(score.FallbackCountModerate) || high >= 1:
		level = score.LevelModerate
	}

	return AreaCongestion{
		CenterCell:         center,
		Bucket:             b,
		Cells:              cells,
		TotalVehicles:      total,
		AvgVehiclesPerCell: avg,
		Level:              level,
	}
}
