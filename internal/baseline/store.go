package baseline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gridpulse/gridpulse/internal/stats"
)

// HistoryRow is one completed bucket appended to the percentile history log.
// Rows are immutable once written.
type HistoryRow struct {
	CellID       string
	BucketTime   time.Time
	VehicleCount int
	AvgSpeed     *float64 // nil when the bucket recorded no speeds
	HourOfDay    int      // 0–23, from the bucket's UTC start
	DayOfWeek    int      // 0=Monday … 6=Sunday
}

// Store persists cell baselines and bucket history in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time // injectable for deterministic tests
}

// Open opens (creating if necessary) the baseline database at path and runs
// the schema migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("baseline: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("baseline: %s: %w", pragma, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS cell_baselines (
			cell_id        TEXT PRIMARY KEY,
			avg_speed      REAL NOT NULL DEFAULT 0,
			avg_count      REAL NOT NULL DEFAULT 0,
			speed_variance REAL NOT NULL DEFAULT 0,
			count_variance REAL NOT NULL DEFAULT 0,
			sample_count   INTEGER NOT NULL DEFAULT 0,
			updated_at     INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bucket_history (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			cell_id       TEXT NOT NULL,
			bucket_time   INTEGER NOT NULL,
			vehicle_count INTEGER NOT NULL,
			avg_speed     REAL,
			hour_of_day   INTEGER NOT NULL,
			day_of_week   INTEGER NOT NULL,
			created_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bucket_history_cell_time
			ON bucket_history (cell_id, bucket_time)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("baseline: migrate: %w", err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Baseline returns the EMA baseline for cellID. A missing row or any read
// failure yields the neutral uncalibrated Stats — connectivity problems are
// logged, never propagated to the scoring path.
func (s *Store) Baseline(ctx context.Context, cellID string) Stats {
	row := s.db.QueryRowContext(ctx,
		`SELECT avg_speed, avg_count, speed_variance, count_variance, sample_count
		   FROM cell_baselines WHERE cell_id = ?`, cellID)

	var st Stats
	err := row.Scan(&st.AvgSpeed, &st.AvgCount, &st.SpeedVariance, &st.CountVariance, &st.SampleCount)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Stats{}
	case err != nil:
		slog.Warn("baseline: read failed — treating cell as uncalibrated",
			"cell", cellID, "err", err)
		return Stats{}
	}
	return st
}

// UpdateBaseline applies fn to the stored baseline for cellID inside one
// transaction and upserts the result. The read-modify-write is serialized by
// the transaction, so concurrent flushes of different buckets cannot lose an
// update.
func (s *Store) UpdateBaseline(ctx context.Context, cellID string, fn func(Stats) Stats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("baseline: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var cur Stats
	row := tx.QueryRowContext(ctx,
		`SELECT avg_speed, avg_count, speed_variance, count_variance, sample_count
		   FROM cell_baselines WHERE cell_id = ?`, cellID)
	err = row.Scan(&cur.AvgSpeed, &cur.AvgCount, &cur.SpeedVariance, &cur.CountVariance, &cur.SampleCount)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("baseline: read %q: %w", cellID, err)
	}

	next := fn(cur)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO cell_baselines
			(cell_id, avg_speed, avg_count, speed_variance, count_variance, sample_count, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cell_id) DO UPDATE SET
			avg_speed      = excluded.avg_speed,
			avg_count      = excluded.avg_count,
			speed_variance = excluded.speed_variance,
			count_variance = excluded.count_variance,
			sample_count   = excluded.sample_count,
			updated_at     = excluded.updated_at`,
		cellID, next.AvgSpeed, next.AvgCount, next.SpeedVariance, next.CountVariance,
		next.SampleCount, s.now().Unix())
	if err != nil {
		return fmt.Errorf("baseline: upsert %q: %w", cellID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("baseline: commit %q: %w", cellID, err)
	}
	return nil
}

// AppendHistory appends one immutable bucket row to the history log.
func (s *Store) AppendHistory(ctx context.Context, row HistoryRow) error {
	var speed interface{}
	if row.AvgSpeed != nil {
		speed = *row.AvgSpeed
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bucket_history
			(cell_id, bucket_time, vehicle_count, avg_speed, hour_of_day, day_of_week, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.CellID, row.BucketTime.UTC().Unix(), row.VehicleCount, speed,
		row.HourOfDay, row.DayOfWeek, s.now().Unix())
	if err != nil {
		return fmt.Errorf("baseline: append history %q: %w", row.CellID, err)
	}
	return nil
}

// HistoryPercentiles derives the percentile baseline for cellID from history
// rows within the trailing window. Any failure yields the neutral
// uncalibrated Percentiles, logged rather than raised.
func (s *Store) HistoryPercentiles(ctx context.Context, cellID string, window time.Duration) Percentiles {
	since := s.now().Add(-window).Unix()

	rows, err := s.db.QueryContext(ctx,
		`SELECT vehicle_count, avg_speed FROM bucket_history
		  WHERE cell_id = ? AND bucket_time >= ?`, cellID, since)
	if err != nil {
		slog.Warn("baseline: history query failed — treating cell as uncalibrated",
			"cell", cellID, "err", err)
		return Percentiles{}
	}
	defer rows.Close()

	var counts, speeds []float64
	for rows.Next() {
		var count int
		var speed sql.NullFloat64
		if err := rows.Scan(&count, &speed); err != nil {
			slog.Warn("baseline: history scan failed", "cell", cellID, "err", err)
			return Percentiles{}
		}
		counts = append(counts, float64(count))
		if speed.Valid {
			speeds = append(speeds, speed.Float64)
		}
	}
	if err := rows.Err(); err != nil {
		slog.Warn("baseline: history rows failed", "cell", cellID, "err", err)
		return Percentiles{}
	}

	p := Percentiles{SampleCount: len(counts)}
	if len(counts) > 0 {
		p75 := stats.Percentile(counts, 75)
		p.CountP75 = &p75
	}
	if len(speeds) > 0 {
		qs := stats.Percentiles(speeds, []float64{25, 50})
		p.SpeedP25, p.SpeedP50 = &qs[0], &qs[1]
	}
	return p
}
