// Package baseline holds a cell's learned "normal" traffic statistics and
// their SQLite persistence.
//
// Two interchangeable representations exist behind one store:
//
//   - EMA form (Stats): running mean and variance per cell, updated once per
//     completed bucket with Update and persisted in cell_baselines.
//   - Percentile form (Percentiles): derived at read time from the
//     append-only bucket_history log over a trailing window.
//
// All read paths degrade to the neutral, uncalibrated zero value when the
// database is unreachable — callers on the scoring path never see an error,
// only a less-informative baseline.
package baseline
