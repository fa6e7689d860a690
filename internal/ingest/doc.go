// Package ingest is the pipeline core: it maps pings to (cell, bucket),
// feeds the live aggregator, scores congestion through the active baseline
// strategy, and flushes completed buckets into the baseline exactly once.
//
// Baseline maintenance is piggybacked on traffic: each accepted ping checks
// whether the cell's previous bucket still needs flushing. A cell nobody
// reports from learns nothing, which is the intended behavior.
package ingest
