// Package score turns a live (count, average speed) sample and a baseline
// snapshot into a congestion Verdict with a structured explanation.
//
// Two mutually exclusive strategies exist behind the same Verdict shape: a
// z-score comparison against an EMA baseline (ZScorer) and a rank comparison
// against historical percentiles (PercentileScorer). A deployment runs
// exactly one. Both share the absolute-threshold Fallback path for cells
// without enough history.
//
// Scorers are pure functions of their inputs: no store access, no clocks, no
// hidden state.
package score
