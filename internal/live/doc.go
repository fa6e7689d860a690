// Package live accumulates the current bucket's traffic per cell: the set of
// unique devices seen and their reported speeds.
//
// State lives in an external ephemeral store (Redis in production, an
// in-process TTL map otherwise) and expires on its own — the aggregator never
// deletes anything explicitly. Store failures degrade to empty reads and
// acknowledged-but-uncounted writes; they never propagate to callers.
package live
