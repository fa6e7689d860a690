// Package track keeps the most recent scored observation per cell in memory,
// with TTL eviction. It backs the cells listing endpoint and the WebSocket
// dashboard feed; the durable record of every bucket lives in the baseline
// store, not here.
package track
