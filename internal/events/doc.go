// Package events publishes the congestion event feed: a ping_received event
// for every accepted ping and a high_congestion event when a cell crosses the
// high-count threshold.
//
// The primary sink is a length-capped Redis stream; a Kafka topic can mirror
// it. All sinks are best-effort: a failed publish is logged and the ping that
// caused it still succeeds.
package events
