// Package api exposes the REST surface: ping ingestion, congestion queries,
// cell and alert listings, and the health probe. All responses are JSON.
package api
