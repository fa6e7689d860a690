// Package ws pushes the live cell map to dashboard clients over WebSocket on
// a fixed broadcast interval.
package ws
