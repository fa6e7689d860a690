// Package spatial derives opaque cell identifiers from coordinates.
//
// Cells are S2 cells at a fixed level, identified by their token string. The
// congestion core treats tokens as opaque keys; only this package knows they
// are S2 tokens.
package spatial

import "github.com/golang/geo/s2"

// DefaultLevel is the S2 cell level used when none is configured.
// Level 14 cells average roughly 0.4 km², a good match for city-block
// traffic aggregation.
const DefaultLevel = 14

// Grid maps coordinates to cell identifiers at a fixed S2 level.
type Grid struct {
	level int
}

// New returns a Grid at the given S2 level. Levels outside [0, 30] fall back
// to DefaultLevel.
func New(level int) Grid {
	if level < 0 || level > 30 {
		level = DefaultLevel
	}
	return Grid{level: level}
}

// Level returns the grid's S2 level.
func (g Grid) Level() int { return g.level }

// CellOf returns the cell identifier containing (lat, lon). The mapping is
// deterministic and total over valid coordinate ranges.
func (g Grid) CellOf(lat, lon float64) string {
	ll := s2.LatLngFromDegrees(lat, lon)
	return s2.CellIDFromLatLng(ll).Parent(g.level).ToToken()
}

// Neighbors returns all cells within k hops of cell, including cell itself.
// k=0 returns just the center. An unparseable identifier returns only the
// center so callers degrade to a single-cell query.
func (g Grid) Neighbors(cell string, k int) []string {
	center := s2.CellIDFromToken(cell)
	if !center.IsValid() {
		return []string{cell}
	}
	if k < 0 {
		k = 0
	}

	seen := map[s2.CellID]bool{center: true}
	frontier := []s2.CellID{center}
	for hop := 0; hop < k; hop++ {
		var next []s2.CellID
		for _, c := range frontier {
			for _, n := range c.AllNeighbors(g.level) {
				if !seen[n] {
					seen[n] = true
					next = append(next, n)
				}
			}
		}
		frontier = next
	}

	out := make([]string, 0, len(seen))
	out = append(out, cell)
	for c := range seen {
		if c != center {
			out = append(out, c.ToToken())
		}
	}
	return out
}
