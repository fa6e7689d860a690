package spatial

import "testing"

func TestCellOf_Deterministic(t *testing.T) {
	g := New(DefaultLevel)

	a := g.CellOf(52.5200, 13.4050)
	b := g.CellOf(52.5200, 13.4050)
	if a != b {
		t.Errorf("same coordinates mapped to %q and %q", a, b)
	}
	if a == "" {
		t.Fatal("CellOf returned an empty identifier")
	}
}

func TestCellOf_NearbyPointsShareCell(t *testing.T) {
	g := New(DefaultLevel)

	// ~1 m apart — far below level-14 cell size.
	a := g.CellOf(52.52000, 13.40500)
	b := g.CellOf(52.52001, 13.40500)
	if a != b {
		t.Errorf("adjacent points split: %q vs %q", a, b)
	}
}

func TestCellOf_DistantPointsDiffer(t *testing.T) {
	g := New(DefaultLevel)

	if g.CellOf(52.52, 13.40) == g.CellOf(48.85, 2.35) {
		t.Error("Berlin and Paris mapped to the same cell")
	}
}

func TestNew_InvalidLevelFallsBack(t *testing.T) {
	for _, level := range []int{-1, 31, 100} {
		if g := New(level); g.Level() != DefaultLevel {
			t.Errorf("New(%d).Level: got %d, want %d", level, g.Level(), DefaultLevel)
		}
	}
}

func TestNeighbors_ZeroHops(t *testing.T) {
	g := New(DefaultLevel)
	cell := g.CellOf(52.52, 13.40)

	got := g.Neighbors(cell, 0)
	if len(got) != 1 || got[0] != cell {
		t.Errorf("Neighbors(k=0): got %v, want just %q", got, cell)
	}
}

func TestNeighbors_OneHop(t *testing.T) {
	g := New(DefaultLevel)
	cell := g.CellOf(52.52, 13.40)

	got := g.Neighbors(cell, 1)
	if got[0] != cell {
		t.Errorf("Neighbors[0]: got %q, want the center %q", got[0], cell)
	}
	// A level-14 cell has 8 edge and corner neighbors.
	if len(got) != 9 {
		t.Errorf("Neighbors(k=1): got %d cells, want 9", len(got))
	}
	seen := make(map[string]bool, len(got))
	for _, c := range got {
		if seen[c] {
			t.Errorf("duplicate cell %q in neighborhood", c)
		}
		seen[c] = true
	}
}

func TestNeighbors_GrowsWithHops(t *testing.T) {
	g := New(DefaultLevel)
	cell := g.CellOf(52.52, 13.40)

	k1 := len(g.Neighbors(cell, 1))
	k2 := len(g.Neighbors(cell, 2))
	if k2 <= k1 {
		t.Errorf("Neighbors(k=2) has %d cells, not more than k=1's %d", k2, k1)
	}
}

func TestNeighbors_InvalidCell(t *testing.T) {
	g := New(DefaultLevel)

	got := g.Neighbors("not-a-token", 2)
	if len(got) != 1 || got[0] != "not-a-token" {
		t.Errorf("Neighbors(invalid): got %v, want the input alone", got)
	}
}
