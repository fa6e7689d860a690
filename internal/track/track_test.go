package track

import (
	"sync"
	"testing"
	"time"
)

func obs(cell string) Observation {
	return Observation{CellID: cell, VehicleCount: 5, Level: "LOW", Method: "fallback"}
}

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestPutAndGet(t *testing.T) {
	st := New(5 * time.Minute)
	st.Put(obs("cell-1"))

	e, ok := st.Get("cell-1")
	if !ok {
		t.Fatal("Get: expected entry, got none")
	}
	if e.Obs.CellID != "cell-1" {
		t.Errorf("CellID: got %q, want cell-1", e.Obs.CellID)
	}
}

func TestGet_Missing(t *testing.T) {
	st := New(5 * time.Minute)
	_, ok := st.Get("unknown")
	if ok {
		t.Fatal("Get on empty store: expected false, got true")
	}
}

func TestPut_Overwrites(t *testing.T) {
	st := New(5 * time.Minute)
	o1 := obs("cell")
	o1.Level = "LOW"
	o2 := obs("cell")
	o2.Level = "HIGH"

	st.Put(o1)
	st.Put(o2)

	e, ok := st.Get("cell")
	if !ok {
		t.Fatal("Get: expected entry after two Puts")
	}
	if e.Obs.Level != "HIGH" {
		t.Errorf("Level: got %q, want HIGH", e.Obs.Level)
	}
}

func TestList_ExcludesStale(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	// Put two entries at different times.
	st.now = fixedClock(base.Add(-10 * time.Minute)) // stale
	st.Put(obs("old"))

	st.now = fixedClock(base) // live
	st.Put(obs("new"))

	// List uses current time = base.
	st.now = fixedClock(base)
	entries := st.List()

	if len(entries) != 1 {
		t.Fatalf("List: got %d entries, want 1", len(entries))
	}
	if entries[0].Obs.CellID != "new" {
		t.Errorf("List[0].CellID: got %q, want new", entries[0].Obs.CellID)
	}
}

func TestCount_IncludesStale(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Put(obs("old"))

	st.now = fixedClock(base)
	st.Put(obs("new"))

	if n := st.Count(); n != 2 {
		t.Errorf("Count: got %d, want 2", n)
	}
}

func TestEvict_RemovesStale(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Put(obs("old1"))
	st.Put(obs("old2"))

	st.now = fixedClock(base)
	st.Put(obs("live"))

	removed := st.Evict(base)
	if removed != 2 {
		t.Errorf("Evict: removed %d, want 2", removed)
	}
	if st.Count() != 1 {
		t.Errorf("Count after evict: got %d, want 1", st.Count())
	}
}

func TestEvict_NoOp_AllLive(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	st.now = fixedClock(base)
	st.Put(obs("cell"))

	removed := st.Evict(base)
	if removed != 0 {
		t.Errorf("Evict on live entry: removed %d, want 0", removed)
	}
}

func TestConcurrentPuts(t *testing.T) {
	st := New(5 * time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Put(obs("concurrent"))
		}()
	}
	wg.Wait()

	// Should have exactly one entry (all same cell ID).
	if st.Count() != 1 {
		t.Errorf("Count after concurrent puts: got %d, want 1", st.Count())
	}
}

func TestConcurrentMixedOps(t *testing.T) {
	st := New(5 * time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			st.Put(obs("cell-a"))
		}()
		go func() {
			defer wg.Done()
			st.List()
		}()
	}
	wg.Wait()
}
