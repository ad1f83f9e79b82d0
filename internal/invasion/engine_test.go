package invasion

import (
	"io"
	"log/slog"
	"starfront-server/internal/hexmap"
	"testing"
	"time"
)

func newTestEngine() *Engine {
	return NewEngine(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStartIsIdempotentPerSource(t *testing.T) {
	e := newTestEngine()
	now := time.Unix(0, 0)

	s := e.Start(hexmap.Coord{Q: 4, R: 4}, now, nil)
	if s == nil {
		t.Fatalf("expected invasion")
	}
	if e.Start(hexmap.Coord{Q: 4, R: 4}, now, nil) != nil {
		t.Fatalf("second start at the same source must be a no-op")
	}
	if len(e.Active()) != 1 {
		t.Fatalf("expected one active invasion")
	}
}

func TestClearScenario(t *testing.T) {
	e := newTestEngine()
	s := e.Start(hexmap.Coord{Q: 0, R: 0}, time.Unix(0, 0), nil)

	if len(s.NeighborHexKeys) != 6 {
		t.Fatalf("expected 6 neighbors, got %d", len(s.NeighborHexKeys))
	}
	for _, k := range s.NeighborHexKeys {
		if s.EnemyCountPerHex[k] != EnemiesPerHex {
			t.Fatalf("hex %s starts with %d enemies", k, s.EnemyCountPerHex[k])
		}
	}

	clearedTransitions := 0
	for _, k := range s.NeighborHexKeys {
		for i := 0; i < EnemiesPerHex; i++ {
			wasCleared := e.IsCleared(s.ID)
			e.Decrement(s.ID, k, 1)
			if !wasCleared && e.IsCleared(s.ID) {
				clearedTransitions++
			}
		}
	}
	if clearedTransitions != 1 {
		t.Fatalf("expected exactly one cleared transition, got %d", clearedTransitions)
	}

	cleared, ok := e.Clear(s.SourceHexKey)
	if !ok || cleared.Phase != PhaseCleared {
		t.Fatalf("expected cleared phase, got %+v", cleared)
	}
	if len(e.Active()) != 0 {
		t.Fatalf("cleared invasion still active")
	}
	if _, ok := e.Clear(s.SourceHexKey); ok {
		t.Fatalf("second clear must be a no-op")
	}
	if e.Start(hexmap.Coord{}, time.Unix(1, 0), nil) == nil {
		t.Fatalf("a new invasion may start once the old one cleared")
	}
}

func TestCountsFloorAndCap(t *testing.T) {
	e := newTestEngine()
	s := e.Start(hexmap.Coord{Q: 2, R: -1}, time.Unix(0, 0), nil)
	hex := s.NeighborHexKeys[0]

	if n, _ := e.Decrement(s.ID, hex, 10); n != 0 {
		t.Fatalf("count should floor at 0, got %d", n)
	}
	if n, _ := e.Increment(s.ID, hex, 10); n != EnemiesPerHex {
		t.Fatalf("count should cap at %d, got %d", EnemiesPerHex, n)
	}
	if _, ok := e.Increment(s.ID, "99,99", 1); ok {
		t.Fatalf("increment on foreign hex must be rejected")
	}
	if _, ok := e.Decrement("missing", hex, 1); ok {
		t.Fatalf("decrement on unknown invasion must be rejected")
	}
}

func TestLookupsDoNotCollide(t *testing.T) {
	e := newTestEngine()
	a := e.Start(hexmap.Coord{Q: 0, R: 0}, time.Unix(0, 0), nil)
	b := e.Start(hexmap.Coord{Q: 2, R: 0}, time.Unix(1, 0), nil)

	shared := hexmap.Coord{Q: 1, R: 0}.Key()
	touching := e.ByHex(shared)
	if len(touching) != 2 {
		t.Fatalf("expected both invasions at %s, got %d", shared, len(touching))
	}

	if got, ok := e.BySource(b.SourceHexKey); !ok || got.ID != b.ID {
		t.Fatalf("BySource returned wrong invasion")
	}
	if got, ok := e.Get(a.ID); !ok || got.SourceHexKey != a.SourceHexKey {
		t.Fatalf("Get returned wrong invasion")
	}

	e.Clear(a.SourceHexKey)
	if touching := e.ByHex(shared); len(touching) != 1 || touching[0].ID != b.ID {
		t.Fatalf("clearing one invasion must leave the other indexed")
	}
}

func TestRestore(t *testing.T) {
	e := newTestEngine()
	s := e.Start(hexmap.Coord{Q: 3, R: 3}, time.Unix(0, 0), nil)
	snapshot := e.Active()

	other := newTestEngine()
	cleared := snapshot[0].Clone()
	cleared.ID = "old"
	cleared.SourceHexKey = "9,9"
	cleared.Phase = PhaseCleared
	other.Restore(append(snapshot, cleared))

	if len(other.Active()) != 1 {
		t.Fatalf("expected one restored invasion")
	}
	if got, ok := other.BySource(s.SourceHexKey); !ok || got.ID != s.ID {
		t.Fatalf("restored invasion not indexed by source")
	}
	if len(other.ByHex(s.NeighborHexKeys[2])) != 1 {
		t.Fatalf("restored invasion not indexed by neighbor")
	}
}

func TestStartSkipsOffMapNeighbors(t *testing.T) {
	e := newTestEngine()
	m := hexmap.Generate(2, 1, nil)
	edge := hexmap.Coord{Q: 2, R: 0}

	s := e.Start(edge, time.Unix(0, 0), m.Has)
	if len(s.NeighborHexKeys) != 3 || len(s.EnemyCountPerHex) != 3 {
		t.Fatalf("corner hex has 3 on-map neighbors, got %v", s.NeighborHexKeys)
	}
	for _, k := range s.NeighborHexKeys {
		c, _ := hexmap.ParseKey(k)
		if !m.Has(c) {
			t.Fatalf("off-map hex %s seeded with invaders", k)
		}
	}

	for _, k := range s.NeighborHexKeys {
		e.Decrement(s.ID, k, EnemiesPerHex)
	}
	if !e.IsCleared(s.ID) {
		t.Fatalf("clearing every on-map neighbor must clear the invasion")
	}
}
