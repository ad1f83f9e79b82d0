package mining

import (
	"io"
	"log/slog"
	"math/rand"
	"starfront-server/internal/catalog"
	"starfront-server/internal/physics"
	"testing"
	"time"
)

func emptyField() *Session {
	return NewSession(Options{
		PlayerID: "p1",
		HexKey:   "1,1",
		Params:   ParamsFrom(catalog.Default().Mining, 1),
		Seed:     1,
		Now:      time.Unix(0, 0),
	})
}

// placeAhead puts an asteroid directly in front of the ship.
func placeAhead(s *Session, size, health int) {
	heading := physics.Heading(s.ship.Rotation)
	s.AddAsteroid(Asteroid{
		ID:        "target",
		Position:  s.ship.Position.Add(heading.Scale(100)),
		Size:      size,
		MineralID: "iron",
		Health:    health,
	})
}

func TestFieldSize(t *testing.T) {
	cases := map[int]int{0: 8, 9: 8, 10: 9, 45: 12, 80: 16, 500: 16}
	for resources, want := range cases {
		if got := FieldSize(resources); got != want {
			t.Fatalf("FieldSize(%d) = %d, want %d", resources, got, want)
		}
	}
}

func TestSpawnField(t *testing.T) {
	s := NewSession(Options{Resources: 30, Params: ParamsFrom(catalog.Default().Mining, 1), Catalog: catalog.Default(), Seed: 5})
	if len(s.asteroids) != 11 {
		t.Fatalf("expected 11 asteroids, got %d", len(s.asteroids))
	}
	for _, a := range s.asteroids {
		if a.Size < 1 || a.Size > MaxAsteroidSize || a.Health != a.Size*SpawnHealthPerSize {
			t.Fatalf("bad asteroid %+v", a)
		}
	}
}

func TestSplitConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for size := 2; size <= MaxAsteroidSize; size++ {
		children, yield := SplitAsteroid(Asteroid{Size: size, MineralID: "iron"}, rng)
		if len(children) != 2 || yield != 0 {
			t.Fatalf("size %d split into %d children, yield %d", size, len(children), yield)
		}
		for _, c := range children {
			if c.Size != size-1 || c.Health != (size-1)*ChildHealthPerSize || c.MineralID != "iron" {
				t.Fatalf("bad child %+v", c)
			}
		}
		if children[0].Position == children[1].Position {
			t.Fatalf("children should be offset apart")
		}
	}

	children, yield := SplitAsteroid(Asteroid{Size: 1}, rng)
	if len(children) != 0 || yield != 1 {
		t.Fatalf("size 1 split gave %d children, yield %d", len(children), yield)
	}
}

func TestSizeThreeTakesTwelveHits(t *testing.T) {
	s := emptyField()
	s.params.AsteroidSpeed = 0
	placeAhead(s, 3, 3*SpawnHealthPerSize)
	s.SetControl(Control{Firing: true})

	for i := 1; i <= 11; i++ {
		s.Step(TickSeconds)
		if len(s.asteroids) != 1 || s.asteroids[0].Health != 12-i {
			t.Fatalf("after %d hits expected health %d", i, 12-i)
		}
	}
	s.Step(TickSeconds)
	if len(s.asteroids) != 2 {
		t.Fatalf("expected split into 2 asteroids on hit 12, got %d", len(s.asteroids))
	}
	for _, a := range s.asteroids {
		if a.Size != 2 {
			t.Fatalf("expected size 2 children, got %d", a.Size)
		}
	}
}

func TestSizeOneYieldsMineral(t *testing.T) {
	s := emptyField()
	s.params.AsteroidSpeed = 0
	placeAhead(s, 1, 1)
	s.SetControl(Control{Firing: true})
	s.Step(TickSeconds)

	if len(s.asteroids) != 0 {
		t.Fatalf("size 1 asteroid should be consumed")
	}
	collected, ok := s.Exit()
	if !ok || collected["iron"] != 1 {
		t.Fatalf("expected 1 iron collected, got %v", collected)
	}
	if _, again := s.Exit(); again {
		t.Fatalf("second exit must be a no-op")
	}
}

func TestLaserEnergyEveryThirdTick(t *testing.T) {
	s := emptyField()
	s.params.EnergyRegen = 0
	s.SetControl(Control{Firing: true})
	start := s.ship.Energy

	for i := 0; i < 6; i++ {
		s.Step(TickSeconds)
	}
	if spent := start - s.ship.Energy; spent != 2*s.params.LaserCost {
		t.Fatalf("six firing ticks should cost two charges, spent %v", spent)
	}
	if !s.laserActive {
		t.Fatalf("laser should be active while firing")
	}
}

func TestLaserNeedsEnergy(t *testing.T) {
	s := emptyField()
	s.params.EnergyRegen = 0
	s.params.AsteroidSpeed = 0
	placeAhead(s, 2, 8)
	s.ship.Energy = s.params.LaserCost / 2
	s.SetControl(Control{Firing: true})
	s.Step(TickSeconds)

	if s.laserActive || s.asteroids[0].Health != 8 {
		t.Fatalf("laser fired without energy")
	}
}

func TestLaserHitsOnlyFirstAsteroid(t *testing.T) {
	s := emptyField()
	s.params.AsteroidSpeed = 0
	placeAhead(s, 2, 8)
	placeAhead(s, 2, 8)
	s.SetControl(Control{Firing: true})
	s.Step(TickSeconds)

	if s.asteroids[0].Health != 7 || s.asteroids[1].Health != 8 {
		t.Fatalf("expected one hit per tick, got %d and %d", s.asteroids[0].Health, s.asteroids[1].Health)
	}
}

func TestLaserIgnoresAsteroidsBehind(t *testing.T) {
	s := emptyField()
	s.params.AsteroidSpeed = 0
	heading := physics.Heading(s.ship.Rotation)
	s.AddAsteroid(Asteroid{Position: s.ship.Position.Sub(heading.Scale(100)), Size: 2, Health: 8})
	s.SetControl(Control{Firing: true})
	s.Step(TickSeconds)

	if s.asteroids[0].Health != 8 {
		t.Fatalf("asteroid behind the ship was hit")
	}
}

func TestDampingSlowsShip(t *testing.T) {
	s := emptyField()
	s.ship.Velocity = physics.Vec2{X: 100}
	s.Step(TickSeconds)
	if s.ship.Velocity.X != 98 {
		t.Fatalf("expected damping to 98, got %v", s.ship.Velocity.X)
	}
}

func TestShipStaysInArena(t *testing.T) {
	s := emptyField()
	s.SetControl(Control{Thrust: 1})
	for i := 0; i < 2000; i++ {
		s.Step(TickSeconds)
		if !s.params.Arena.Contains(s.ship.Position) {
			t.Fatalf("ship left the arena at %+v", s.ship.Position)
		}
	}
}

func TestManagerExit(t *testing.T) {
	m := NewManager(time.Millisecond, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := emptyField()
	s.params.AsteroidSpeed = 0
	placeAhead(s, 1, 1)
	s.SetControl(Control{Firing: true})

	snaps := make(chan Snapshot, 64)
	if err := m.Start(s, func(snap Snapshot) {
		select {
		case snaps <- snap:
		default:
		}
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-snaps:
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot delivered")
	}

	collected, ok := m.Exit(s.ID())
	if !ok || collected["iron"] != 1 {
		t.Fatalf("unexpected exit result %v %v", collected, ok)
	}
	if _, ok := m.Exit(s.ID()); ok {
		t.Fatalf("second exit must be a no-op")
	}
	if s.SetControl(Control{Thrust: 1}) {
		t.Fatalf("control accepted after exit")
	}
}
