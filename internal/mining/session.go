// Package mining is the asteroid field mini-game: drag-damped flight, a mining
// laser and asteroids that break apart into smaller ones.
package mining

import (
	"math"
	"math/rand"
	"starfront-server/internal/catalog"
	"starfront-server/internal/physics"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Options struct {
	PlayerID  string
	HexKey    string
	Resources int
	Params    Params
	Catalog   *catalog.Catalog
	Seed      int64
	Now       time.Time
}

// Session is one player's mining run. All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id        string
	hexKey    string
	playerID  string
	params    Params
	startTime time.Time

	ship        Ship
	control     Control
	asteroids   []*Asteroid
	collected   map[string]int
	laserActive bool
	laserTicks  int
	tick        uint64
	ended       bool
	rng         *rand.Rand
}

func NewSession(opts Options) *Session {
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	params := opts.Params.withDefaults()

	s := &Session{
		id:        uuid.NewString(),
		hexKey:    opts.HexKey,
		playerID:  opts.PlayerID,
		params:    params,
		startTime: opts.Now,
		ship: Ship{
			Position:  params.Arena.Center(),
			Rotation:  -math.Pi / 2,
			Energy:    params.MaxEnergy,
			MaxEnergy: params.MaxEnergy,
		},
		collected: make(map[string]int),
		rng:       rand.New(rand.NewSource(opts.Seed)),
	}
	if opts.Catalog != nil {
		s.spawnField(FieldSize(opts.Resources), opts.Catalog)
	}
	return s
}

// FieldSize is the number of asteroids spawned for a hex with resources.
func FieldSize(resources int) int {
	return min(MaxAsteroids, BaseAsteroids+max(resources, 0)/ResourcesPerAsteroid)
}

func (s *Session) spawnField(count int, cat *catalog.Catalog) {
	arena := s.params.Arena
	for i := 0; i < count; i++ {
		var pos physics.Vec2
		for attempt := 0; attempt < 20; attempt++ {
			pos = physics.Vec2{X: s.rng.Float64() * arena.Width, Y: s.rng.Float64() * arena.Height}
			if pos.Sub(s.ship.Position).Len() >= minSpawnDistance {
				break
			}
		}
		size := 1 + s.rng.Intn(MaxAsteroidSize)
		s.asteroids = append(s.asteroids, &Asteroid{
			ID:        uuid.NewString(),
			Position:  pos,
			Velocity:  physics.Heading(s.rng.Float64() * 2 * math.Pi),
			Size:      size,
			MineralID: cat.PickMineral(s.rng.Float64()).ID,
			Health:    size * SpawnHealthPerSize,
		})
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) PlayerID() string { return s.playerID }

func (s *Session) HexKey() string { return s.hexKey }

func (s *Session) StartTime() time.Time { return s.startTime }

// AddAsteroid places an asteroid in the field.
func (s *Session) AddAsteroid(a Asteroid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.asteroids = append(s.asteroids, &a)
}

// SetControl replaces the control state. Ended sessions return false.
func (s *Session) SetControl(c Control) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return false
	}
	s.control = c.clamped()
	return true
}

func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Step advances the field by dt seconds.
func (s *Session) Step(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.tick++

	p := s.params
	c := s.control
	ship := &s.ship

	ship.Energy = math.Min(ship.MaxEnergy, ship.Energy+p.EnergyRegen*dt)
	ship.Rotation = physics.NormalizeAngle(ship.Rotation + c.Turn*p.TurnRate*dt)

	heading := physics.Heading(ship.Rotation)
	ship.Velocity = ship.Velocity.
		Add(heading.Scale(c.Thrust * p.Acceleration * dt)).
		Add(physics.Lateral(ship.Rotation).Scale(c.Strafe * p.Acceleration * dt))
	ship.Velocity = ship.Velocity.Scale(Damping)
	ship.Position = ship.Position.Add(ship.Velocity.Scale(dt))
	ship.Position, ship.Velocity, _ = p.Arena.Bounce(ship.Position, ship.Velocity, BounceFactor)

	for _, a := range s.asteroids {
		a.Position = a.Position.Add(a.Velocity.Normalize().Scale(p.AsteroidSpeed * dt))
		a.Position, a.Velocity, _ = p.Arena.Bounce(a.Position, a.Velocity, -1)
	}

	s.laserActive = false
	if c.Firing && ship.Energy >= p.LaserCost {
		s.laserActive = true
		s.laserTicks++
		if s.laserTicks%LaserEnergyTicks == 1 {
			ship.Energy -= p.LaserCost
		}
		if target := s.laserTarget(); target >= 0 {
			a := s.asteroids[target]
			a.Health--
			if a.Health <= 0 {
				s.split(target)
			}
		}
	}
}

// laserTarget returns the index of the first asteroid in the beam, or -1.
// Range and beam width grow with asteroid size.
func (s *Session) laserTarget() int {
	heading := physics.Heading(s.ship.Rotation)
	for i, a := range s.asteroids {
		rel := a.Position.Sub(s.ship.Position)
		if rel.Dot(heading) <= 0 {
			continue
		}
		size := float64(a.Size)
		if rel.Len() > LaserBaseRange+size*LaserRangePerSize {
			continue
		}
		perpendicular := math.Abs(rel.X*heading.Y - rel.Y*heading.X)
		if perpendicular > LaserWidthPerSize*size {
			continue
		}
		return i
	}
	return -1
}

func (s *Session) split(index int) {
	a := s.asteroids[index]
	children, yield := SplitAsteroid(*a, s.rng)
	s.asteroids = append(s.asteroids[:index], s.asteroids[index+1:]...)
	if yield > 0 {
		s.collected[a.MineralID] += yield
	}
	for i := range children {
		child := children[i]
		s.asteroids = append(s.asteroids, &child)
	}
}

// SplitAsteroid breaks a destroyed asteroid. Size 1 yields one unit of its
// mineral and no children; larger asteroids yield two children one size
// smaller, pushed apart in opposite directions.
func SplitAsteroid(a Asteroid, rng *rand.Rand) ([]Asteroid, int) {
	if a.Size <= 1 {
		return nil, 1
	}

	newSize := a.Size - 1
	angle := rng.Float64() * 2 * math.Pi
	dir := physics.Heading(angle)
	offset := dir.Scale(childOffsetPerSize * float64(newSize))
	speed := math.Max(a.Velocity.Len(), 1) * childSpeedMultiplier

	spread := func() float64 {
		return childSpreadMin + rng.Float64()*(childSpreadMax-childSpreadMin)
	}

	children := make([]Asteroid, 2)
	for i := range children {
		side := 1.0
		if i == 1 {
			side = -1.0
		}
		children[i] = Asteroid{
			ID:        uuid.NewString(),
			Position:  a.Position.Add(offset.Scale(side)),
			Velocity:  physics.Heading(angle + (1-side)*math.Pi/2 + side*spread()).Scale(speed),
			Size:      newSize,
			MineralID: a.MineralID,
			Health:    newSize * ChildHealthPerSize,
		}
	}
	return children, 0
}

// Exit ends the session and returns what was collected. The bool is false
// when the session had already ended.
func (s *Session) Exit() (map[string]int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil, false
	}
	s.ended = true
	s.control = Control{}
	s.laserActive = false

	out := make(map[string]int, len(s.collected))
	for k, v := range s.collected {
		out[k] = v
	}
	return out, true
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SessionID:   s.id,
		HexKey:      s.hexKey,
		Tick:        s.tick,
		Arena:       s.params.Arena,
		Ship:        s.ship,
		Asteroids:   make([]Asteroid, 0, len(s.asteroids)),
		Collected:   make(map[string]int, len(s.collected)),
		LaserActive: s.laserActive,
		PlayerID:    s.playerID,
	}
	for _, a := range s.asteroids {
		snap.Asteroids = append(snap.Asteroids, *a)
	}
	for k, v := range s.collected {
		snap.Collected[k] = v
	}
	return snap
}
