// Package combat is the real-time ship combat engine: fixed-step flight
// physics, projectiles, AI pilots and encounter end conditions.
package combat

import (
	"math"
	"math/rand"
	"starfront-server/internal/physics"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Options struct {
	Type       Type
	InvasionID string
	HexKey     string
	Joinable   bool
	Duration   float64 // seconds; zero means DefaultDuration
	Arena      physics.Bounds
	Seed       int64
	Now        time.Time
}

// Session is one encounter. All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id         string
	kind       Type
	invasionID string
	hexKey     string
	arena      physics.Bounds
	startTime  time.Time
	duration   float64
	joinable   bool

	ships       []*ShipState
	byID        map[string]*ShipState
	sides       []string
	projectiles []*Projectile
	casualties  []Casualty

	elapsed float64
	tick    uint64
	ended   bool
	result  Result
	rng     *rand.Rand
}

func NewSession(opts Options, ships []*ShipState) *Session {
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Arena.Width <= 0 || opts.Arena.Height <= 0 {
		opts.Arena = physics.Bounds{Width: ArenaWidth, Height: ArenaHeight}
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	s := &Session{
		id:         uuid.NewString(),
		kind:       opts.Type,
		invasionID: opts.InvasionID,
		hexKey:     opts.HexKey,
		arena:      opts.Arena,
		startTime:  opts.Now,
		duration:   opts.Duration,
		joinable:   opts.Joinable,
		byID:       make(map[string]*ShipState, len(ships)),
		rng:        rand.New(rand.NewSource(opts.Seed)),
	}
	for _, ship := range ships {
		s.addShip(ship)
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Type() Type { return s.kind }

func (s *Session) InvasionID() string { return s.invasionID }

func (s *Session) HexKey() string { return s.hexKey }

func (s *Session) StartTime() time.Time { return s.startTime }

// addShip places ship at its side's spawn column. Caller holds mu.
func (s *Session) addShip(ship *ShipState) {
	sideIndex := -1
	for i, side := range s.sides {
		if side == ship.Side {
			sideIndex = i
			break
		}
	}
	if sideIndex < 0 {
		s.sides = append(s.sides, ship.Side)
		sideIndex = len(s.sides) - 1
	}

	slot := 0
	for _, other := range s.ships {
		if other.Side == ship.Side {
			slot++
		}
	}

	y := s.arena.Height/2 + float64((slot+1)/2)*spawnSpacing*float64(1-2*(slot%2))
	y = physics.Clamp(y, spawnMargin/2, s.arena.Height-spawnMargin/2)
	if sideIndex%2 == 0 {
		ship.Position = physics.Vec2{X: spawnMargin, Y: y}
		ship.Rotation = 0
	} else {
		ship.Position = physics.Vec2{X: s.arena.Width - spawnMargin, Y: y}
		ship.Rotation = math.Pi
	}
	if ship.Cooldowns == nil {
		ship.Cooldowns = make(map[string]float64)
	}

	s.ships = append(s.ships, ship)
	s.byID[ship.ID] = ship
}

// AddShip lets a late ally join a joinable encounter.
func (s *Session) AddShip(ship *ShipState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || !s.joinable {
		return false
	}
	if _, exists := s.byID[ship.ID]; exists {
		return false
	}
	s.addShip(ship)
	return true
}

func (s *Session) Joinable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joinable && !s.ended
}

func (s *Session) HasShip(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byID[id]
	return ok
}

func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Participants returns the ids of every human ship.
func (s *Session) Participants() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participants()
}

func (s *Session) participants() []string {
	var out []string
	for _, ship := range s.ships {
		if ship.Kind == KindHuman {
			out = append(out, ship.ID)
		}
	}
	return out
}

// ApplyControl replaces the control state of a human ship. Unknown ships,
// dead ships and ended sessions return false.
func (s *Session) ApplyControl(shipID string, c Control) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return false
	}
	ship, ok := s.byID[shipID]
	if !ok || !ship.Alive() || ship.Kind != KindHuman {
		return false
	}
	ship.Control = c.clamped()
	return true
}

// Fire shoots weaponID (the primary weapon when empty) from shipID.
func (s *Session) Fire(shipID, weaponID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return false
	}
	ship, ok := s.byID[shipID]
	if !ok || !ship.Alive() {
		return false
	}
	return s.fire(ship, weaponID)
}

func (s *Session) fire(ship *ShipState, weaponID string) bool {
	w, ok := ship.Stats.weapon(weaponID)
	if !ok {
		return false
	}
	if _, cooling := ship.Cooldowns[w.ID]; cooling {
		return false
	}
	if ship.Energy < w.EnergyCost {
		return false
	}

	heading := physics.Heading(ship.Rotation)
	s.projectiles = append(s.projectiles, &Projectile{
		ID:       uuid.NewString(),
		OwnerID:  ship.ID,
		WeaponID: w.ID,
		Position: ship.Position.Add(heading.Scale(muzzleOffset)),
		Velocity: heading.Scale(w.ProjectileSpeed),
		Damage:   w.Damage * ship.Stats.DamageMultiplier,
		Lifetime: w.Lifetime(),
		side:     ship.Side,
	})

	cooldown := w.Cooldown
	if ship.Kind.IsAI() {
		cooldown *= AICooldownMultiplier
	}
	if cooldown > 0 {
		ship.Cooldowns[w.ID] = cooldown
	}
	ship.Energy -= w.EnergyCost
	return true
}

// Forfeit destroys a ship whose pilot left. The session ends on the next step
// if that decides it.
func (s *Session) Forfeit(shipID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return false
	}
	ship, ok := s.byID[shipID]
	if !ok || !ship.Alive() {
		return false
	}
	s.destroy(ship, "")
	return true
}

func (s *Session) destroy(ship *ShipState, killedBy string) {
	ship.Health = 0
	ship.Control = Control{}
	ship.Velocity = physics.Vec2{}
	s.casualties = append(s.casualties, Casualty{
		ShipID:   ship.ID,
		Kind:     ship.Kind,
		Side:     ship.Side,
		KilledBy: killedBy,
	})
}

// Step advances the simulation by dt seconds. The second return value is true
// only for the step that ended the session.
func (s *Session) Step(dt float64) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return s.result, false
	}

	s.tick++
	s.elapsed += dt

	for _, ship := range s.ships {
		if ship.Alive() && ship.Kind.IsAI() {
			s.think(ship, dt)
		}
	}
	for _, ship := range s.ships {
		if ship.Alive() {
			s.stepShip(ship, dt)
		}
	}
	s.stepProjectiles(dt)

	if winner, over := s.decide(); over {
		s.end(winner, ReasonElimination)
		return s.result, true
	}
	if s.elapsed >= s.duration {
		s.end("", ReasonTimeout)
		return s.result, true
	}
	return Result{}, false
}

func (s *Session) stepShip(ship *ShipState, dt float64) {
	c := ship.Control
	accel := ship.Stats.Acceleration
	maxSpeed := ship.Stats.MaxSpeed

	ship.Boosting = c.Boost && ship.Energy >= BoostMinEnergy
	if ship.Boosting {
		accel *= BoostAccelMultiplier
		maxSpeed *= BoostSpeedMultiplier
	}
	ship.CurrentMaxSpeed = maxSpeed

	ship.AngularVelocity = c.Turn * ship.Stats.TurnRate
	ship.Rotation = physics.NormalizeAngle(ship.Rotation + ship.AngularVelocity*dt)

	if c.Strafe != 0 {
		lateral := physics.Lateral(ship.Rotation)
		ship.Velocity = ship.Velocity.Add(lateral.Scale(c.Strafe * accel * StrafeMultiplier * dt))
	}
	if c.Thrust != 0 {
		heading := physics.Heading(ship.Rotation)
		ship.Velocity = ship.Velocity.Add(heading.Scale(c.Thrust * accel * dt))
	}

	ship.Position = ship.Position.Add(ship.Velocity.Scale(dt))
	ship.Velocity = physics.ClampSpeed(ship.Velocity, maxSpeed)
	ship.Position, ship.Velocity, _ = s.arena.Bounce(ship.Position, ship.Velocity, BounceFactor)

	regen := ship.Stats.EnergyRegen
	if ship.Kind.IsAI() {
		regen *= BotRegenMultiplier
	}
	ship.Energy += regen * dt
	if ship.Boosting {
		ship.Energy -= BoostDrain * dt
	}
	ship.Energy = physics.Clamp(ship.Energy, 0, ship.Stats.MaxEnergy)

	for id, left := range ship.Cooldowns {
		left -= dt
		if left <= 0 {
			delete(ship.Cooldowns, id)
		} else {
			ship.Cooldowns[id] = left
		}
	}
}

func (s *Session) stepProjectiles(dt float64) {
	live := s.projectiles[:0]
	for _, p := range s.projectiles {
		p.Position = p.Position.Add(p.Velocity.Scale(dt))
		p.Lifetime -= dt
		if p.Lifetime <= 0 || !s.arena.Contains(p.Position) {
			continue
		}
		if s.hit(p) {
			continue
		}
		live = append(live, p)
	}
	for i := len(live); i < len(s.projectiles); i++ {
		s.projectiles[i] = nil
	}
	s.projectiles = live
}

// hit applies p to the first enemy ship within HitRadius. The owner and ships
// on the owner's side are never hit.
func (s *Session) hit(p *Projectile) bool {
	for _, ship := range s.ships {
		if !ship.Alive() || ship.ID == p.OwnerID || ship.Side == p.side {
			continue
		}
		if ship.Position.Sub(p.Position).Len() > HitRadius {
			continue
		}
		ship.Health -= p.Damage
		if ship.Health <= 0 {
			s.destroy(ship, p.OwnerID)
		}
		return true
	}
	return false
}

// decide reports whether the encounter is over by elimination and which side
// won.
func (s *Session) decide() (string, bool) {
	alive := make(map[string]int)
	for _, ship := range s.ships {
		if ship.Alive() {
			alive[ship.Side]++
		}
	}

	if s.kind == TypeInvasion {
		switch {
		case alive[SideDefenders] == 0:
			return SideInvaders, true
		case alive[SideInvaders] == 0:
			return SideDefenders, true
		}
		return "", false
	}

	switch len(alive) {
	case 0:
		return "", true
	case 1:
		for side := range alive {
			return side, true
		}
	}
	return "", false
}

// Finish ends the session now with no winner. The second return value is
// false when the session had already ended.
func (s *Session) Finish(reason EndReason) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return s.result, false
	}
	s.end("", reason)
	return s.result, true
}

func (s *Session) end(winner string, reason EndReason) {
	s.ended = true
	s.joinable = false
	s.projectiles = nil

	result := Result{
		SessionID:  s.id,
		Type:       s.kind,
		InvasionID: s.invasionID,
		HexKey:     s.hexKey,
		Winner:     winner,
		Reason:     reason,
		Elapsed:    s.elapsed,
		Casualties: append([]Casualty(nil), s.casualties...),
	}
	for _, ship := range s.ships {
		result.Ships = append(result.Ships, ShipOutcome{
			ID:        ship.ID,
			Kind:      ship.Kind,
			Side:      ship.Side,
			Health:    math.Max(ship.Health, 0),
			MaxHealth: ship.Stats.MaxHealth,
			Alive:     ship.Alive(),
		})
	}
	s.result = result
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SessionID:    s.id,
		Type:         s.kind,
		Tick:         s.tick,
		Elapsed:      s.elapsed,
		Remaining:    math.Max(0, s.duration-s.elapsed),
		Arena:        s.arena,
		Joinable:     s.joinable && !s.ended,
		Ended:        s.ended,
		Ships:        make([]ShipSnapshot, 0, len(s.ships)),
		Projectiles:  make([]Projectile, 0, len(s.projectiles)),
		Participants: s.participants(),
	}
	for _, ship := range s.ships {
		snap.Ships = append(snap.Ships, ShipSnapshot{
			ID:        ship.ID,
			Name:      ship.Name,
			Kind:      ship.Kind,
			Side:      ship.Side,
			Position:  ship.Position,
			Velocity:  ship.Velocity,
			Rotation:  ship.Rotation,
			Health:    ship.Health,
			MaxHealth: ship.Stats.MaxHealth,
			Energy:    ship.Energy,
			MaxEnergy: ship.Stats.MaxEnergy,
			Boosting:  ship.Boosting,
			Alive:     ship.Alive(),
		})
	}
	for _, p := range s.projectiles {
		snap.Projectiles = append(snap.Projectiles, *p)
	}
	return snap
}

// BotCount scales "fight a bot" encounters with the hostility of the hex.
func BotCount(threat float64) int {
	if threat > 0 {
		return 1
	}
	n := 1 + int(math.Round(-threat*2))
	return min(max(n, 1), 3)
}
