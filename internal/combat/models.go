package combat

import (
	"starfront-server/internal/catalog"
	"starfront-server/internal/physics"
	"starfront-server/internal/player"
)

type Type string

const (
	TypePvP      Type = "pvp"
	TypeBot      Type = "bot"
	TypeInvasion Type = "invasion"
)

// ControllerKind selects who drives a ship and which stat multipliers apply.
type ControllerKind string

const (
	KindHuman   ControllerKind = "human"
	KindBot     ControllerKind = "bot"
	KindInvader ControllerKind = "invader"
)

func (k ControllerKind) IsAI() bool {
	return k == KindBot || k == KindInvader
}

// Side names used by bot and invasion encounters. PvP ships use their
// player id as side.
const (
	SidePlayers   = "players"
	SideBots      = "bots"
	SideDefenders = "defenders"
	SideInvaders  = "invaders"
)

type EndReason string

const (
	ReasonElimination EndReason = "elimination"
	ReasonTimeout     EndReason = "timeout"
	ReasonFinished    EndReason = "finished"
)

const (
	DefaultDuration = 180.0 // seconds
	ArenaWidth      = 2000.0
	ArenaHeight     = 1500.0

	BoostAccelMultiplier = 1.8
	BoostSpeedMultiplier = 1.5
	BoostDrain           = 25.0 // energy per second
	BoostMinEnergy       = 10.0
	StrafeMultiplier     = 0.6
	BounceFactor         = -0.8
	HitRadius            = 24.0

	BotRegenMultiplier   = 0.6
	AICooldownMultiplier = 1.5

	spawnMargin  = 200.0
	spawnSpacing = 120.0
	muzzleOffset = 20.0
)

// kindModifiers scale the ship class for AI pilots.
var kindModifiers = map[ControllerKind]struct{ health, damage float64 }{
	KindHuman:   {1.0, 1.0},
	KindBot:     {0.8, 0.8},
	KindInvader: {1.1, 1.0},
}

// Control is the last commanded input of a ship. Thrust, Turn and Strafe are
// in [-1, 1]. It persists until replaced.
type Control struct {
	Thrust float64 `json:"thrust" msgpack:"thrust"`
	Turn   float64 `json:"turn" msgpack:"turn"`
	Strafe float64 `json:"strafe" msgpack:"strafe"`
	Boost  bool    `json:"boost" msgpack:"boost"`
}

func (c Control) clamped() Control {
	return Control{
		Thrust: physics.Clamp(c.Thrust, -1, 1),
		Turn:   physics.Clamp(c.Turn, -1, 1),
		Strafe: physics.Clamp(c.Strafe, -1, 1),
		Boost:  c.Boost,
	}
}

// Stats are the resolved flight and weapon numbers of a ship.
type Stats struct {
	MaxHealth        float64
	MaxEnergy        float64
	EnergyRegen      float64
	Acceleration     float64
	MaxSpeed         float64
	TurnRate         float64
	DamageMultiplier float64
	Weapons          []catalog.Weapon
}

// NewStats resolves a ship class and its weapons, scaled by skill multipliers.
func NewStats(class catalog.ShipClass, cat *catalog.Catalog, m player.Multipliers) Stats {
	s := Stats{
		MaxHealth:        class.MaxHealth * m.Health,
		MaxEnergy:        class.MaxEnergy * m.Energy,
		EnergyRegen:      class.EnergyRegen * m.EnergyRegen,
		Acceleration:     class.Acceleration * m.Acceleration,
		MaxSpeed:         class.MaxSpeed * m.MaxSpeed,
		TurnRate:         class.TurnRate * m.TurnRate,
		DamageMultiplier: m.Damage,
	}
	for _, id := range class.Weapons {
		if w, ok := cat.Weapon(id); ok {
			s.Weapons = append(s.Weapons, w)
		}
	}
	return s
}

// weapon looks up id; an empty id selects the primary weapon.
func (s Stats) weapon(id string) (catalog.Weapon, bool) {
	if id == "" {
		if len(s.Weapons) == 0 {
			return catalog.Weapon{}, false
		}
		return s.Weapons[0], true
	}
	for _, w := range s.Weapons {
		if w.ID == id {
			return w, true
		}
	}
	return catalog.Weapon{}, false
}

type ShipState struct {
	ID              string
	Name            string
	Kind            ControllerKind
	Side            string
	Position        physics.Vec2
	Velocity        physics.Vec2
	Rotation        float64
	AngularVelocity float64
	Health          float64
	Energy          float64
	Stats           Stats
	Control         Control
	Boosting        bool
	Cooldowns       map[string]float64 // seconds remaining per weapon
	CurrentMaxSpeed float64

	ai aiState
}

// ShipSpec describes a ship entering combat. A zero Health starts at full.
type ShipSpec struct {
	ID     string
	Name   string
	Kind   ControllerKind
	Side   string
	Stats  Stats
	Health float64
}

// NewShip builds the combat state for spec, applying the controller kind
// multipliers.
func NewShip(spec ShipSpec) *ShipState {
	stats := spec.Stats
	mod, ok := kindModifiers[spec.Kind]
	if !ok {
		mod = kindModifiers[KindHuman]
	}
	stats.MaxHealth *= mod.health
	if stats.DamageMultiplier == 0 {
		stats.DamageMultiplier = 1
	}
	stats.DamageMultiplier *= mod.damage

	health := spec.Health
	if health <= 0 || health > stats.MaxHealth {
		health = stats.MaxHealth
	}

	return &ShipState{
		ID:              spec.ID,
		Name:            spec.Name,
		Kind:            spec.Kind,
		Side:            spec.Side,
		Health:          health,
		Energy:          stats.MaxEnergy,
		Stats:           stats,
		Cooldowns:       make(map[string]float64),
		CurrentMaxSpeed: stats.MaxSpeed,
	}
}

func (s *ShipState) Alive() bool {
	return s.Health > 0
}

type Projectile struct {
	ID       string       `json:"id" msgpack:"id"`
	OwnerID  string       `json:"ownerId" msgpack:"o"`
	WeaponID string       `json:"weaponId" msgpack:"w"`
	Position physics.Vec2 `json:"position" msgpack:"p"`
	Velocity physics.Vec2 `json:"velocity" msgpack:"v"`
	Damage   float64      `json:"damage" msgpack:"d"`
	Lifetime float64      `json:"lifetime" msgpack:"l"`

	side string
}

// Casualty records a ship destroyed during the encounter.
type Casualty struct {
	ShipID   string         `json:"shipId"`
	Kind     ControllerKind `json:"kind"`
	Side     string         `json:"side"`
	KilledBy string         `json:"killedBy,omitempty"`
}

type ShipOutcome struct {
	ID        string         `json:"id"`
	Kind      ControllerKind `json:"kind"`
	Side      string         `json:"side"`
	Health    float64        `json:"health"`
	MaxHealth float64        `json:"maxHealth"`
	Alive     bool           `json:"alive"`
}

// Result is the outcome of a finished session. Winner is the surviving side,
// empty for a draw.
type Result struct {
	SessionID  string        `json:"sessionId"`
	Type       Type          `json:"type"`
	InvasionID string        `json:"invasionId,omitempty"`
	HexKey     string        `json:"hexKey,omitempty"`
	Winner     string        `json:"winner"`
	Reason     EndReason     `json:"reason"`
	Elapsed    float64       `json:"elapsed"`
	Ships      []ShipOutcome `json:"ships"`
	Casualties []Casualty    `json:"casualties"`
}

// Humans returns the outcome of every human ship.
func (r Result) Humans() []ShipOutcome {
	var out []ShipOutcome
	for _, s := range r.Ships {
		if s.Kind == KindHuman {
			out = append(out, s)
		}
	}
	return out
}

// CountKind counts ships of kind, alive or not.
func (r Result) CountKind(kind ControllerKind) int {
	n := 0
	for _, s := range r.Ships {
		if s.Kind == kind {
			n++
		}
	}
	return n
}
