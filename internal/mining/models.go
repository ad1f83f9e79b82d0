package mining

import (
	"starfront-server/internal/catalog"
	"starfront-server/internal/physics"
)

const (
	TickSeconds = 0.05

	Damping      = 0.98
	BounceFactor = -0.5

	LaserBaseRange    = 250.0
	LaserRangePerSize = 12.0
	LaserWidthPerSize = 14.0
	LaserEnergyTicks  = 3

	MaxAsteroidSize       = 4
	SpawnHealthPerSize    = 4
	ChildHealthPerSize    = 3
	BaseAsteroids         = 8
	ResourcesPerAsteroid  = 10
	MaxAsteroids          = 16
	minSpawnDistance      = 150.0
	childOffsetPerSize    = 10.0
	childSpreadMin        = 0.4 // radians
	childSpreadMax        = 1.2
	childSpeedMultiplier  = 1.5
	defaultArenaWidth     = 1200.0
	defaultArenaHeight    = 800.0
	defaultAsteroidSpeed  = 20.0
	defaultLaserCost      = 2.0
	defaultMiningMaxPower = 100.0
)

// Control is the last commanded input. Thrust, Turn and Strafe are in [-1, 1].
type Control struct {
	Thrust float64 `json:"thrust" msgpack:"thrust"`
	Turn   float64 `json:"turn" msgpack:"turn"`
	Strafe float64 `json:"strafe" msgpack:"strafe"`
	Firing bool    `json:"firing" msgpack:"firing"`
}

func (c Control) clamped() Control {
	return Control{
		Thrust: physics.Clamp(c.Thrust, -1, 1),
		Turn:   physics.Clamp(c.Turn, -1, 1),
		Strafe: physics.Clamp(c.Strafe, -1, 1),
		Firing: c.Firing,
	}
}

type Ship struct {
	Position  physics.Vec2 `json:"position" msgpack:"p"`
	Velocity  physics.Vec2 `json:"velocity" msgpack:"v"`
	Rotation  float64      `json:"rotation" msgpack:"r"`
	Energy    float64      `json:"energy" msgpack:"e"`
	MaxEnergy float64      `json:"maxEnergy" msgpack:"me"`
}

type Asteroid struct {
	ID        string       `json:"id" msgpack:"id"`
	Position  physics.Vec2 `json:"position" msgpack:"p"`
	Velocity  physics.Vec2 `json:"velocity" msgpack:"v"`
	Size      int          `json:"size" msgpack:"s"`
	MineralID string       `json:"mineralId" msgpack:"m"`
	Health    int          `json:"health" msgpack:"h"`
}

// Params are the ship and field numbers of one session.
type Params struct {
	MaxEnergy     float64
	EnergyRegen   float64 // per second
	LaserCost     float64
	Acceleration  float64
	TurnRate      float64
	AsteroidSpeed float64
	Arena         physics.Bounds
}

// ParamsFrom reads the catalog mining section. costMultiplier scales the laser
// energy cost.
func ParamsFrom(m catalog.Mining, costMultiplier float64) Params {
	p := Params{
		MaxEnergy:     m.MaxEnergy,
		EnergyRegen:   m.EnergyRegen,
		LaserCost:     m.LaserEnergyCost * costMultiplier,
		Acceleration:  m.Acceleration,
		TurnRate:      m.TurnRate,
		AsteroidSpeed: m.AsteroidSpeed,
		Arena:         physics.Bounds{Width: m.ArenaWidth, Height: m.ArenaHeight},
	}
	return p.withDefaults()
}

func (p Params) withDefaults() Params {
	if p.MaxEnergy <= 0 {
		p.MaxEnergy = defaultMiningMaxPower
	}
	if p.LaserCost <= 0 {
		p.LaserCost = defaultLaserCost
	}
	if p.AsteroidSpeed <= 0 {
		p.AsteroidSpeed = defaultAsteroidSpeed
	}
	if p.Arena.Width <= 0 || p.Arena.Height <= 0 {
		p.Arena = physics.Bounds{Width: defaultArenaWidth, Height: defaultArenaHeight}
	}
	return p
}

type Snapshot struct {
	SessionID   string         `json:"sessionId" msgpack:"sid"`
	HexKey      string         `json:"hexKey" msgpack:"hex"`
	Tick        uint64         `json:"tick" msgpack:"tick"`
	Arena       physics.Bounds `json:"arena" msgpack:"arena"`
	Ship        Ship           `json:"ship" msgpack:"ship"`
	Asteroids   []Asteroid     `json:"asteroids" msgpack:"ast"`
	Collected   map[string]int `json:"collected" msgpack:"col"`
	LaserActive bool           `json:"laserActive" msgpack:"laser"`
	PlayerID    string         `json:"-" msgpack:"-"`
}
