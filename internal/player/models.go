package player

import (
	"starfront-server/internal/catalog"
	"starfront-server/internal/hexmap"
	"starfront-server/internal/quest"
	"time"
)

type Ship struct {
	Class     string   `json:"class"`
	Health    float64  `json:"health"`
	MaxHealth float64  `json:"maxHealth"`
	Energy    float64  `json:"energy"`
	MaxEnergy float64  `json:"maxEnergy"`
	Speed     float64  `json:"speed"`
	TurnRate  float64  `json:"turnRate"`
	Weapons   []string `json:"weapons"`
	Cargo     Cargo    `json:"cargo"`
}

// Player is the authoritative record of one pilot. MoveTimer is the unix
// millisecond after which the next hex move is allowed.
type Player struct {
	ID          string           `json:"id"`
	Username    string           `json:"username"`
	Position    hexmap.Coord     `json:"position"`
	Ship        Ship             `json:"ship"`
	Resources   int              `json:"resources"`
	Credits     int              `json:"credits"`
	Experience  int              `json:"experience"`
	Level       int              `json:"level"`
	SkillPoints int              `json:"skillPoints"`
	Skills      map[string]int   `json:"skills"`
	MoveTimer   int64            `json:"moveTimer"`
	CanMove     bool             `json:"canMove"`
	Quests      []quest.Progress `json:"quests"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

const startingCredits = 500

// New creates a level 1 pilot flying class at spawn.
func New(id, username string, class catalog.ShipClass, spawn hexmap.Coord, now time.Time) *Player {
	return &Player{
		ID:        id,
		Username:  username,
		Position:  spawn,
		Ship:      NewShip(class),
		Credits:   startingCredits,
		Level:     1,
		Skills:    make(map[string]int),
		CanMove:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewShip returns a fully repaired ship of class with an empty hold.
func NewShip(class catalog.ShipClass) Ship {
	return Ship{
		Class:     class.ID,
		Health:    class.MaxHealth,
		MaxHealth: class.MaxHealth,
		Energy:    class.MaxEnergy,
		MaxEnergy: class.MaxEnergy,
		Speed:     class.MaxSpeed,
		TurnRate:  class.TurnRate,
		Weapons:   append([]string(nil), class.Weapons...),
		Cargo:     Cargo{Capacity: class.CargoCapacity},
	}
}

// SetHealth stores h clamped to [0, MaxHealth].
func (s *Ship) SetHealth(h float64) {
	s.Health = min(max(h, 0), s.MaxHealth)
}

func (p *Player) Clone() *Player {
	c := *p
	c.Ship.Weapons = append([]string(nil), p.Ship.Weapons...)
	c.Ship.Cargo = p.Ship.Cargo.Clone()
	c.Skills = make(map[string]int, len(p.Skills))
	for k, v := range p.Skills {
		c.Skills[k] = v
	}
	c.Quests = make([]quest.Progress, len(p.Quests))
	for i, q := range p.Quests {
		c.Quests[i] = q
		if q.CompletedAt != nil {
			at := *q.CompletedAt
			c.Quests[i].CompletedAt = &at
		}
	}
	return &c
}
