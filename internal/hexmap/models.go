package hexmap

import (
	"sort"
	"time"
)

type SystemType string

const (
	SystemTypePlanetary SystemType = "planetary"
	SystemTypeEmpty     SystemType = "empty"
)

// OwnerNPC owns the fixed station anchors.
const OwnerNPC = "npc"

const (
	MinThreat = -2.0
	MaxThreat = 1.0

	ColonyThreat    = 0.5
	DevelopStep     = 0.1
	DecayStep       = 0.1
	DecayFloor      = 0.1
	DecayRadius     = 5
	DangerThreshold = -0.5

	DefaultDecayInterval = 5 * time.Minute
)

type Cell struct {
	Coord             Coord
	SystemType        SystemType
	Threat            float64
	Owner             string
	HasStation        bool
	Resources         int
	DiscoveredBy      map[string]struct{}
	LastDecayCheck    time.Time
	PlanetarySystemID string
}

// IsSource reports whether the cell projects influence. Only sources hold an
// independent threat value.
func (c *Cell) IsSource() bool {
	return c.HasStation && c.Owner != ""
}

// IsColony reports whether the cell is a player-owned station.
func (c *Cell) IsColony() bool {
	return c.IsSource() && c.Owner != OwnerNPC
}

func (c *Cell) Discovered(playerID string) bool {
	_, ok := c.DiscoveredBy[playerID]
	return ok
}

// Discoverers returns the discovering player ids in sorted order.
func (c *Cell) Discoverers() []string {
	out := make([]string, 0, len(c.DiscoveredBy))
	for id := range c.DiscoveredBy {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clone returns a copy that shares no mutable state with c.
func (c Cell) Clone() Cell {
	if c.DiscoveredBy != nil {
		set := make(map[string]struct{}, len(c.DiscoveredBy))
		for id := range c.DiscoveredBy {
			set[id] = struct{}{}
		}
		c.DiscoveredBy = set
	}
	return c
}

// Anchor is a fixed NPC station placed at generation.
type Anchor struct {
	Coord  Coord
	Threat float64
}
