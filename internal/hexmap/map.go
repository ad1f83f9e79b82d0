package hexmap

import (
	"math/rand"
	"sort"
	"time"
)

const planetaryChance = 0.35

// Map owns every cell of the world. It is not safe for concurrent use; the
// world serializes all access.
type Map struct {
	radius        int
	seed          int64
	cells         map[string]*Cell
	decayInterval time.Duration
}

// Generate builds every cell within radius of the origin. The same seed always
// yields the same map. Anchors outside the map are ignored.
func Generate(radius int, seed int64, anchors []Anchor) *Map {
	m := newMap(radius, seed)

	for _, c := range (Coord{}).Within(radius) {
		rng := rand.New(rand.NewSource(cellSeed(seed, c)))
		cell := &Cell{Coord: c, SystemType: SystemTypeEmpty, Threat: MinThreat}
		if rng.Float64() < planetaryChance {
			cell.SystemType = SystemTypePlanetary
			cell.Resources = 20 + rng.Intn(81)
		} else {
			cell.Resources = rng.Intn(11)
		}
		m.cells[c.Key()] = cell
	}

	for _, a := range anchors {
		cell, ok := m.cells[a.Coord.Key()]
		if !ok {
			continue
		}
		cell.Owner = OwnerNPC
		cell.HasStation = true
		cell.Threat = clampThreat(a.Threat)
	}

	m.Recompute()
	return m
}

// Restore rebuilds a map from persisted cells. Derived threat values are
// recomputed from the restored sources.
func Restore(radius int, seed int64, cells []Cell) *Map {
	m := newMap(radius, seed)
	for _, c := range cells {
		cell := c.Clone()
		if cell.SystemType == "" {
			cell.SystemType = SystemTypeEmpty
		}
		m.cells[cell.Coord.Key()] = &cell
	}
	m.Recompute()
	return m
}

func newMap(radius int, seed int64) *Map {
	return &Map{
		radius:        radius,
		seed:          seed,
		cells:         make(map[string]*Cell),
		decayInterval: DefaultDecayInterval,
	}
}

// cellSeed mixes the world seed with the coordinate so generation does not
// depend on iteration order.
func cellSeed(seed int64, c Coord) int64 {
	h := uint64(seed) ^ 0x9e3779b97f4a7c15
	h ^= uint64(int64(c.Q)) * 0xbf58476d1ce4e5b9
	h = (h ^ (h >> 31)) * 0x94d049bb133111eb
	h ^= uint64(int64(c.R)) * 0x2545f4914f6cdd1d
	h ^= h >> 29
	return int64(h)
}

func (m *Map) Radius() int { return m.radius }

func (m *Map) Seed() int64 { return m.seed }

func (m *Map) Len() int { return len(m.cells) }

func (m *Map) SetDecayInterval(d time.Duration) {
	if d > 0 {
		m.decayInterval = d
	}
}

func (m *Map) Has(c Coord) bool {
	_, ok := m.cells[c.Key()]
	return ok
}

// Get returns a copy of the cell at c.
func (m *Map) Get(c Coord) (Cell, bool) {
	cell, ok := m.cells[c.Key()]
	if !ok {
		return Cell{}, false
	}
	return cell.Clone(), true
}

// Cells returns copies of every cell ordered by key.
func (m *Map) Cells() []Cell {
	keys := make([]string, 0, len(m.cells))
	for k := range m.cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Cell, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.cells[k].Clone())
	}
	return out
}

// Colonies returns copies of every player-owned station.
func (m *Map) Colonies() []Cell {
	var out []Cell
	for _, cell := range m.cells {
		if cell.IsColony() {
			out = append(out, cell.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Coord.Key() < out[j].Coord.Key() })
	return out
}

// Discover marks c as discovered by playerID. Reports whether the set changed.
func (m *Map) Discover(c Coord, playerID string) bool {
	cell, ok := m.cells[c.Key()]
	if !ok {
		return false
	}
	if cell.DiscoveredBy == nil {
		cell.DiscoveredBy = make(map[string]struct{})
	}
	if _, seen := cell.DiscoveredBy[playerID]; seen {
		return false
	}
	cell.DiscoveredBy[playerID] = struct{}{}
	return true
}

// LinkPlanetarySystem records the generated system id on the cell.
func (m *Map) LinkPlanetarySystem(c Coord, systemID string) bool {
	cell, ok := m.cells[c.Key()]
	if !ok {
		return false
	}
	cell.PlanetarySystemID = systemID
	return true
}

func (m *Map) sources() []*Cell {
	var out []*Cell
	for _, cell := range m.cells {
		if cell.IsSource() {
			out = append(out, cell)
		}
	}
	return out
}

// Recompute sets every non-source cell's threat to the max influence over all
// sources. It is a full scan over cells and sources.
func (m *Map) Recompute() {
	sources := m.sources()
	for _, cell := range m.cells {
		if cell.IsSource() {
			continue
		}
		cell.Threat = fieldAt(cell.Coord, sources)
	}
}
