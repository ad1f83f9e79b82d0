package persistence

import (
	"starfront-server/internal/hexmap"
	"time"
)

// World is the persisted map aggregate.
type World struct {
	Phase  string
	Radius int
	Seed   int64
	Cells  []hexmap.Cell
}

type worldRecord struct {
	Phase  string       `json:"phase"`
	Radius int          `json:"radius"`
	Seed   int64        `json:"seed"`
	Cells  []cellRecord `json:"map"`
}

type cellRecord struct {
	Key               string       `json:"key"`
	Coordinates       hexmap.Coord `json:"coordinates"`
	SystemType        string       `json:"systemType"`
	Threat            float64      `json:"threat"`
	Owner             string       `json:"owner,omitempty"`
	Resources         int          `json:"resources,omitempty"`
	DiscoveredBy      []string     `json:"discoveredBy,omitempty"`
	HasStation        bool         `json:"hasStation,omitempty"`
	LastDecayCheck    int64        `json:"lastDecayCheck,omitempty"` // unix ms
	PlanetarySystemID string       `json:"planetarySystemId,omitempty"`
}

type invasionsRecord struct {
	Invasions []invasionRecord `json:"invasions"`
}

type invasionRecord struct {
	ID                string         `json:"id"`
	SourceHexKey      string         `json:"sourceHexKey"`
	SourceCoordinates hexmap.Coord   `json:"sourceCoordinates"`
	NeighborHexKeys   []string       `json:"neighborHexKeys"`
	EnemyCountPerHex  map[string]int `json:"enemyCountPerHex"`
	StartTime         int64          `json:"startTime"` // unix ms
	Phase             string         `json:"phase"`
}

func toCellRecord(c hexmap.Cell) cellRecord {
	r := cellRecord{
		Key:               c.Coord.Key(),
		Coordinates:       c.Coord,
		SystemType:        string(c.SystemType),
		Threat:            c.Threat,
		Owner:             c.Owner,
		Resources:         c.Resources,
		HasStation:        c.HasStation,
		PlanetarySystemID: c.PlanetarySystemID,
	}
	if len(c.DiscoveredBy) > 0 {
		r.DiscoveredBy = c.Discoverers()
	}
	if !c.LastDecayCheck.IsZero() {
		r.LastDecayCheck = c.LastDecayCheck.UnixMilli()
	}
	return r
}

func fromCellRecord(r cellRecord) (hexmap.Cell, error) {
	coord := r.Coordinates
	if r.Key != "" {
		parsed, err := hexmap.ParseKey(r.Key)
		if err != nil {
			return hexmap.Cell{}, err
		}
		coord = parsed
	}

	c := hexmap.Cell{
		Coord:             coord,
		SystemType:        hexmap.SystemType(r.SystemType),
		Threat:            r.Threat,
		Owner:             r.Owner,
		HasStation:        r.HasStation,
		Resources:         r.Resources,
		PlanetarySystemID: r.PlanetarySystemID,
	}
	if len(r.DiscoveredBy) > 0 {
		c.DiscoveredBy = make(map[string]struct{}, len(r.DiscoveredBy))
		for _, id := range r.DiscoveredBy {
			c.DiscoveredBy[id] = struct{}{}
		}
	}
	if r.LastDecayCheck > 0 {
		c.LastDecayCheck = time.UnixMilli(r.LastDecayCheck)
	}
	return c, nil
}
