package invasion

import (
	"starfront-server/internal/hexmap"
	"time"
)

type Phase string

const (
	PhaseActive  Phase = "active"
	PhaseCleared Phase = "cleared"
)

// EnemiesPerHex is the number of invaders seeded at each neighbor hex.
const EnemiesPerHex = 3

type State struct {
	ID                string         `json:"id"`
	SourceHexKey      string         `json:"sourceHexKey"`
	SourceCoordinates hexmap.Coord   `json:"sourceCoordinates"`
	NeighborHexKeys   []string       `json:"neighborHexKeys"`
	EnemyCountPerHex  map[string]int `json:"enemyCountPerHex"`
	StartTime         time.Time      `json:"startTime"`
	Phase             Phase          `json:"phase"`
}

// Remaining is the total enemy count left across all hexes.
func (s *State) Remaining() int {
	total := 0
	for _, n := range s.EnemyCountPerHex {
		if n > 0 {
			total += n
		}
	}
	return total
}

// Touches reports whether hexKey is the source or one of the neighbors.
func (s *State) Touches(hexKey string) bool {
	if hexKey == s.SourceHexKey {
		return true
	}
	_, ok := s.EnemyCountPerHex[hexKey]
	return ok
}

func (s State) Clone() State {
	s.NeighborHexKeys = append([]string(nil), s.NeighborHexKeys...)
	counts := make(map[string]int, len(s.EnemyCountPerHex))
	for k, v := range s.EnemyCountPerHex {
		counts[k] = v
	}
	s.EnemyCountPerHex = counts
	return s
}
