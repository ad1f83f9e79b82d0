// Package hexmap is the world grid: axial hex cells, the threat/influence
// field projected by stations and colonies, and the colony lifecycle.
package hexmap

import (
	"fmt"
	"strconv"
	"strings"
)

// Coord is an axial hex coordinate. The cube coordinate s is -q-r.
type Coord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

func (c Coord) S() int {
	return -c.Q - c.R
}

// Key is the "q,r" form used for map keys and persistence.
func (c Coord) Key() string {
	return strconv.Itoa(c.Q) + "," + strconv.Itoa(c.R)
}

func (c Coord) String() string {
	return "(" + c.Key() + ")"
}

func ParseKey(key string) (Coord, error) {
	qs, rs, ok := strings.Cut(key, ",")
	if !ok {
		return Coord{}, fmt.Errorf("invalid hex key %q", key)
	}
	q, err := strconv.Atoi(strings.TrimSpace(qs))
	if err != nil {
		return Coord{}, fmt.Errorf("invalid hex key %q: %w", key, err)
	}
	r, err := strconv.Atoi(strings.TrimSpace(rs))
	if err != nil {
		return Coord{}, fmt.Errorf("invalid hex key %q: %w", key, err)
	}
	return Coord{Q: q, R: r}, nil
}

var directions = [6]Coord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent coordinates, whether or not they are on
// the map.
func (c Coord) Neighbors() [6]Coord {
	var result [6]Coord
	for i, d := range directions {
		result[i] = Coord{Q: c.Q + d.Q, R: c.R + d.R}
	}
	return result
}

// Within returns every coordinate at hex distance <= radius from c.
func (c Coord) Within(radius int) []Coord {
	if radius < 0 {
		return nil
	}
	out := make([]Coord, 0, 1+3*radius*(radius+1))
	for dq := -radius; dq <= radius; dq++ {
		lo := max(-radius, -dq-radius)
		hi := min(radius, -dq+radius)
		for dr := lo; dr <= hi; dr++ {
			out = append(out, Coord{Q: c.Q + dq, R: c.R + dr})
		}
	}
	return out
}

func Distance(a, b Coord) int {
	return max(abs(a.Q-b.Q), abs(a.R-b.R), abs(a.S()-b.S()))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
