package hexmap

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

type PlanetType string

const (
	PlanetTypeBarren      PlanetType = "barren"
	PlanetTypeTerrestrial PlanetType = "terrestrial"
	PlanetTypeGasGiant    PlanetType = "gas_giant"
	PlanetTypeIce         PlanetType = "ice"
	PlanetTypeVolcanic    PlanetType = "volcanic"
)

type Planet struct {
	Index     int        `json:"index"`
	Name      string     `json:"name"`
	Type      PlanetType `json:"type"`
	Size      int        `json:"size"`
	Resources int        `json:"resources"`
}

type PlanetarySystem struct {
	ID      string   `json:"id"`
	HexKey  string   `json:"hexKey"`
	Name    string   `json:"name"`
	Planets []Planet `json:"planets"`
}

const (
	minPlanets = 2
	maxPlanets = 8
)

var systemNames = []string{
	"Alpha", "Beta", "Gamma", "Delta", "Epsilon", "Zeta", "Eta", "Theta",
	"Iota", "Kappa", "Lambda", "Sigma", "Tau", "Omega", "Vega", "Rigel",
	"Altair", "Deneb", "Mira", "Castor", "Pollux", "Spica", "Antares", "Electra",
}

var planetSuffixes = []string{
	"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X",
}

var planetTypes = []PlanetType{
	PlanetTypeBarren,
	PlanetTypeTerrestrial,
	PlanetTypeGasGiant,
	PlanetTypeIce,
	PlanetTypeVolcanic,
}

// Weight terrestrial planets more heavily
var planetWeights = []int{15, 40, 20, 15, 10}

// GeneratePlanetarySystem derives the detailed system of a planetary cell. The
// result depends only on the world seed and the cell, so it can be generated
// lazily and regenerated identically.
func GeneratePlanetarySystem(cell Cell, seed int64) PlanetarySystem {
	key := cell.Coord.Key()
	rng := rand.New(rand.NewSource(cellSeed(seed^0x5eed, cell.Coord)))

	name := fmt.Sprintf("%s %d", systemNames[rng.Intn(len(systemNames))], 100+rng.Intn(900))
	system := PlanetarySystem{
		ID:     uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%d/%s", seed, key))).String(),
		HexKey: key,
		Name:   name,
	}

	count := minPlanets + rng.Intn(maxPlanets-minPlanets+1)
	remaining := cell.Resources
	for i := 0; i < count; i++ {
		share := 0
		if remaining > 0 {
			share = remaining / (count - i)
			if i < count-1 && share > 0 {
				share += rng.Intn(share + 1)
				share = min(share, remaining)
			} else {
				share = remaining
			}
			remaining -= share
		}

		system.Planets = append(system.Planets, Planet{
			Index:     i,
			Name:      fmt.Sprintf("%s %s", name, planetSuffixes[i%len(planetSuffixes)]),
			Type:      pickPlanetType(rng),
			Size:      50 + rng.Intn(151),
			Resources: share,
		})
	}

	return system
}

func pickPlanetType(rng *rand.Rand) PlanetType {
	totalWeight := 0
	for _, w := range planetWeights {
		totalWeight += w
	}

	roll := rng.Intn(totalWeight)
	currentWeight := 0
	for i, weight := range planetWeights {
		currentWeight += weight
		if roll < currentWeight {
			return planetTypes[i]
		}
	}

	return PlanetTypeTerrestrial
}
