package hexmap

// falloffRange is how far past the influence radius the field keeps decaying
// from -1 to -2.
const falloffRange = 15

// InfluenceRadius is the linear-decay radius of a source: 10 for full-safety
// sources, 6 for everything weaker.
func InfluenceRadius(sourceThreat float64) int {
	if sourceThreat >= 1.0 {
		return 10
	}
	return 6
}

// Influence is the threat a source projects onto a cell at distance.
func Influence(distance int, sourceThreat float64, maxRadius int) float64 {
	switch {
	case distance == 0:
		return sourceThreat
	case distance <= maxRadius:
		// linear from sourceThreat at the center to -1 at maxRadius
		normalized := float64(distance) / float64(maxRadius)
		return sourceThreat - normalized*(sourceThreat+1.0)
	case distance <= maxRadius+falloffRange:
		normalized := float64(distance-maxRadius) / falloffRange
		return -1.0 - normalized
	default:
		return MinThreat
	}
}

// fieldAt is the max influence over sources at c.
func fieldAt(c Coord, sources []*Cell) float64 {
	// overlapping sources never add up, the strongest wins
	best := MinThreat
	for _, s := range sources {
		v := Influence(Distance(c, s.Coord), s.Threat, InfluenceRadius(s.Threat))
		if v > best {
			best = v
		}
	}
	return clampThreat(best)
}

func clampThreat(v float64) float64 {
	if v < MinThreat {
		return MinThreat
	}
	if v > MaxThreat {
		return MaxThreat
	}
	return v
}
