package hexmap

import (
	"math"
	"starfront-server/internal/shared/errors"
	"time"
)

// Colonize founds a player colony at c. Colonies may only be founded in
// unclaimed space whose threat is not positive.
func (m *Map) Colonize(c Coord, playerID string, now time.Time) (Cell, error) {
	cell, ok := m.cells[c.Key()]
	if !ok {
		return Cell{}, errors.NotFoundf("system %s does not exist", c)
	}
	if cell.Owner != "" && cell.Owner != OwnerNPC {
		if cell.Owner == playerID {
			return Cell{}, errors.Conflict("you already have a colony in this system")
		}
		return Cell{}, errors.Conflict("system is already owned by another player")
	}
	if cell.Owner == OwnerNPC && cell.HasStation {
		return Cell{}, errors.Validation("cannot colonize an NPC station")
	}
	if cell.Threat > 0 {
		return Cell{}, errors.Validation("system is too safe to colonize; colonies must be founded in neutral or hostile space")
	}

	cell.Owner = playerID
	cell.HasStation = true
	cell.Threat = ColonyThreat
	cell.LastDecayCheck = now

	m.Recompute()
	return cell.Clone(), nil
}

// Develop strengthens a colony by DevelopStep, capped at MaxThreat.
func (m *Map) Develop(c Coord, playerID string) (Cell, error) {
	cell, ok := m.cells[c.Key()]
	if !ok {
		return Cell{}, errors.NotFoundf("system %s does not exist", c)
	}
	if !cell.IsColony() || cell.Owner != playerID {
		return Cell{}, errors.Forbidden("you do not own a colony in this system")
	}

	cell.Threat = math.Min(MaxThreat, cell.Threat+DevelopStep)

	m.Recompute()
	return cell.Clone(), nil
}

// CheckColonyDecay weakens colonies that have hostile space nearby. A colony
// is checked once per decay interval; the first check only starts its timer.
// Reports whether any colony decayed.
func (m *Map) CheckColonyDecay(now time.Time) bool {
	decayed := false

	for _, cell := range m.cells {
		if !cell.IsColony() {
			continue
		}
		// restored or fresh colonies start the clock here
		if cell.LastDecayCheck.IsZero() {
			cell.LastDecayCheck = now
			continue
		}
		if now.Sub(cell.LastDecayCheck) < m.decayInterval {
			continue
		}
		cell.LastDecayCheck = now

		// colonies with no hostile space nearby hold steady
		if !m.dangerNear(cell.Coord) {
			continue
		}
		next := math.Max(DecayFloor, cell.Threat-DecayStep)
		if next < cell.Threat {
			cell.Threat = next
			decayed = true
		}
	}

	if decayed {
		m.Recompute()
	}
	return decayed
}

func (m *Map) dangerNear(center Coord) bool {
	for _, c := range center.Within(DecayRadius) {
		if c == center {
			continue
		}
		if cell, ok := m.cells[c.Key()]; ok && cell.Threat < DangerThreshold {
			return true
		}
	}
	return false
}

// SetSourceThreat overrides the threat of a station or colony and recomputes
// the field.
func (m *Map) SetSourceThreat(c Coord, threat float64) error {
	cell, ok := m.cells[c.Key()]
	if !ok {
		return errors.NotFoundf("system %s does not exist", c)
	}
	if !cell.IsSource() {
		return errors.Validationf("system %s has no station", c)
	}

	cell.Threat = clampThreat(threat)
	m.Recompute()
	return nil
}
