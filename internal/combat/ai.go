package combat

import (
	"math"
	"starfront-server/internal/physics"
)

type aiMode int

const (
	aiPursue aiMode = iota
	aiEvade
)

const (
	evadeHealthFraction = 0.3
	evadeHealthFloor    = 15.0
	evadeMinSeconds     = 1.0
	evadeMaxSeconds     = 3.0

	farRange   = 300.0
	closeRange = 150.0
	aimCone    = 0.25 // radians
	turnGain   = 2.0
)

type aiState struct {
	mode      aiMode
	evadeLeft float64
	evadeTurn float64
	targetID  string
}

// think sets the control state of an AI ship and fires when lined up.
// Caller holds mu.
func (s *Session) think(ship *ShipState, dt float64) {
	target := s.nearestEnemy(ship)
	if target == nil {
		ship.Control = Control{}
		return
	}
	ship.ai.targetID = target.ID

	if ship.ai.mode == aiEvade {
		ship.ai.evadeLeft -= dt
		if ship.ai.evadeLeft > 0 {
			ship.Control = Control{Thrust: 1, Turn: ship.ai.evadeTurn, Boost: ship.Energy >= 2*BoostMinEnergy}
			return
		}
		ship.ai.mode = aiPursue
	}

	if ship.Health < evadeHealthFraction*ship.Stats.MaxHealth || ship.Health < evadeHealthFloor {
		ship.ai.mode = aiEvade
		ship.ai.evadeLeft = evadeMinSeconds + s.rng.Float64()*(evadeMaxSeconds-evadeMinSeconds)
		ship.ai.evadeTurn = 1
		if s.rng.Intn(2) == 0 {
			ship.ai.evadeTurn = -1
		}
		ship.Control = Control{Thrust: 1, Turn: ship.ai.evadeTurn}
		return
	}

	toTarget := target.Position.Sub(ship.Position)
	dist := toTarget.Len()
	aimError := physics.NormalizeAngle(math.Atan2(toTarget.Y, toTarget.X) - ship.Rotation)

	thrust := -0.5
	switch {
	case dist > farRange:
		thrust = 1
	case dist >= closeRange:
		thrust = 0.5
	}
	ship.Control = Control{
		Thrust: thrust,
		Turn:   physics.Clamp(aimError*turnGain, -1, 1),
	}

	w, ok := ship.Stats.weapon("")
	if !ok {
		return
	}
	if ship.Energy >= w.EnergyCost && dist <= w.Range && math.Abs(aimError) < aimCone {
		s.fire(ship, w.ID)
	}
}

func (s *Session) nearestEnemy(ship *ShipState) *ShipState {
	var best *ShipState
	bestDist := math.Inf(1)
	for _, other := range s.ships {
		if !other.Alive() || other.Side == ship.Side {
			continue
		}
		d := other.Position.Sub(ship.Position).Len()
		if d < bestDist {
			best, bestDist = other, d
		}
	}
	return best
}
