package player

import "starfront-server/internal/shared/errors"

const (
	SkillPiloting    = "piloting"
	SkillGunnery     = "gunnery"
	SkillEngineering = "engineering"
	SkillHull        = "hull"
	SkillMining      = "mining"

	MaxSkillLevel = 10
)

var knownSkills = map[string]bool{
	SkillPiloting:    true,
	SkillGunnery:     true,
	SkillEngineering: true,
	SkillHull:        true,
	SkillMining:      true,
}

// Multipliers scale ship class stats. The zero value is not neutral; use
// StatMultipliers.
type Multipliers struct {
	Health       float64
	Energy       float64
	EnergyRegen  float64
	Acceleration float64
	MaxSpeed     float64
	TurnRate     float64
	Damage       float64
	MiningCost   float64
}

// StatMultipliers derives ship stat multipliers from skill levels.
func StatMultipliers(skills map[string]int) Multipliers {
	level := func(name string) float64 {
		return float64(min(max(skills[name], 0), MaxSkillLevel))
	}

	piloting := level(SkillPiloting)
	engineering := level(SkillEngineering)

	return Multipliers{
		Health:       1 + 0.05*level(SkillHull),
		Energy:       1 + 0.04*engineering,
		EnergyRegen:  1 + 0.04*engineering,
		Acceleration: 1 + 0.03*piloting,
		MaxSpeed:     1 + 0.03*piloting,
		TurnRate:     1 + 0.03*piloting,
		Damage:       1 + 0.05*level(SkillGunnery),
		MiningCost:   1 - 0.05*level(SkillMining),
	}
}

// TrainSkill spends one skill point on skill.
func (p *Player) TrainSkill(skill string) error {
	if !knownSkills[skill] {
		return errors.Validationf("unknown skill %q", skill)
	}
	if p.SkillPoints <= 0 {
		return ErrNoSkillPoints
	}
	if p.Skills[skill] >= MaxSkillLevel {
		return ErrSkillMaxed
	}
	if p.Skills == nil {
		p.Skills = make(map[string]int)
	}
	p.Skills[skill]++
	p.SkillPoints--
	return nil
}
