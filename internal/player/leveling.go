package player

// ExperienceForLevel is the total experience needed to reach level.
func ExperienceForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return 100 * level * (level - 1) / 2
}

// GrantExperience adds xp, levels up as far as it reaches and awards one skill
// point per level. Returns the number of levels gained.
func (p *Player) GrantExperience(xp int) int {
	if xp <= 0 {
		return 0
	}
	if p.Level < 1 {
		p.Level = 1
	}
	p.Experience += xp

	gained := 0
	for p.Experience >= ExperienceForLevel(p.Level+1) {
		p.Level++
		p.SkillPoints++
		gained++
	}
	return gained
}
