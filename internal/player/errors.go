package player

import "starfront-server/internal/shared/errors"

var (
	ErrNoSkillPoints = errors.Validation("no unspent skill points")
	ErrSkillMaxed    = errors.Validation("skill is already at the maximum level")
)
