package physics

// Bounds is an arena spanning [0, Width] x [0, Height].
type Bounds struct {
	Width  float64 `json:"width" msgpack:"w"`
	Height float64 `json:"height" msgpack:"h"`
}

// Bounce clamps pos into b. The velocity component perpendicular to each
// crossed edge is multiplied by factor (negative to reflect). Reports whether
// any edge was crossed.
func (b Bounds) Bounce(pos, vel Vec2, factor float64) (Vec2, Vec2, bool) {
	bounced := false
	if pos.X < 0 {
		pos.X = 0
		vel.X *= factor
		bounced = true
	} else if pos.X > b.Width {
		pos.X = b.Width
		vel.X *= factor
		bounced = true
	}
	if pos.Y < 0 {
		pos.Y = 0
		vel.Y *= factor
		bounced = true
	} else if pos.Y > b.Height {
		pos.Y = b.Height
		vel.Y *= factor
		bounced = true
	}
	return pos, vel, bounced
}

func (b Bounds) Contains(p Vec2) bool {
	return p.X >= 0 && p.X <= b.Width && p.Y >= 0 && p.Y <= b.Height
}

func (b Bounds) Center() Vec2 {
	return Vec2{b.Width / 2, b.Height / 2}
}
