// Package physics holds the 2D kinematics shared by the combat and mining
// session engines.
package physics

import "math"

type Vec2 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

func (v Vec2) Scale(k float64) Vec2 { return Vec2{v.X * k, v.Y * k} }

func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Normalize returns the unit vector, or the zero vector for zero input.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Heading is the unit vector for a rotation in radians.
func Heading(rotation float64) Vec2 {
	return Vec2{math.Cos(rotation), math.Sin(rotation)}
}

// Lateral is the unit vector perpendicular to Heading(rotation), pointing to
// the ship's right in screen coordinates.
func Lateral(rotation float64) Vec2 {
	return Vec2{-math.Sin(rotation), math.Cos(rotation)}
}

// ClampSpeed rescales v so its length does not exceed max, keeping direction.
func ClampSpeed(v Vec2, max float64) Vec2 {
	speed := v.Len()
	if speed > max && speed > 0 {
		scale := max / speed
		return Vec2{v.X * scale, v.Y * scale}
	}
	return v
}

// NormalizeAngle wraps a into [-Pi, Pi].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
