package physics

import (
	"math"
	"testing"
)

func TestClampSpeedPreservesDirection(t *testing.T) {
	v := ClampSpeed(Vec2{30, 40}, 10)
	if math.Abs(v.Len()-10) > 1e-9 {
		t.Fatalf("expected length 10, got %f", v.Len())
	}
	if math.Abs(v.X/v.Y-0.75) > 1e-9 {
		t.Fatalf("direction changed: %+v", v)
	}

	slow := ClampSpeed(Vec2{1, 1}, 10)
	if slow != (Vec2{1, 1}) {
		t.Fatalf("slow vector should be untouched, got %+v", slow)
	}
}

func TestBounceReflectsAndDamps(t *testing.T) {
	b := Bounds{Width: 100, Height: 50}
	pos, vel, bounced := b.Bounce(Vec2{110, 20}, Vec2{10, 3}, -0.8)
	if !bounced {
		t.Fatalf("expected a bounce")
	}
	if pos.X != 100 || pos.Y != 20 {
		t.Fatalf("position not clamped: %+v", pos)
	}
	if math.Abs(vel.X+8) > 1e-9 || vel.Y != 3 {
		t.Fatalf("unexpected velocity %+v", vel)
	}

	_, _, bounced = b.Bounce(Vec2{50, 25}, Vec2{1, 1}, -0.8)
	if bounced {
		t.Fatalf("interior point should not bounce")
	}
}

func TestLateralIsPerpendicular(t *testing.T) {
	for _, r := range []float64{0, 0.7, math.Pi / 2, 2.5, -1.2} {
		if d := Heading(r).Dot(Lateral(r)); math.Abs(d) > 1e-9 {
			t.Fatalf("rotation %f: dot=%f", r, d)
		}
	}
}

func TestNormalizeAngle(t *testing.T) {
	if got := NormalizeAngle(3 * math.Pi / 2); math.Abs(got+math.Pi/2) > 1e-9 {
		t.Fatalf("expected -pi/2, got %f", got)
	}
	if got := NormalizeAngle(-3 * math.Pi / 2); math.Abs(got-math.Pi/2) > 1e-9 {
		t.Fatalf("expected pi/2, got %f", got)
	}
}
