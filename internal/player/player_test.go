package player

import (
	"math"
	"starfront-server/internal/catalog"
	"starfront-server/internal/hexmap"
	"testing"
	"time"
)

func TestCargoPartialAdd(t *testing.T) {
	c := Cargo{Capacity: 10}
	if n := c.Add("iron", 6); n != 6 {
		t.Fatalf("expected 6 stored, got %d", n)
	}
	if n := c.Add("copper", 6); n != 4 {
		t.Fatalf("expected 4 stored, got %d", n)
	}
	if n := c.Add("iron", 1); n != 0 {
		t.Fatalf("full hold accepted cargo")
	}
	if c.Used() != 10 || c.Quantity("iron") != 6 {
		t.Fatalf("unexpected hold %+v", c.Items)
	}
	if n := c.Remove("iron", 10); n != 6 {
		t.Fatalf("expected 6 removed, got %d", n)
	}
	if c.Quantity("iron") != 0 || len(c.Items) != 1 {
		t.Fatalf("empty stack not dropped: %+v", c.Items)
	}
}

func TestStatMultipliers(t *testing.T) {
	base := StatMultipliers(nil)
	if base.Health != 1 || base.Damage != 1 || base.MiningCost != 1 {
		t.Fatalf("untrained multipliers should be neutral: %+v", base)
	}
	m := StatMultipliers(map[string]int{SkillGunnery: 4, SkillPiloting: 50})
	if math.Abs(m.Damage-1.2) > 1e-9 {
		t.Fatalf("expected damage 1.2, got %v", m.Damage)
	}
	if math.Abs(m.MaxSpeed-1.3) > 1e-9 {
		t.Fatalf("piloting should cap at max level, got %v", m.MaxSpeed)
	}
}

func TestGrantExperience(t *testing.T) {
	p := New("p1", "pilot", catalog.Default().MustShipClass("scout"), hexmap.Coord{}, time.Unix(0, 0))
	if gained := p.GrantExperience(99); gained != 0 || p.Level != 1 {
		t.Fatalf("leveled too early")
	}
	if gained := p.GrantExperience(250); gained != 2 || p.Level != 3 || p.SkillPoints != 2 {
		t.Fatalf("expected level 3 with 2 points, got level %d points %d", p.Level, p.SkillPoints)
	}
}

func TestTrainSkill(t *testing.T) {
	p := New("p1", "pilot", catalog.Default().MustShipClass("scout"), hexmap.Coord{}, time.Unix(0, 0))
	if err := p.TrainSkill(SkillGunnery); err != ErrNoSkillPoints {
		t.Fatalf("expected ErrNoSkillPoints, got %v", err)
	}
	p.SkillPoints = 1
	if err := p.TrainSkill("basket weaving"); err == nil {
		t.Fatalf("unknown skill accepted")
	}
	if err := p.TrainSkill(SkillGunnery); err != nil {
		t.Fatalf("TrainSkill: %v", err)
	}
	if p.Skills[SkillGunnery] != 1 || p.SkillPoints != 0 {
		t.Fatalf("skill not trained")
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := New("p1", "pilot", catalog.Default().MustShipClass("scout"), hexmap.Coord{}, time.Unix(0, 0))
	p.Ship.Cargo.Add("iron", 2)
	c := p.Clone()
	c.Ship.Cargo.Add("iron", 2)
	c.Skills["hull"] = 3
	if p.Ship.Cargo.Quantity("iron") != 2 || p.Skills["hull"] != 0 {
		t.Fatalf("clone shares state with original")
	}
}

func TestStationStorageDeposit(t *testing.T) {
	storage := NewStationStorage("3,4", "p1")
	if storage.ID != "3,4:p1" {
		t.Fatalf("unexpected id %s", storage.ID)
	}
	storage.Items = []ItemStack{{ItemID: "iron", Quantity: 2}}

	cargo := Cargo{Capacity: 20}
	cargo.Add("iron", 3)
	cargo.Add("copper", 1)
	if moved := storage.Deposit(&cargo); moved != 4 {
		t.Fatalf("expected 4 units moved, got %d", moved)
	}
	if cargo.Used() != 0 {
		t.Fatalf("cargo not emptied")
	}
	if len(storage.Items) != 2 || storage.Items[0].Quantity != 5 {
		t.Fatalf("unexpected storage %+v", storage.Items)
	}
}
