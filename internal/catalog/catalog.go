// Package catalog loads the game balance data: ship classes, weapons,
// minerals, combat rewards and quest definitions.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"starfront-server/internal/quest"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Weapon struct {
	ID              string  `yaml:"id" json:"id"`
	Name            string  `yaml:"name" json:"name"`
	Damage          float64 `yaml:"damage" json:"damage"`
	Cooldown        float64 `yaml:"cooldown" json:"cooldown"` // seconds
	EnergyCost      float64 `yaml:"energy_cost" json:"energyCost"`
	ProjectileSpeed float64 `yaml:"projectile_speed" json:"projectileSpeed"`
	Range           float64 `yaml:"range" json:"range"`
}

// Lifetime is how long a projectile of this weapon lives, in seconds.
func (w Weapon) Lifetime() float64 {
	if w.ProjectileSpeed <= 0 {
		return 0
	}
	return w.Range / w.ProjectileSpeed
}

type ShipClass struct {
	ID            string   `yaml:"id" json:"id"`
	Name          string   `yaml:"name" json:"name"`
	MaxHealth     float64  `yaml:"max_health" json:"maxHealth"`
	MaxEnergy     float64  `yaml:"max_energy" json:"maxEnergy"`
	EnergyRegen   float64  `yaml:"energy_regen" json:"energyRegen"`
	Acceleration  float64  `yaml:"acceleration" json:"acceleration"`
	MaxSpeed      float64  `yaml:"max_speed" json:"maxSpeed"`
	TurnRate      float64  `yaml:"turn_rate" json:"turnRate"`
	CargoCapacity int      `yaml:"cargo_capacity" json:"cargoCapacity"`
	Weapons       []string `yaml:"weapons" json:"weapons"`
}

type Mineral struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Weight int    `yaml:"weight" json:"weight"`
	Value  int    `yaml:"value" json:"value"`
}

// Mining holds the mining mini-game ship and field parameters.
type Mining struct {
	MaxEnergy       float64 `yaml:"max_energy"`
	EnergyRegen     float64 `yaml:"energy_regen"` // per second
	LaserEnergyCost float64 `yaml:"laser_energy_cost"`
	Acceleration    float64 `yaml:"acceleration"`
	TurnRate        float64 `yaml:"turn_rate"`
	AsteroidSpeed   float64 `yaml:"asteroid_speed"`
	ArenaWidth      float64 `yaml:"arena_width"`
	ArenaHeight     float64 `yaml:"arena_height"`
}

type Rewards struct {
	BotExperience     int `yaml:"bot_experience"`
	BotCredits        int `yaml:"bot_credits"`
	InvaderExperience int `yaml:"invader_experience"`
	InvaderCredits    int `yaml:"invader_credits"`
	PvPExperience     int `yaml:"pvp_experience"`
	PvPCredits        int `yaml:"pvp_credits"`
}

type file struct {
	Weapons      []Weapon      `yaml:"weapons"`
	ShipClasses  []ShipClass   `yaml:"ship_classes"`
	BotClass     string        `yaml:"bot_class"`
	InvaderClass string        `yaml:"invader_class"`
	Mining       Mining        `yaml:"mining"`
	Minerals     []Mineral     `yaml:"minerals"`
	Rewards      Rewards       `yaml:"rewards"`
	Quests       []quest.Quest `yaml:"quests"`
}

// Catalog is read-only after Load and safe for concurrent use.
type Catalog struct {
	weapons      map[string]Weapon
	shipClasses  map[string]ShipClass
	minerals     []Mineral
	quests       []quest.Quest
	mineralTotal int

	BotClass     string
	InvaderClass string
	Mining       Mining
	Rewards      Rewards
}

// Load reads the catalog at path, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultCatalog)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the built-in catalog. It panics if the embedded file is
// invalid, which only happens on a broken build.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		weapons:      make(map[string]Weapon, len(f.Weapons)),
		shipClasses:  make(map[string]ShipClass, len(f.ShipClasses)),
		minerals:     f.Minerals,
		quests:       f.Quests,
		BotClass:     f.BotClass,
		InvaderClass: f.InvaderClass,
		Mining:       f.Mining,
		Rewards:      f.Rewards,
	}
	for _, w := range f.Weapons {
		c.weapons[w.ID] = w
	}
	for _, s := range f.ShipClasses {
		c.shipClasses[s.ID] = s
	}
	for _, m := range f.Minerals {
		c.mineralTotal += m.Weight
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	for _, s := range c.shipClasses {
		if s.MaxHealth <= 0 || s.MaxSpeed <= 0 {
			return fmt.Errorf("ship class %s needs positive max_health and max_speed", s.ID)
		}
		for _, w := range s.Weapons {
			if _, ok := c.weapons[w]; !ok {
				return fmt.Errorf("ship class %s references unknown weapon %s", s.ID, w)
			}
		}
	}
	if _, ok := c.shipClasses[c.BotClass]; !ok {
		return fmt.Errorf("bot_class %q is not a ship class", c.BotClass)
	}
	if _, ok := c.shipClasses[c.InvaderClass]; !ok {
		return fmt.Errorf("invader_class %q is not a ship class", c.InvaderClass)
	}
	if len(c.minerals) == 0 || c.mineralTotal <= 0 {
		return fmt.Errorf("catalog needs at least one mineral with positive weight")
	}
	seen := make(map[string]bool, len(c.quests))
	for _, q := range c.quests {
		if q.ID == "" || seen[q.ID] {
			return fmt.Errorf("quest ids must be unique and non-empty (%q)", q.ID)
		}
		if q.Objective.Count <= 0 {
			return fmt.Errorf("quest %s needs a positive objective count", q.ID)
		}
		seen[q.ID] = true
	}
	return nil
}

func (c *Catalog) Weapon(id string) (Weapon, bool) {
	w, ok := c.weapons[id]
	return w, ok
}

func (c *Catalog) ShipClass(id string) (ShipClass, bool) {
	s, ok := c.shipClasses[id]
	return s, ok
}

func (c *Catalog) Minerals() []Mineral {
	return append([]Mineral(nil), c.minerals...)
}

func (c *Catalog) Quests() []quest.Quest {
	return append([]quest.Quest(nil), c.quests...)
}

// PickMineral chooses a mineral by weight using roll in [0, 1).
func (c *Catalog) PickMineral(roll float64) Mineral {
	target := int(roll * float64(c.mineralTotal))
	current := 0
	for _, m := range c.minerals {
		current += m.Weight
		if target < current {
			return m
		}
	}
	return c.minerals[len(c.minerals)-1]
}

// MustShipClass is ShipClass for ids known to exist, such as the validated
// bot and invader classes.
func (c *Catalog) MustShipClass(id string) ShipClass {
	s, ok := c.shipClasses[id]
	if !ok {
		panic(fmt.Sprintf("catalog: unknown ship class %q", id))
	}
	return s
}
