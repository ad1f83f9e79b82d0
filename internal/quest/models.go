package quest

import "time"

type ObjectiveKind string

const (
	ObjectiveDefeatBots    ObjectiveKind = "defeat_bots"
	ObjectiveClearInvasion ObjectiveKind = "clear_invasion"
	ObjectiveWinPvP        ObjectiveKind = "win_pvp"
	ObjectiveMineMineral   ObjectiveKind = "mine_mineral"
	ObjectiveColonize      ObjectiveKind = "colonize"
)

// Objective is satisfied once Count matching events were recorded. An empty
// Target matches any event of the kind.
type Objective struct {
	Kind   ObjectiveKind `json:"kind" yaml:"kind"`
	Target string        `json:"target,omitempty" yaml:"target"`
	Count  int           `json:"count" yaml:"count"`
}

type Reward struct {
	Credits    int `json:"credits" yaml:"credits"`
	Experience int `json:"experience" yaml:"experience"`
}

type Quest struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description"`
	Objective   Objective `json:"objective" yaml:"objective"`
	Reward      Reward    `json:"reward" yaml:"reward"`
}

type Progress struct {
	QuestID     string     `json:"questId"`
	Count       int        `json:"count"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Event is something a player did that quests may count.
type Event struct {
	Kind   ObjectiveKind
	Target string
	Amount int
}
