package world

import (
	"starfront-server/internal/combat"
	"starfront-server/internal/hexmap"
	"starfront-server/internal/invasion"
	"starfront-server/internal/mining"
	"starfront-server/internal/player"
)

// PhaseRunning is the only phase a live world is in.
const PhaseRunning = "running"

// Event types pushed to clients.
const (
	EventCooldownExpired = "cooldown_expired"
	EventPlayerMoved     = "player_moved"
	EventColonyFounded   = "colony_founded"
	EventColonyDeveloped = "colony_developed"
	EventColoniesDecayed = "colonies_decayed"
	EventInvasionStarted = "invasion_started"
	EventInvasionUpdated = "invasion_updated"
	EventInvasionCleared = "invasion_cleared"
	EventCombatStarted   = "combat_started"
	EventCombatEnded     = "combat_ended"
	EventMiningEnded     = "mining_ended"
	EventQuestCompleted  = "quest_completed"
	EventLevelUp         = "level_up"
)

// developCost is the credit price of one colony development step.
const developCost = 100

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Notifier delivers events and session snapshots to clients. Implementations
// must not block and must not call back into the World.
type Notifier interface {
	PlayerEvent(playerID string, ev Event)
	Broadcast(ev Event)
	CombatSnapshot(snap combat.Snapshot)
	MiningSnapshot(snap mining.Snapshot)
}

type nopNotifier struct{}

func (nopNotifier) PlayerEvent(string, Event)      {}
func (nopNotifier) Broadcast(Event)                {}
func (nopNotifier) CombatSnapshot(combat.Snapshot) {}
func (nopNotifier) MiningSnapshot(mining.Snapshot) {}

// CellView is the client view of one hex.
type CellView struct {
	Key               string            `json:"key"`
	Coordinates       hexmap.Coord      `json:"coordinates"`
	SystemType        hexmap.SystemType `json:"systemType"`
	Threat            float64           `json:"threat"`
	Owner             string            `json:"owner,omitempty"`
	HasStation        bool              `json:"hasStation"`
	Resources         int               `json:"resources"`
	Discovered        bool              `json:"discovered"`
	PlanetarySystemID string            `json:"planetarySystemId,omitempty"`
}

func newCellView(c hexmap.Cell, playerID string) CellView {
	return CellView{
		Key:               c.Coord.Key(),
		Coordinates:       c.Coord,
		SystemType:        c.SystemType,
		Threat:            c.Threat,
		Owner:             c.Owner,
		HasStation:        c.HasStation,
		Resources:         c.Resources,
		Discovered:        c.Discovered(playerID),
		PlanetarySystemID: c.PlanetarySystemID,
	}
}

type PlayerPosition struct {
	ID       string       `json:"id"`
	Username string       `json:"username"`
	Position hexmap.Coord `json:"position"`
}

// State is everything a client needs to render the map.
type State struct {
	Phase     string           `json:"phase"`
	Radius    int              `json:"radius"`
	Cells     []CellView       `json:"map"`
	Player    *player.Player   `json:"player,omitempty"`
	Players   []PlayerPosition `json:"players"`
	Invasions []invasion.State `json:"invasions"`
	CombatID  string           `json:"combatId,omitempty"`
	MiningID  string           `json:"miningId,omitempty"`
}

// MiningOutcome reports what a finished mining run put into the hold.
type MiningOutcome struct {
	Collected map[string]int `json:"collected"`
	Stored    map[string]int `json:"stored"`
	Overflow  map[string]int `json:"overflow,omitempty"`
	Cargo     player.Cargo   `json:"cargo"`
}

type notice struct {
	playerID string // empty broadcasts
	event    Event
}

// outbox collects events raised under the world lock so they can be sent
// after it is released.
type outbox []notice

func (o *outbox) player(playerID, typ string, data any) {
	*o = append(*o, notice{playerID: playerID, event: Event{Type: typ, Data: data}})
}

func (o *outbox) broadcast(typ string, data any) {
	*o = append(*o, notice{event: Event{Type: typ, Data: data}})
}

func (o outbox) flush(n Notifier) {
	// events go out in the order they were raised
	for _, m := range o {
		if m.playerID == "" {
			n.Broadcast(m.event)
		} else {
			n.PlayerEvent(m.playerID, m.event)
		}
	}
}
