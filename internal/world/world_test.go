package world

import (
	"context"
	"io"
	"log/slog"
	"starfront-server/internal/catalog"
	"starfront-server/internal/combat"
	"starfront-server/internal/hexmap"
	"starfront-server/internal/invasion"
	"starfront-server/internal/mining"
	"starfront-server/internal/persistence"
	"starfront-server/internal/shared/config"
	"starfront-server/internal/shared/errors"
	"sync"
	"testing"
	"time"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu         sync.Mutex
	events     map[string][]Event
	broadcasts []Event
}

func (r *recorder) PlayerEvent(playerID string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[playerID] = append(r.events[playerID], ev)
}

func (r *recorder) Broadcast(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, ev)
}

func (r *recorder) CombatSnapshot(combat.Snapshot) {}
func (r *recorder) MiningSnapshot(mining.Snapshot) {}

func (r *recorder) count(playerID, typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events[playerID] {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func (r *recorder) broadcastCount(typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.broadcasts {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

type harness struct {
	world *World
	clock *testClock
	repo  *persistence.Repository
	saver *persistence.Saver
	notes *recorder
}

var (
	// hostile space far from both NPC anchors
	frontier = hexmap.Coord{Q: -9, R: 2}
	cooldown = 3 * time.Second
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, repo *persistence.Repository) *harness {
	t.Helper()
	if repo == nil {
		repo = persistence.NewRepository(persistence.NewMemoryBackend(), testLogger())
	}
	saver := persistence.NewSaver(repo, config.StoreConfig{RetryBackoff: time.Millisecond}, testLogger())
	clock := &testClock{t: time.UnixMilli(1_700_000_000_000)}
	notes := &recorder{events: make(map[string][]Event)}

	w := New(Options{
		World: config.WorldConfig{
			Radius:            12,
			Seed:              7,
			MoveCooldown:      cooldown,
			TickInterval:      100 * time.Millisecond,
			DecayInterval:     5 * time.Minute,
			InvasionThreshold: 0.1,
			SecondaryAnchorQ:  7,
			SecondaryAnchorR:  -3,
			StartingShipClass: "scout",
		},
		Session: config.SessionConfig{
			CombatTick:     16 * time.Millisecond,
			MiningTick:     50 * time.Millisecond,
			BroadcastEvery: 3,
		},
		Catalog:  catalog.Default(),
		Store:    repo,
		Saver:    saver,
		Notifier: notes,
		Clock:    clock.Now,
		Logger:   testLogger(),
	})
	if err := w.Load(context.Background()); err != nil {
		t.Fatalf("load world: %v", err)
	}

	h := &harness{world: w, clock: clock, repo: repo, saver: saver, notes: notes}
	t.Cleanup(func() {
		w.Shutdown()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		saver.Close(ctx)
	})
	return h
}

func (h *harness) connect(t *testing.T, id string) {
	t.Helper()
	if _, err := h.world.Connect(context.Background(), id, "pilot-"+id); err != nil {
		t.Fatalf("connect %s: %v", id, err)
	}
}

func (h *harness) place(id string, c hexmap.Coord) {
	h.world.mu.Lock()
	h.world.players[id].Position = c
	h.world.mu.Unlock()
}

func (h *harness) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.saver.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestConnectCreatesPlayerAtOrigin(t *testing.T) {
	h := newHarness(t, nil)

	p, err := h.world.Connect(context.Background(), "p1", "ada")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if p.Position != (hexmap.Coord{}) || !p.CanMove || p.Ship.Class != "scout" {
		t.Fatalf("unexpected new player: %+v", p)
	}
	if len(p.Quests) != len(catalog.Default().Quests()) {
		t.Fatalf("expected every quest assigned, got %d", len(p.Quests))
	}

	again, err := h.world.Connect(context.Background(), "p1", "ada")
	if err != nil || again.CreatedAt != p.CreatedAt {
		t.Fatalf("reconnect must return the live record: %v", err)
	}

	state := h.world.GetState("p1")
	for _, c := range state.Cells {
		if c.Key == "0,0" && !c.Discovered {
			t.Fatalf("spawn hex must be discovered")
		}
	}
	if len(state.Players) != 1 || state.Player == nil {
		t.Fatalf("state must list the connected player")
	}

	if _, err := h.world.Connect(context.Background(), " ", "x"); errors.GetType(err) != errors.ErrorTypeValidation {
		t.Fatalf("expected validation error for blank id, got %v", err)
	}
}

func TestMoveCooldown(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t, "p1")

	p, err := h.world.MovePlayer("p1", hexmap.Coord{Q: 1, R: 0})
	if err != nil {
		t.Fatalf("first move: %v", err)
	}
	if p.CanMove || p.MoveTimer != h.clock.Now().Add(cooldown).UnixMilli() {
		t.Fatalf("move must start the cooldown: %+v", p)
	}

	h.clock.Advance(cooldown - time.Millisecond)
	h.world.tick()
	if _, err := h.world.MovePlayer("p1", hexmap.Coord{Q: 2, R: 0}); err == nil {
		t.Fatalf("move before the cooldown expired must fail")
	}

	h.clock.Advance(2 * time.Millisecond)
	h.world.tick()
	if h.notes.count("p1", EventCooldownExpired) != 1 {
		t.Fatalf("expected one cooldown_expired event")
	}
	p, err = h.world.MovePlayer("p1", hexmap.Coord{Q: 2, R: 0})
	if err != nil {
		t.Fatalf("move after cooldown: %v", err)
	}
	if p.Position != (hexmap.Coord{Q: 2, R: 0}) {
		t.Fatalf("position not updated: %v", p.Position)
	}

	cell, _ := h.world.hexes.Get(p.Position)
	if !cell.Discovered("p1") {
		t.Fatalf("target hex must be discovered by the mover")
	}
}

func TestMoveRejections(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t, "p1")

	if _, err := h.world.MovePlayer("p1", hexmap.Coord{Q: 2, R: 0}); errors.GetType(err) != errors.ErrorTypeValidation {
		t.Fatalf("two-hex jump must be rejected, got %v", err)
	}
	if _, err := h.world.MovePlayer("p1", hexmap.Coord{}); err == nil {
		t.Fatalf("staying in place must be rejected")
	}

	h.place("p1", hexmap.Coord{Q: 12, R: 0})
	if _, err := h.world.MovePlayer("p1", hexmap.Coord{Q: 13, R: 0}); errors.GetType(err) != errors.ErrorTypeNotFound {
		t.Fatalf("move off the map must be not found, got %v", err)
	}
	if _, err := h.world.MovePlayer("nobody", hexmap.Coord{Q: 1, R: 0}); errors.GetType(err) != errors.ErrorTypeNotFound {
		t.Fatalf("unknown player must be not found, got %v", err)
	}
}

func TestColonizeAndDevelop(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t, "p1")

	if _, err := h.world.ColonizeSystem("p1", frontier); err == nil {
		t.Fatalf("colonizing a system the player is not in must fail")
	}
	if _, err := h.world.ColonizeSystem("p1", hexmap.Coord{}); err == nil {
		t.Fatalf("colonizing the NPC core must fail")
	}

	h.place("p1", frontier)
	view, err := h.world.ColonizeSystem("p1", frontier)
	if err != nil {
		t.Fatalf("colonize: %v", err)
	}
	if view.Threat != hexmap.ColonyThreat || view.Owner != "p1" || !view.HasStation {
		t.Fatalf("unexpected colony: %+v", view)
	}
	if h.notes.count("p1", EventQuestCompleted) != 1 {
		t.Fatalf("colonizing must complete the settler quest")
	}

	p, _ := h.world.GetPlayer("p1")
	credits := p.Credits
	dev, err := h.world.DevelopColony("p1", frontier)
	if err != nil {
		t.Fatalf("develop: %v", err)
	}
	if dev.Threat <= hexmap.ColonyThreat {
		t.Fatalf("develop must raise threat, got %v", dev.Threat)
	}
	p, _ = h.world.GetPlayer("p1")
	if p.Credits != credits-developCost {
		t.Fatalf("develop must cost %d credits: %d -> %d", developCost, credits, p.Credits)
	}

	h.world.mu.Lock()
	h.world.players["p1"].Credits = developCost - 1
	h.world.mu.Unlock()
	if _, err := h.world.DevelopColony("p1", frontier); errors.GetType(err) != errors.ErrorTypeValidation {
		t.Fatalf("develop without credits must fail, got %v", err)
	}

	h.connect(t, "p2")
	h.world.mu.Lock()
	h.world.players["p2"].Credits = 1000
	h.world.mu.Unlock()
	if _, err := h.world.DevelopColony("p2", frontier); errors.GetType(err) != errors.ErrorTypeForbidden {
		t.Fatalf("developing someone else's colony must be forbidden, got %v", err)
	}
}

func TestBotCombatScalesWithThreat(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t, "p1")
	h.place("p1", frontier)

	cell, _ := h.world.hexes.Get(frontier)
	snap, err := h.world.StartBotCombat("p1")
	if err != nil {
		t.Fatalf("start bot combat: %v", err)
	}

	bots := 0
	for _, s := range snap.Ships {
		if s.Kind == combat.KindBot {
			bots++
		}
	}
	if bots != combat.BotCount(cell.Threat) {
		t.Fatalf("threat %.2f: expected %d bots, got %d", cell.Threat, combat.BotCount(cell.Threat), bots)
	}

	if _, err := h.world.StartBotCombat("p1"); err == nil {
		t.Fatalf("a second combat must be rejected")
	}
	if _, err := h.world.StartMining("p1"); err == nil {
		t.Fatalf("mining during combat must be rejected")
	}
	if !h.world.ApplyControl("p1", combat.Control{Thrust: 1}) {
		t.Fatalf("control for a running combat must be accepted")
	}

	result, err := h.world.EndCombat("p1")
	if err != nil || result.Reason != combat.ReasonFinished {
		t.Fatalf("end combat: %+v %v", result, err)
	}
	if h.world.ApplyControl("p1", combat.Control{Thrust: 1}) {
		t.Fatalf("control after the combat ended must be ignored")
	}
	if _, err := h.world.GetCombat("p1"); err == nil {
		t.Fatalf("no combat should remain")
	}
}

func TestBotVictoryRewardsAndWritesBackHealth(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t, "p1")
	h.place("p1", frontier)

	snap, err := h.world.StartBotCombat("p1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	h.world.combats.End(snap.SessionID, combat.ReasonFinished)

	result := combat.Result{
		SessionID: snap.SessionID,
		Type:      combat.TypeBot,
		Winner:    combat.SidePlayers,
		Reason:    combat.ReasonElimination,
		Ships:     []combat.ShipOutcome{{ID: "p1", Kind: combat.KindHuman, Side: combat.SidePlayers, Health: 42, Alive: true}},
	}
	for _, s := range snap.Ships {
		if s.Kind == combat.KindBot {
			result.Ships = append(result.Ships, combat.ShipOutcome{ID: s.ID, Kind: combat.KindBot, Side: combat.SideBots})
		}
	}
	bots := result.CountKind(combat.KindBot)

	before, _ := h.world.GetPlayer("p1")
	h.world.onCombatEnd(result)
	after, _ := h.world.GetPlayer("p1")

	if after.Ship.Health != 42 {
		t.Fatalf("health must be written back, got %v", after.Ship.Health)
	}
	rewards := catalog.Default().Rewards
	if after.Credits < before.Credits+rewards.BotCredits*bots {
		t.Fatalf("expected at least %d credits for %d bots, got %d", rewards.BotCredits*bots, bots, after.Credits-before.Credits)
	}
	if after.Experience < rewards.BotExperience*bots {
		t.Fatalf("expected experience for beaten bots, got %d", after.Experience)
	}

	// resolving the same session twice must be a no-op
	h.world.onCombatEnd(result)
	again, _ := h.world.GetPlayer("p1")
	if again.Credits != after.Credits {
		t.Fatalf("double resolution paid out twice")
	}
}

func TestPvPRequiresSameSystem(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t, "p1")
	h.connect(t, "p2")
	h.place("p2", hexmap.Coord{Q: 1, R: 0})

	if _, err := h.world.StartPvPCombat("p1", "p2"); err == nil {
		t.Fatalf("pvp across systems must fail")
	}
	if _, err := h.world.StartPvPCombat("p1", "p1"); err == nil {
		t.Fatalf("self duel must fail")
	}

	h.place("p2", hexmap.Coord{})
	snap, err := h.world.StartPvPCombat("p1", "p2")
	if err != nil {
		t.Fatalf("pvp: %v", err)
	}
	if len(snap.Ships) != 2 || snap.Joinable {
		t.Fatalf("unexpected pvp session: %+v", snap)
	}

	h.world.Disconnect("p2")
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := h.world.GetCombat("p1"); err != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := h.world.GetCombat("p1"); err == nil {
		t.Fatalf("disconnecting must forfeit the duel")
	}
	if h.notes.count("p1", EventCombatEnded) != 1 {
		t.Fatalf("expected combat_ended for the winner")
	}
}

// startInvasion founds a colony at frontier and lets it collapse.
func startInvasion(t *testing.T, h *harness) invasion.State {
	t.Helper()
	h.place("p1", frontier)
	if _, err := h.world.ColonizeSystem("p1", frontier); err != nil {
		t.Fatalf("colonize: %v", err)
	}
	h.world.mu.Lock()
	if err := h.world.hexes.SetSourceThreat(frontier, hexmap.DecayFloor); err != nil {
		h.world.mu.Unlock()
		t.Fatalf("set threat: %v", err)
	}
	h.world.mu.Unlock()

	h.world.tick()
	active := h.world.ActiveInvasions()
	if len(active) != 1 || active[0].SourceHexKey != frontier.Key() {
		t.Fatalf("expected an invasion at the collapsed colony, got %+v", active)
	}

	h.world.tick()
	if len(h.world.ActiveInvasions()) != 1 {
		t.Fatalf("invasion start must be idempotent")
	}
	return active[0]
}

func defenderWin(snap combat.Snapshot, state invasion.State, hexKey string) combat.Result {
	result := combat.Result{
		SessionID:  snap.SessionID,
		Type:       combat.TypeInvasion,
		InvasionID: state.ID,
		HexKey:     hexKey,
		Winner:     combat.SideDefenders,
		Reason:     combat.ReasonElimination,
	}
	for _, s := range snap.Ships {
		result.Ships = append(result.Ships, combat.ShipOutcome{
			ID:     s.ID,
			Kind:   s.Kind,
			Side:   s.Side,
			Health: s.Health,
			Alive:  s.Kind == combat.KindHuman,
		})
	}
	return result
}

func TestInvasionCombatCommitsAndReturnsInvaders(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t, "p1")
	state := startInvasion(t, h)

	hex := state.NeighborHexKeys[0]
	coord, _ := hexmap.ParseKey(hex)
	h.place("p1", coord)

	snap, err := h.world.StartInvasionCombat("p1")
	if err != nil {
		t.Fatalf("start invasion combat: %v", err)
	}
	invaders := 0
	for _, s := range snap.Ships {
		if s.Kind == combat.KindInvader {
			invaders++
		}
	}
	if invaders != invasion.EnemiesPerHex || !snap.Joinable {
		t.Fatalf("expected %d invaders in a joinable session, got %d", invasion.EnemiesPerHex, invaders)
	}
	if got := h.world.ActiveInvasions()[0].EnemyCountPerHex[hex]; got != 0 {
		t.Fatalf("invaders must be committed to the fight, %d left", got)
	}

	h.connect(t, "p2")
	h.place("p2", coord)
	joined, err := h.world.StartInvasionCombat("p2")
	if err != nil || joined.SessionID != snap.SessionID {
		t.Fatalf("second defender must join the running fight: %v", err)
	}

	if _, err := h.world.EndCombat("p1"); err != nil {
		t.Fatalf("end combat: %v", err)
	}
	if got := h.world.ActiveInvasions()[0].EnemyCountPerHex[hex]; got != invasion.EnemiesPerHex {
		t.Fatalf("an unfinished fight must return its invaders, got %d", got)
	}
}

func TestClearingEveryHexEndsInvasion(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t, "p1")
	state := startInvasion(t, h)

	for i, hex := range state.NeighborHexKeys {
		coord, _ := hexmap.ParseKey(hex)
		h.place("p1", coord)

		snap, err := h.world.StartInvasionCombat("p1")
		if err != nil {
			t.Fatalf("hex %s: %v", hex, err)
		}
		h.world.combats.End(snap.SessionID, combat.ReasonFinished)
		h.world.onCombatEnd(defenderWin(snap, state, hex))

		active := h.world.ActiveInvasions()
		if i < len(state.NeighborHexKeys)-1 {
			if len(active) != 1 || active[0].EnemyCountPerHex[hex] != 0 {
				t.Fatalf("hex %s must stay cleared: %+v", hex, active)
			}
			continue
		}
		if len(active) != 0 {
			t.Fatalf("invasion must be cleared after the last hex, got %+v", active)
		}
	}

	cell, _ := h.world.hexes.Get(frontier)
	if cell.Threat != hexmap.ColonyThreat {
		t.Fatalf("source must be restored to %v, got %v", hexmap.ColonyThreat, cell.Threat)
	}
	if h.notes.broadcastCount(EventInvasionCleared) != 1 {
		t.Fatalf("expected one invasion_cleared broadcast")
	}

	p, _ := h.world.GetPlayer("p1")
	for _, q := range p.Quests {
		if q.QuestID == "home-defense" && !q.Completed {
			t.Fatalf("clearing the invasion must complete home-defense")
		}
	}

	h.flush(t)
	stored, err := h.repo.LoadInvasions(context.Background())
	if err != nil || len(stored) != 0 {
		t.Fatalf("cleared invasion must be removed from the store: %+v %v", stored, err)
	}
}

func TestEdgeColonyInvasionCanBeCleared(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t, "p1")

	edge := hexmap.Coord{Q: 12, R: 0}
	if cell, _ := h.world.hexes.Get(edge); cell.Threat > 0 || cell.Owner != "" {
		for _, c := range h.world.hexes.Cells() {
			if hexmap.Distance(hexmap.Coord{}, c.Coord) == 12 && c.Threat <= 0 && c.Owner == "" {
				edge = c.Coord
				break
			}
		}
	}
	h.place("p1", edge)
	if _, err := h.world.ColonizeSystem("p1", edge); err != nil {
		t.Fatalf("colonize edge %s: %v", edge, err)
	}
	h.world.mu.Lock()
	if err := h.world.hexes.SetSourceThreat(edge, 0.1); err != nil {
		h.world.mu.Unlock()
		t.Fatalf("set threat: %v", err)
	}
	h.world.mu.Unlock()

	h.world.tick()
	active := h.world.ActiveInvasions()
	if len(active) != 1 || active[0].SourceHexKey != edge.Key() {
		t.Fatalf("expected an invasion at the edge colony, got %+v", active)
	}
	state := active[0]
	if len(state.NeighborHexKeys) == 0 || len(state.NeighborHexKeys) >= 6 {
		t.Fatalf("edge colony must have fewer than six invaded neighbors, got %v", state.NeighborHexKeys)
	}

	for _, hex := range state.NeighborHexKeys {
		coord, _ := hexmap.ParseKey(hex)
		if _, ok := h.world.hexes.Get(coord); !ok {
			t.Fatalf("invaders seeded off the map at %s", hex)
		}
		h.place("p1", coord)
		snap, err := h.world.StartInvasionCombat("p1")
		if err != nil {
			t.Fatalf("hex %s: %v", hex, err)
		}
		h.world.combats.End(snap.SessionID, combat.ReasonFinished)
		h.world.onCombatEnd(defenderWin(snap, state, hex))
	}

	if active := h.world.ActiveInvasions(); len(active) != 0 {
		t.Fatalf("edge invasion must clear once every reachable hex is won, got %+v", active)
	}
	if h.notes.broadcastCount(EventInvasionCleared) != 1 {
		t.Fatalf("expected one invasion_cleared broadcast")
	}
}

func TestMiningStartAndExit(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t, "p1")

	var cell hexmap.Cell
	for _, c := range h.world.hexes.Cells() {
		if c.Resources > 0 {
			cell = c
			break
		}
	}
	if cell.Resources == 0 {
		t.Fatalf("no minable system on the test map")
	}
	h.place("p1", cell.Coord)

	snap, err := h.world.StartMining("p1")
	if err != nil {
		t.Fatalf("start mining: %v", err)
	}
	if len(snap.Asteroids) != mining.FieldSize(cell.Resources) {
		t.Fatalf("expected %d asteroids, got %d", mining.FieldSize(cell.Resources), len(snap.Asteroids))
	}
	if _, err := h.world.StartMining("p1"); err == nil {
		t.Fatalf("second mining run must be rejected")
	}
	if _, err := h.world.MovePlayer("p1", cell.Coord.Neighbors()[0]); err == nil {
		t.Fatalf("moving while mining must be rejected")
	}
	if !h.world.SetMiningControl("p1", mining.Control{Firing: true}) {
		t.Fatalf("control for a running session must be accepted")
	}

	if _, err := h.world.ExitMining("p1"); err != nil {
		t.Fatalf("exit: %v", err)
	}
	if h.world.SetMiningControl("p1", mining.Control{Thrust: 1}) {
		t.Fatalf("control after exit must be ignored")
	}
	if _, err := h.world.ExitMining("p1"); errors.GetType(err) != errors.ErrorTypeNotFound {
		t.Fatalf("second exit must be not found, got %v", err)
	}
}

func TestLoadCargoStoresUpToCapacity(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t, "p1")

	h.world.mu.Lock()
	p := h.world.players["p1"]
	capacity := p.Ship.Cargo.Capacity
	var out outbox
	outcome := h.world.loadCargo(p, map[string]int{"iron": capacity - 5, "titanium": 8}, &out)
	h.world.mu.Unlock()

	if outcome.Stored["iron"] != capacity-5 || outcome.Stored["titanium"] != 5 {
		t.Fatalf("unexpected stored amounts: %+v", outcome.Stored)
	}
	if outcome.Overflow["titanium"] != 3 {
		t.Fatalf("expected 3 titanium overflow, got %+v", outcome.Overflow)
	}
	if outcome.Cargo.Free() != 0 {
		t.Fatalf("hold must be full")
	}
}

func TestDepositCargoAtStation(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t, "p1")

	h.world.mu.Lock()
	h.world.players["p1"].Ship.Cargo.Add("iron", 7)
	h.world.mu.Unlock()

	storage, err := h.world.DepositCargo(context.Background(), "p1")
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if len(storage.Items) != 1 || storage.Items[0].Quantity != 7 {
		t.Fatalf("unexpected locker: %+v", storage)
	}
	p, _ := h.world.GetPlayer("p1")
	if p.Ship.Cargo.Used() != 0 {
		t.Fatalf("hold must be empty after deposit")
	}

	h.place("p1", frontier)
	if _, err := h.world.DepositCargo(context.Background(), "p1"); errors.GetType(err) != errors.ErrorTypeValidation {
		t.Fatalf("deposit away from a station must fail, got %v", err)
	}

	h.flush(t)
	stored, err := h.repo.LoadStationStorage(context.Background(), storage.ID)
	if err != nil || stored == nil || stored.Items[0].Quantity != 7 {
		t.Fatalf("locker not persisted: %+v %v", stored, err)
	}
}

func TestPlanetarySystemIsGeneratedOnce(t *testing.T) {
	h := newHarness(t, nil)

	var target hexmap.Coord
	found := false
	for _, c := range h.world.hexes.Cells() {
		if c.SystemType == hexmap.SystemTypePlanetary {
			target, found = c.Coord, true
			break
		}
	}
	if !found {
		t.Fatalf("no planetary system on the test map")
	}

	first, err := h.world.GetPlanetarySystem(context.Background(), target)
	if err != nil {
		t.Fatalf("get system: %v", err)
	}
	second, _ := h.world.GetPlanetarySystem(context.Background(), target)
	if first.ID != second.ID || len(first.Planets) == 0 {
		t.Fatalf("system must be stable: %s vs %s", first.ID, second.ID)
	}
	cell, _ := h.world.hexes.Get(target)
	if cell.PlanetarySystemID != first.ID {
		t.Fatalf("hex must link the generated system")
	}

	h.flush(t)
	stored, err := h.repo.LoadPlanetarySystem(context.Background(), target.Key())
	if err != nil || stored == nil || stored.ID != first.ID {
		t.Fatalf("system not persisted: %v", err)
	}
}

func TestWorldSurvivesRestart(t *testing.T) {
	repo := persistence.NewRepository(persistence.NewMemoryBackend(), testLogger())

	h := newHarness(t, repo)
	h.connect(t, "p1")
	h.place("p1", frontier)
	if _, err := h.world.ColonizeSystem("p1", frontier); err != nil {
		t.Fatalf("colonize: %v", err)
	}
	h.world.Disconnect("p1")
	h.flush(t)

	restarted := newHarness(t, repo)
	cell, ok := restarted.world.hexes.Get(frontier)
	if !ok || cell.Owner != "p1" || cell.Threat != hexmap.ColonyThreat {
		t.Fatalf("colony lost across restart: %+v", cell)
	}
	p, err := restarted.world.Connect(context.Background(), "p1", "")
	if err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if p.Position != frontier || p.Username != "pilot-p1" {
		t.Fatalf("player lost across restart: %+v", p)
	}
}

func TestTrainSkill(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t, "p1")

	if _, err := h.world.TrainSkill("p1", "hull"); err == nil {
		t.Fatalf("training without skill points must fail")
	}
	h.world.mu.Lock()
	h.world.players["p1"].SkillPoints = 1
	h.world.mu.Unlock()

	p, err := h.world.TrainSkill("p1", "hull")
	if err != nil || p.Skills["hull"] != 1 || p.SkillPoints != 0 {
		t.Fatalf("train: %+v %v", p, err)
	}
}
