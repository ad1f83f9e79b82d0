// Package world is the authoritative game orchestrator. Every player and hex
// mutation goes through a World method, serialized by one lock.
package world

import (
	"context"
	"fmt"
	"log/slog"
	"starfront-server/internal/catalog"
	"starfront-server/internal/combat"
	"starfront-server/internal/hexmap"
	"starfront-server/internal/invasion"
	"starfront-server/internal/mining"
	"starfront-server/internal/persistence"
	"starfront-server/internal/player"
	"starfront-server/internal/quest"
	"starfront-server/internal/shared/config"
	"sync"
	"time"
)

type Options struct {
	World    config.WorldConfig
	Session  config.SessionConfig
	Catalog  *catalog.Catalog
	Store    persistence.Store
	Saver    *persistence.Saver
	Notifier Notifier
	Clock    func() time.Time
	Logger   *slog.Logger
}

// encounter is the world's bookkeeping for one running combat session.
type encounter struct {
	session    *combat.Session
	invasionID string
	hexKey     string
	committed  int
	humans     []string
}

type World struct {
	mu sync.Mutex

	cfg      config.WorldConfig
	catalog  *catalog.Catalog
	store    persistence.Store
	saver    *persistence.Saver
	notifier Notifier
	now      func() time.Time
	logger   *slog.Logger

	phase     string
	hexes     *hexmap.Map
	invasions *invasion.Engine
	combats   *combat.Manager
	mines     *mining.Manager

	players    map[string]*player.Player
	online     map[string]bool
	inCombat   map[string]string // player id -> combat session id
	inMining   map[string]string // player id -> mining session id
	encounters map[string]*encounter
	quests     map[string]quest.Quest
	questList  []quest.Quest
	storages   map[string]*player.StationStorage
	systems    map[string]hexmap.PlanetarySystem

	shutdownOnce sync.Once
}

func New(opts Options) *World {
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.World.TickInterval <= 0 {
		opts.World.TickInterval = 100 * time.Millisecond
	}

	logger := opts.Logger.With("component", "world")
	return &World{
		cfg:        opts.World,
		catalog:    opts.Catalog,
		store:      opts.Store,
		saver:      opts.Saver,
		notifier:   opts.Notifier,
		now:        opts.Clock,
		logger:     logger,
		phase:      PhaseRunning,
		invasions:  invasion.NewEngine(opts.Logger),
		combats:    combat.NewManager(opts.Session.CombatTick, opts.Session.BroadcastEvery, opts.Logger),
		mines:      mining.NewManager(opts.Session.MiningTick, opts.Session.BroadcastEvery, opts.Logger),
		players:    make(map[string]*player.Player),
		online:     make(map[string]bool),
		inCombat:   make(map[string]string),
		inMining:   make(map[string]string),
		encounters: make(map[string]*encounter),
		quests:     make(map[string]quest.Quest),
		storages:   make(map[string]*player.StationStorage),
		systems:    make(map[string]hexmap.PlanetarySystem),
	}
}

// Load restores the map, invasions and quests from the store, generating a
// fresh map on first boot. It must run before any other method.
func (w *World) Load(ctx context.Context) error {
	logger := w.logger.With("operation", "load")

	saved, err := w.store.LoadWorld(ctx)
	if err != nil {
		logger.Error("Failed to load world", "error", err)
		return fmt.Errorf("failed to load world: %w", err)
	}

	if saved == nil {
		anchors := []hexmap.Anchor{
			{Coord: hexmap.Coord{}, Threat: hexmap.MaxThreat},
			{Coord: hexmap.Coord{Q: w.cfg.SecondaryAnchorQ, R: w.cfg.SecondaryAnchorR}, Threat: hexmap.ColonyThreat},
		}
		w.hexes = hexmap.Generate(w.cfg.Radius, w.cfg.Seed, anchors)
		logger.Info("Generated new world", "radius", w.cfg.Radius, "seed", w.cfg.Seed, "cells", w.hexes.Len())
		if err := w.store.SaveWorld(ctx, w.worldSnapshot()); err != nil {
			logger.Error("Failed to save generated world", "error", err)
			return fmt.Errorf("failed to save generated world: %w", err)
		}
	} else {
		w.hexes = hexmap.Restore(saved.Radius, saved.Seed, saved.Cells)
		if saved.Phase != "" {
			w.phase = saved.Phase
		}
		logger.Info("Restored world", "radius", saved.Radius, "cells", w.hexes.Len())
	}
	if w.cfg.DecayInterval > 0 {
		w.hexes.SetDecayInterval(w.cfg.DecayInterval)
	}

	states, err := w.store.LoadInvasions(ctx)
	if err != nil {
		logger.Error("Failed to load invasions", "error", err)
		return fmt.Errorf("failed to load invasions: %w", err)
	}
	w.invasions.Restore(states)

	for _, q := range w.catalog.Quests() {
		if _, err := w.store.EnsureQuest(ctx, q); err != nil {
			logger.Error("Failed to ensure quest", "quest_id", q.ID, "error", err)
			return fmt.Errorf("failed to ensure quest %s: %w", q.ID, err)
		}
	}
	quests, err := w.store.ListQuests(ctx)
	if err != nil {
		logger.Error("Failed to list quests", "error", err)
		return fmt.Errorf("failed to list quests: %w", err)
	}
	w.questList = quests
	for _, q := range quests {
		w.quests[q.ID] = q
	}

	logger.Info("World loaded", "invasions", len(w.invasions.Active()), "quests", len(quests))
	return nil
}

// Run ticks the world until ctx is cancelled.
func (w *World) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.TickInterval)
	defer ticker.Stop()

	w.logger.Info("World tick started", "operation", "run", "interval", w.cfg.TickInterval)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("World tick stopped", "operation", "run")
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

// tick expires move cooldowns, decays colonies and starts invasions at
// collapsed colonies.
func (w *World) tick() {
	now := w.now()
	nowMs := now.UnixMilli()

	w.mu.Lock()
	var out outbox
	defer func() {
		w.mu.Unlock()
		out.flush(w.notifier)
	}()

	for id, p := range w.players {
		if p.CanMove || p.MoveTimer > nowMs {
			continue
		}
		p.CanMove = true
		w.savePlayer(p)
		if w.online[id] {
			out.player(id, EventCooldownExpired, map[string]any{"playerId": id, "position": p.Position})
		}
	}

	worldChanged := false
	if w.hexes.CheckColonyDecay(now) {
		worldChanged = true
		out.broadcast(EventColoniesDecayed, w.colonyViews())
	}

	started := false
	for _, colony := range w.hexes.Colonies() {
		if colony.Threat > w.cfg.InvasionThreshold {
			continue
		}
		// nil while an invasion already anchors this colony
		state := w.invasions.Start(colony.Coord, now, w.hexes.Has)
		if state == nil {
			continue
		}
		started = true
		w.logger.Info("Colony collapsed, invasion started", "operation", "tick", "hex_key", colony.Coord.Key(), "owner", colony.Owner, "invasion_id", state.ID)
		out.broadcast(EventInvasionStarted, state)
	}

	if worldChanged {
		w.saveWorld()
	}
	if started {
		w.saveInvasions()
	}
}

// Shutdown stops every session loop and queues a final save of every
// aggregate. It does not close the saver.
func (w *World) Shutdown() {
	w.shutdownOnce.Do(func() {
		// session loops may be waiting on the world lock in their end hooks
		w.combats.Shutdown()
		w.mines.Shutdown()

		w.mu.Lock()
		defer w.mu.Unlock()
		for id, enc := range w.encounters {
			if enc.invasionID != "" && enc.committed > 0 {
				w.invasions.Increment(enc.invasionID, enc.hexKey, enc.committed)
			}
			delete(w.encounters, id)
		}
		for _, p := range w.players {
			w.savePlayer(p)
		}
		w.saveWorld()
		w.saveInvasions()
		w.logger.Info("World shut down", "operation", "shutdown", "players", len(w.players))
	})
}

func (w *World) worldSnapshot() persistence.World {
	return persistence.World{
		Phase:  w.phase,
		Radius: w.hexes.Radius(),
		Seed:   w.hexes.Seed(),
		Cells:  w.hexes.Cells(),
	}
}

func (w *World) saveWorld() {
	w.saver.SaveWorld(w.worldSnapshot())
}

func (w *World) saveInvasions() {
	w.saver.SaveInvasions(w.invasions.Active())
}

func (w *World) savePlayer(p *player.Player) {
	p.UpdatedAt = w.now()
	w.saver.SavePlayer(p)
}

func (w *World) colonyViews() []CellView {
	colonies := w.hexes.Colonies()
	out := make([]CellView, 0, len(colonies))
	for _, c := range colonies {
		out = append(out, newCellView(c, ""))
	}
	return out
}

// applyQuestEvent counts ev for p and rewards every quest it completes.
func (w *World) applyQuestEvent(p *player.Player, ev quest.Event, out *outbox) {
	completed := quest.Apply(p.Quests, w.quests, ev, w.now())
	for _, q := range completed {
		p.Credits += q.Reward.Credits
		w.grantExperience(p, q.Reward.Experience, out)
		w.logger.Info("Quest completed", "operation", "quest", "player_id", p.ID, "quest_id", q.ID)
		out.player(p.ID, EventQuestCompleted, q)
	}
}

func (w *World) grantExperience(p *player.Player, xp int, out *outbox) {
	if gained := p.GrantExperience(xp); gained > 0 {
		out.player(p.ID, EventLevelUp, map[string]any{"level": p.Level, "skillPoints": p.SkillPoints})
	}
}
