package world

import (
	"fmt"
	"starfront-server/internal/combat"
	"starfront-server/internal/invasion"
	"starfront-server/internal/player"
	"starfront-server/internal/quest"
	"starfront-server/internal/shared/errors"

	"github.com/google/uuid"
)

// maxInvadersPerCombat caps how many of a hex's invaders one fight commits.
const maxInvadersPerCombat = 3

// StartPvPCombat starts a duel between two players in the same system.
func (w *World) StartPvPCombat(playerID, targetID string) (combat.Snapshot, error) {
	w.mu.Lock()
	var out outbox
	defer func() {
		w.mu.Unlock()
		out.flush(w.notifier)
	}()

	if playerID == targetID {
		return combat.Snapshot{}, errors.Validation("you cannot fight yourself")
	}
	attacker, err := w.readyForCombat(playerID)
	if err != nil {
		return combat.Snapshot{}, err
	}
	defender, err := w.readyForCombat(targetID)
	if err != nil {
		if errors.GetType(err) == errors.ErrorTypeNotFound {
			return combat.Snapshot{}, errors.NotFound("target is not connected")
		}
		return combat.Snapshot{}, errors.Validation("target is busy")
	}
	if attacker.Position != defender.Position {
		return combat.Snapshot{}, errors.Validation("target is not in your system")
	}

	ships := []*combat.ShipState{
		w.humanShip(attacker, attacker.ID),
		w.humanShip(defender, defender.ID),
	}
	session := combat.NewSession(combat.Options{
		Type:   combat.TypePvP,
		HexKey: attacker.Position.Key(),
		Now:    w.now(),
	}, ships)

	return w.startEncounterLocked(&encounter{session: session, hexKey: attacker.Position.Key()}, []string{attacker.ID, defender.ID}, &out)
}

// StartBotCombat pits the player against raiders scaled by the threat of
// their system.
func (w *World) StartBotCombat(playerID string) (combat.Snapshot, error) {
	w.mu.Lock()
	var out outbox
	defer func() {
		w.mu.Unlock()
		out.flush(w.notifier)
	}()

	p, err := w.readyForCombat(playerID)
	if err != nil {
		return combat.Snapshot{}, err
	}
	cell, ok := w.hexes.Get(p.Position)
	if !ok {
		return combat.Snapshot{}, errors.NotFound("current system does not exist")
	}

	count := combat.BotCount(cell.Threat)
	ships := []*combat.ShipState{w.humanShip(p, combat.SidePlayers)}
	ships = append(ships, w.aiShips(combat.KindBot, combat.SideBots, w.catalog.BotClass, count)...)

	session := combat.NewSession(combat.Options{
		Type:   combat.TypeBot,
		HexKey: cell.Coord.Key(),
		Now:    w.now(),
	}, ships)

	w.logger.Debug("Starting bot combat", "operation", "start_bot_combat", "player_id", playerID, "hex_key", cell.Coord.Key(), "threat", cell.Threat, "bots", count)
	return w.startEncounterLocked(&encounter{session: session, hexKey: cell.Coord.Key()}, []string{p.ID}, &out)
}

// StartInvasionCombat fights the invaders in the player's system. A fight
// already running there is joined instead of starting a new one.
func (w *World) StartInvasionCombat(playerID string) (combat.Snapshot, error) {
	w.mu.Lock()
	var out outbox
	defer func() {
		w.mu.Unlock()
		out.flush(w.notifier)
	}()

	logger := w.logger.With("operation", "start_invasion_combat", "player_id", playerID)

	p, err := w.readyForCombat(playerID)
	if err != nil {
		return combat.Snapshot{}, err
	}
	hexKey := p.Position.Key()

	for _, enc := range w.encounters {
		if enc.invasionID == "" || enc.hexKey != hexKey || !enc.session.Joinable() {
			continue
		}
		if !enc.session.AddShip(w.humanShip(p, combat.SideDefenders)) {
			continue
		}
		enc.humans = append(enc.humans, p.ID)
		w.inCombat[p.ID] = enc.session.ID()
		logger.Info("Player joined invasion combat", "session_id", enc.session.ID(), "invasion_id", enc.invasionID)
		out.player(p.ID, EventCombatStarted, map[string]any{"sessionId": enc.session.ID(), "type": combat.TypeInvasion})
		return enc.session.Snapshot(), nil
	}

	var target *invasion.State
	for _, st := range w.invasions.ByHex(hexKey) {
		if st.EnemyCountPerHex[hexKey] > 0 {
			target = &st
			break
		}
	}
	if target == nil {
		return combat.Snapshot{}, errors.Validation("there are no invaders in this system")
	}

	committed := min(maxInvadersPerCombat, target.EnemyCountPerHex[hexKey])
	remaining, _ := w.invasions.Decrement(target.ID, hexKey, committed)

	ships := []*combat.ShipState{w.humanShip(p, combat.SideDefenders)}
	ships = append(ships, w.aiShips(combat.KindInvader, combat.SideInvaders, w.catalog.InvaderClass, committed)...)
	session := combat.NewSession(combat.Options{
		Type:       combat.TypeInvasion,
		InvasionID: target.ID,
		HexKey:     hexKey,
		Joinable:   true,
		Now:        w.now(),
	}, ships)

	enc := &encounter{session: session, invasionID: target.ID, hexKey: hexKey, committed: committed}
	snap, err := w.startEncounterLocked(enc, []string{p.ID}, &out)
	if err != nil {
		w.invasions.Increment(target.ID, hexKey, committed)
		return combat.Snapshot{}, err
	}

	logger.Info("Invasion combat started", "session_id", session.ID(), "invasion_id", target.ID, "invaders", committed, "remaining", remaining)
	w.saveInvasions()
	if updated, ok := w.invasions.Get(target.ID); ok {
		out.broadcast(EventInvasionUpdated, updated)
	}
	return snap, nil
}

func (w *World) startEncounterLocked(enc *encounter, humans []string, out *outbox) (combat.Snapshot, error) {
	s := enc.session
	err := w.combats.Start(s, combat.Hooks{
		OnSnapshot: w.notifier.CombatSnapshot,
		OnEnd:      w.onCombatEnd,
	})
	if err != nil {
		w.logger.Error("Failed to start combat", "operation", "start_combat", "session_id", s.ID(), "error", err)
		return combat.Snapshot{}, errors.WrapInternal("failed to start combat", err)
	}

	enc.humans = humans
	w.encounters[s.ID()] = enc
	for _, id := range humans {
		w.inCombat[id] = s.ID()
		out.player(id, EventCombatStarted, map[string]any{"sessionId": s.ID(), "type": s.Type()})
	}
	return s.Snapshot(), nil
}

func (w *World) readyForCombat(playerID string) (*player.Player, error) {
	p, err := w.onlinePlayer(playerID)
	if err != nil {
		return nil, err
	}
	if _, busy := w.inCombat[playerID]; busy {
		return nil, errors.Validation("you are already in combat")
	}
	if _, busy := w.inMining[playerID]; busy {
		return nil, errors.Validation("you are mining")
	}
	return p, nil
}

func (w *World) humanShip(p *player.Player, side string) *combat.ShipState {
	class, ok := w.catalog.ShipClass(p.Ship.Class)
	if !ok {
		class = w.catalog.MustShipClass("scout")
	}
	return combat.NewShip(combat.ShipSpec{
		ID:     p.ID,
		Name:   p.Username,
		Kind:   combat.KindHuman,
		Side:   side,
		Stats:  combat.NewStats(class, w.catalog, player.StatMultipliers(p.Skills)),
		Health: p.Ship.Health,
	})
}

func (w *World) aiShips(kind combat.ControllerKind, side, classID string, count int) []*combat.ShipState {
	class := w.catalog.MustShipClass(classID)
	stats := combat.NewStats(class, w.catalog, player.StatMultipliers(nil))
	ships := make([]*combat.ShipState, 0, count)
	for i := 0; i < count; i++ {
		ships = append(ships, combat.NewShip(combat.ShipSpec{
			ID:    fmt.Sprintf("%s-%s", kind, uuid.NewString()[:8]),
			Name:  fmt.Sprintf("%s %d", class.Name, i+1),
			Kind:  kind,
			Side:  side,
			Stats: stats,
		}))
	}
	return ships
}

// ApplyControl stores the latest flight input of the player's ship. Input for
// a session that already ended is ignored.
func (w *World) ApplyControl(playerID string, c combat.Control) bool {
	s := w.playerCombat(playerID)
	if s == nil || !s.ApplyControl(playerID, c) {
		w.logger.Debug("Ignoring stale control", "operation", "apply_control", "player_id", playerID)
		return false
	}
	return true
}

// FireWeapon fires weaponID, or the primary weapon when empty.
func (w *World) FireWeapon(playerID, weaponID string) bool {
	s := w.playerCombat(playerID)
	if s == nil || !s.Fire(playerID, weaponID) {
		w.logger.Debug("Ignoring fire", "operation", "fire_weapon", "player_id", playerID, "weapon_id", weaponID)
		return false
	}
	return true
}

func (w *World) playerCombat(playerID string) *combat.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	enc, ok := w.encounters[w.inCombat[playerID]]
	if !ok {
		return nil
	}
	return enc.session
}

// GetCombat returns a snapshot of the player's running combat.
func (w *World) GetCombat(playerID string) (combat.Snapshot, error) {
	s := w.playerCombat(playerID)
	if s == nil {
		return combat.Snapshot{}, errors.NotFound("you are not in combat")
	}
	return s.Snapshot(), nil
}

// EndCombat stops the player's running combat with no winner.
func (w *World) EndCombat(playerID string) (combat.Result, error) {
	w.mu.Lock()
	var out outbox
	defer func() {
		w.mu.Unlock()
		out.flush(w.notifier)
	}()

	sid, ok := w.inCombat[playerID]
	if !ok {
		return combat.Result{}, errors.NotFound("you are not in combat")
	}
	result, ended := w.combats.End(sid, combat.ReasonFinished)
	if !ended {
		// the loop ended it first and its hook will resolve it
		return combat.Result{}, errors.Conflict("combat already ended")
	}
	w.resolveCombatLocked(result, &out)
	return result, nil
}

// onCombatEnd runs on the session loop when a fight ends on its own.
func (w *World) onCombatEnd(result combat.Result) {
	w.mu.Lock()
	var out outbox
	defer func() {
		w.mu.Unlock()
		out.flush(w.notifier)
	}()
	w.resolveCombatLocked(result, &out)
}

// resolveCombatLocked applies a finished fight to the world: invaders that
// were not beaten go back to their hex, winners are rewarded, ship damage is
// written back and quests advance.
func (w *World) resolveCombatLocked(result combat.Result, out *outbox) {
	enc, ok := w.encounters[result.SessionID]
	if !ok {
		return
	}
	delete(w.encounters, result.SessionID)
	for _, id := range enc.humans {
		if w.inCombat[id] == result.SessionID {
			delete(w.inCombat, id)
		}
	}

	logger := w.logger.With("operation", "resolve_combat", "session_id", result.SessionID, "type", result.Type, "winner", result.Winner, "reason", result.Reason)
	now := w.now()

	clearedInvasion := false
	if enc.invasionID != "" {
		if result.Winner != combat.SideDefenders {
			w.invasions.Increment(enc.invasionID, enc.hexKey, enc.committed)
			logger.Debug("Invaders returned to hex", "invasion_id", enc.invasionID, "hex_key", enc.hexKey, "count", enc.committed)
		}
		if state, ok := w.invasions.Get(enc.invasionID); ok {
			if invasion.IsCleared(state) && !w.invasionFightRunning(enc.invasionID) {
				w.clearInvasionLocked(*state, now, out)
				clearedInvasion = true
			} else {
				out.broadcast(EventInvasionUpdated, state)
				w.saveInvasions()
			}
		}
	}

	for _, outcome := range result.Humans() {
		p, ok := w.players[outcome.ID]
		if !ok {
			continue
		}
		if outcome.Alive {
			p.Ship.SetHealth(outcome.Health)
		} else {
			// destroyed ships are rebuilt at no cost
			p.Ship.SetHealth(p.Ship.MaxHealth)
		}

		if result.Winner != "" && outcome.Side == result.Winner {
			w.rewardWinner(p, result, clearedInvasion, out)
		}
		w.savePlayer(p)
		out.player(p.ID, EventCombatEnded, result)
	}
	logger.Info("Combat resolved", "humans", len(result.Humans()))
}

func (w *World) invasionFightRunning(invasionID string) bool {
	for _, enc := range w.encounters {
		if enc.invasionID == invasionID {
			return true
		}
	}
	return false
}

func (w *World) rewardWinner(p *player.Player, result combat.Result, clearedInvasion bool, out *outbox) {
	r := w.catalog.Rewards
	switch result.Type {
	case combat.TypeBot:
		bots := result.CountKind(combat.KindBot)
		p.Credits += r.BotCredits * bots
		w.grantExperience(p, r.BotExperience*bots, out)
		w.applyQuestEvent(p, quest.Event{Kind: quest.ObjectiveDefeatBots, Amount: bots}, out)
	case combat.TypeInvasion:
		invaders := result.CountKind(combat.KindInvader)
		p.Credits += r.InvaderCredits * invaders
		w.grantExperience(p, r.InvaderExperience*invaders, out)
		if clearedInvasion {
			w.applyQuestEvent(p, quest.Event{Kind: quest.ObjectiveClearInvasion, Target: result.InvasionID, Amount: 1}, out)
		}
	case combat.TypePvP:
		p.Credits += r.PvPCredits
		w.grantExperience(p, r.PvPExperience, out)
		w.applyQuestEvent(p, quest.Event{Kind: quest.ObjectiveWinPvP, Amount: 1}, out)
	}
}
