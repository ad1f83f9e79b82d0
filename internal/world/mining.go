package world

import (
	"sort"
	"starfront-server/internal/mining"
	"starfront-server/internal/player"
	"starfront-server/internal/quest"
	"starfront-server/internal/shared/errors"
)

// StartMining opens an asteroid field in the player's system.
func (w *World) StartMining(playerID string) (mining.Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.onlinePlayer(playerID)
	if err != nil {
		return mining.Snapshot{}, err
	}
	if _, busy := w.inMining[playerID]; busy {
		return mining.Snapshot{}, errors.Validation("you are already mining")
	}
	if _, busy := w.inCombat[playerID]; busy {
		return mining.Snapshot{}, errors.Validation("cannot mine while in combat")
	}
	cell, ok := w.hexes.Get(p.Position)
	if !ok {
		return mining.Snapshot{}, errors.NotFound("current system does not exist")
	}
	if cell.Resources <= 0 {
		return mining.Snapshot{}, errors.Validation("there is nothing to mine in this system")
	}

	mult := player.StatMultipliers(p.Skills)
	session := mining.NewSession(mining.Options{
		PlayerID:  playerID,
		HexKey:    cell.Coord.Key(),
		Resources: cell.Resources,
		Params:    mining.ParamsFrom(w.catalog.Mining, mult.MiningCost),
		Catalog:   w.catalog,
		Now:       w.now(),
	})
	if err := w.mines.Start(session, w.notifier.MiningSnapshot); err != nil {
		w.logger.Error("Failed to start mining", "operation", "start_mining", "player_id", playerID, "error", err)
		return mining.Snapshot{}, errors.WrapInternal("failed to start mining", err)
	}
	w.inMining[playerID] = session.ID()

	w.logger.Debug("Mining started", "operation", "start_mining", "player_id", playerID, "hex_key", cell.Coord.Key(), "resources", cell.Resources)
	return session.Snapshot(), nil
}

// SetMiningControl stores the latest mining ship input. Input for a finished
// run is ignored.
func (w *World) SetMiningControl(playerID string, c mining.Control) bool {
	w.mu.Lock()
	sid, ok := w.inMining[playerID]
	w.mu.Unlock()

	var session *mining.Session
	if ok {
		session, ok = w.mines.Get(sid)
	}
	if !ok || !session.SetControl(c) {
		w.logger.Debug("Ignoring stale mining control", "operation", "set_mining_control", "player_id", playerID)
		return false
	}
	return true
}

// ExitMining ends the run and loads what was collected into the hold. Units
// that do not fit are lost.
func (w *World) ExitMining(playerID string) (MiningOutcome, error) {
	w.mu.Lock()
	var out outbox
	defer func() {
		w.mu.Unlock()
		out.flush(w.notifier)
	}()

	p, err := w.onlinePlayer(playerID)
	if err != nil {
		return MiningOutcome{}, err
	}
	return w.exitMiningLocked(p, &out)
}

func (w *World) exitMiningLocked(p *player.Player, out *outbox) (MiningOutcome, error) {
	sid, ok := w.inMining[p.ID]
	if !ok {
		return MiningOutcome{}, errors.NotFound("you are not mining")
	}
	delete(w.inMining, p.ID)

	collected, ended := w.mines.Exit(sid)
	if !ended {
		return MiningOutcome{}, errors.Conflict("mining run already ended")
	}

	outcome := w.loadCargo(p, collected, out)

	w.savePlayer(p)
	w.logger.Info("Mining flushed to cargo", "operation", "exit_mining", "player_id", p.ID, "session_id", sid, "stored", outcome.Stored, "overflow", outcome.Overflow)
	out.player(p.ID, EventMiningEnded, outcome)
	return outcome, nil
}

// loadCargo adds collected minerals to the hold in id order, as far as the
// capacity allows.
func (w *World) loadCargo(p *player.Player, collected map[string]int, out *outbox) MiningOutcome {
	outcome := MiningOutcome{
		Collected: collected,
		Stored:    make(map[string]int, len(collected)),
	}

	ids := make([]string, 0, len(collected))
	for id := range collected {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		qty := collected[id]
		stored := p.Ship.Cargo.Add(id, qty)
		if stored > 0 {
			outcome.Stored[id] = stored
			w.applyQuestEvent(p, quest.Event{Kind: quest.ObjectiveMineMineral, Target: id, Amount: stored}, out)
		}
		if lost := qty - stored; lost > 0 {
			if outcome.Overflow == nil {
				outcome.Overflow = make(map[string]int)
			}
			outcome.Overflow[id] = lost
		}
	}
	outcome.Cargo = p.Ship.Cargo.Clone()
	return outcome
}
