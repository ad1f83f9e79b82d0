package world

import (
	"context"
	"starfront-server/internal/hexmap"
	"starfront-server/internal/invasion"
	"starfront-server/internal/player"
	"starfront-server/internal/quest"
	"starfront-server/internal/shared/errors"
	"time"
)

// ColonizeSystem founds a colony at the hex the player is in.
func (w *World) ColonizeSystem(playerID string, target hexmap.Coord) (CellView, error) {
	w.mu.Lock()
	var out outbox
	defer func() {
		w.mu.Unlock()
		out.flush(w.notifier)
	}()

	logger := w.logger.With("operation", "colonize_system", "player_id", playerID, "hex_key", target.Key())

	p, err := w.onlinePlayer(playerID)
	if err != nil {
		return CellView{}, err
	}
	if p.Position != target {
		return CellView{}, errors.Validation("you must be in the system to colonize it")
	}

	cell, err := w.hexes.Colonize(target, playerID, w.now())
	if err != nil {
		logger.Debug("Colonization rejected", "reason", err)
		return CellView{}, err
	}

	hexKey := target.Key()
	w.saver.Dispatch("storage:"+player.StationStorageID(hexKey, playerID), func(ctx context.Context) error {
		_, err := w.store.EnsureStationStorage(ctx, hexKey, playerID)
		return err
	})

	w.applyQuestEvent(p, quest.Event{Kind: quest.ObjectiveColonize, Target: hexKey, Amount: 1}, &out)
	w.saveWorld()
	w.savePlayer(p)

	logger.Info("Colony founded", "threat", cell.Threat)
	view := newCellView(cell, playerID)
	out.broadcast(EventColonyFounded, view)
	return view, nil
}

// DevelopColony spends credits to strengthen one of the player's colonies.
func (w *World) DevelopColony(playerID string, target hexmap.Coord) (CellView, error) {
	w.mu.Lock()
	var out outbox
	defer func() {
		w.mu.Unlock()
		out.flush(w.notifier)
	}()

	p, err := w.onlinePlayer(playerID)
	if err != nil {
		return CellView{}, err
	}
	if p.Credits < developCost {
		return CellView{}, errors.Validationf("developing a colony costs %d credits", developCost)
	}

	cell, err := w.hexes.Develop(target, playerID)
	if err != nil {
		return CellView{}, err
	}
	p.Credits -= developCost

	w.saveWorld()
	w.savePlayer(p)

	w.logger.Debug("Colony developed", "operation", "develop_colony", "player_id", playerID, "hex_key", target.Key(), "threat", cell.Threat)
	view := newCellView(cell, playerID)
	out.broadcast(EventColonyDeveloped, view)
	return view, nil
}

// GetPlanetarySystem returns the detailed system of a planetary hex,
// generating and storing it on first request.
func (w *World) GetPlanetarySystem(ctx context.Context, target hexmap.Coord) (hexmap.PlanetarySystem, error) {
	hexKey := target.Key()

	w.mu.Lock()
	cell, ok := w.hexes.Get(target)
	if !ok {
		w.mu.Unlock()
		return hexmap.PlanetarySystem{}, errors.NotFoundf("system %s does not exist", hexKey)
	}
	if cell.SystemType != hexmap.SystemTypePlanetary {
		w.mu.Unlock()
		return hexmap.PlanetarySystem{}, errors.Validation("this system has no planets")
	}
	if sys, ok := w.systems[hexKey]; ok {
		w.mu.Unlock()
		return sys, nil
	}
	seed := w.hexes.Seed()
	w.mu.Unlock()

	stored, err := w.store.LoadPlanetarySystem(ctx, hexKey)
	if err != nil {
		w.logger.Error("Failed to load planetary system", "operation", "get_planetary_system", "hex_key", hexKey, "error", err)
		return hexmap.PlanetarySystem{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if sys, ok := w.systems[hexKey]; ok {
		return sys, nil
	}

	var sys hexmap.PlanetarySystem
	if stored != nil {
		sys = *stored
	} else {
		sys = hexmap.GeneratePlanetarySystem(cell, seed)
		w.saver.SavePlanetarySystem(sys)
		w.logger.Debug("Generated planetary system", "operation", "get_planetary_system", "hex_key", hexKey, "planets", len(sys.Planets))
	}
	if cell.PlanetarySystemID != sys.ID {
		w.hexes.LinkPlanetarySystem(target, sys.ID)
		w.saveWorld()
	}
	w.systems[hexKey] = sys
	return sys, nil
}

// GetState returns the map as seen by playerID. An empty id returns the
// public view.
func (w *World) GetState(playerID string) State {
	w.mu.Lock()
	defer w.mu.Unlock()

	cells := w.hexes.Cells()
	state := State{
		Phase:     w.phase,
		Radius:    w.hexes.Radius(),
		Cells:     make([]CellView, 0, len(cells)),
		Players:   make([]PlayerPosition, 0, len(w.online)),
		Invasions: w.invasions.Active(),
		CombatID:  w.inCombat[playerID],
		MiningID:  w.inMining[playerID],
	}
	for _, c := range cells {
		state.Cells = append(state.Cells, newCellView(c, playerID))
	}
	for id := range w.online {
		p := w.players[id]
		state.Players = append(state.Players, PlayerPosition{ID: p.ID, Username: p.Username, Position: p.Position})
	}
	if p, ok := w.players[playerID]; ok {
		state.Player = p.Clone()
	}
	return state
}

func (w *World) ActiveInvasions() []invasion.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.invasions.Active()
}

// clearInvasionLocked removes a beaten invasion and restores its source hex.
func (w *World) clearInvasionLocked(state invasion.State, now time.Time, out *outbox) {
	cleared, ok := w.invasions.Clear(state.SourceHexKey)
	if !ok {
		return
	}
	if err := w.hexes.SetSourceThreat(cleared.SourceCoordinates, hexmap.ColonyThreat); err != nil {
		w.logger.Warn("Invasion source is no longer a colony", "operation", "clear_invasion", "hex_key", cleared.SourceHexKey, "error", err)
	}
	w.logger.Info("Invasion cleared", "operation", "clear_invasion", "invasion_id", cleared.ID, "source_hex", cleared.SourceHexKey, "duration", now.Sub(cleared.StartTime))
	out.broadcast(EventInvasionCleared, cleared)
	w.saveWorld()
	w.saveInvasions()
}
