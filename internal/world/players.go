package world

import (
	"context"
	"starfront-server/internal/hexmap"
	"starfront-server/internal/player"
	"starfront-server/internal/quest"
	"starfront-server/internal/shared/errors"
	"strings"
	"time"
)

// Connect loads or creates the player record and marks the player online.
func (w *World) Connect(ctx context.Context, playerID, username string) (*player.Player, error) {
	logger := w.logger.With("operation", "connect", "player_id", playerID)
	if strings.TrimSpace(playerID) == "" {
		return nil, errors.Validation("player id is required")
	}

	w.mu.Lock()
	if p, ok := w.players[playerID]; ok {
		w.online[playerID] = true
		clone := p.Clone()
		w.mu.Unlock()
		logger.Debug("Player reconnected")
		return clone, nil
	}
	w.mu.Unlock()

	stored, err := w.store.LoadPlayer(ctx, playerID)
	if err != nil {
		logger.Error("Failed to load player", "error", err)
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// a concurrent connect may have won the race while the store was read
	if p, ok := w.players[playerID]; ok {
		w.online[playerID] = true
		return p.Clone(), nil
	}

	now := w.now()
	p := stored
	if p == nil {
		class, ok := w.catalog.ShipClass(w.cfg.StartingShipClass)
		if !ok {
			class = w.catalog.MustShipClass("scout")
		}
		p = player.New(playerID, username, class, hexmap.Coord{}, now)
		logger.Info("Created new player", "username", username)
	} else {
		w.normalizePlayer(p, now)
		logger.Info("Loaded player", "username", p.Username, "position", p.Position.Key())
	}
	if username != "" {
		p.Username = username
	}
	p.Quests = quest.Assign(p.Quests, w.questList)

	w.players[playerID] = p
	w.online[playerID] = true
	if w.hexes.Discover(p.Position, playerID) {
		w.saveWorld()
	}
	w.savePlayer(p)

	return p.Clone(), nil
}

// normalizePlayer repairs fields a stored record may lack or that went stale
// while the player was away.
func (w *World) normalizePlayer(p *player.Player, now time.Time) {
	if p.Skills == nil {
		p.Skills = make(map[string]int)
	}
	if p.Level < 1 {
		p.Level = 1
	}
	if !w.hexes.Has(p.Position) {
		w.logger.Warn("Player position off map, moving to origin", "operation", "connect", "player_id", p.ID, "position", p.Position.Key())
		p.Position = hexmap.Coord{}
	}
	if p.MoveTimer <= now.UnixMilli() {
		p.CanMove = true
	}
}

// Disconnect forfeits any running combat, flushes any mining run into the hold
// and saves the player.
func (w *World) Disconnect(playerID string) {
	w.mu.Lock()
	var out outbox
	defer func() {
		w.mu.Unlock()
		out.flush(w.notifier)
	}()

	p, ok := w.players[playerID]
	if !ok {
		return
	}
	delete(w.online, playerID)

	if sid, ok := w.inCombat[playerID]; ok {
		if enc, ok := w.encounters[sid]; ok {
			enc.session.Forfeit(playerID)
		}
	}
	if _, ok := w.inMining[playerID]; ok {
		if _, err := w.exitMiningLocked(p, &out); err != nil {
			w.logger.Error("Failed to flush mining on disconnect", "operation", "disconnect", "player_id", playerID, "error", err)
		}
	}

	w.savePlayer(p)
	w.logger.Info("Player disconnected", "operation", "disconnect", "player_id", playerID)
}

// MovePlayer moves the player one hex and starts the move cooldown.
func (w *World) MovePlayer(playerID string, target hexmap.Coord) (*player.Player, error) {
	w.mu.Lock()
	var out outbox
	defer func() {
		w.mu.Unlock()
		out.flush(w.notifier)
	}()

	logger := w.logger.With("operation", "move_player", "player_id", playerID, "target", target.Key())

	p, err := w.onlinePlayer(playerID)
	if err != nil {
		return nil, err
	}
	if _, busy := w.inCombat[playerID]; busy {
		return nil, errors.Validation("cannot move while in combat")
	}
	if _, busy := w.inMining[playerID]; busy {
		return nil, errors.Validation("cannot move while mining")
	}

	now := w.now()
	if !p.CanMove || p.MoveTimer > now.UnixMilli() {
		logger.Debug("Move rejected, cooldown active", "move_timer", p.MoveTimer)
		return nil, errors.Validation("engines are cooling down")
	}
	if hexmap.Distance(p.Position, target) != 1 {
		logger.Debug("Move rejected, target not adjacent", "position", p.Position.Key())
		return nil, errors.Validation("you can only move to an adjacent system")
	}
	cell, ok := w.hexes.Get(target)
	if !ok {
		return nil, errors.NotFound("target system does not exist")
	}

	p.Position = target
	p.MoveTimer = now.Add(w.cfg.MoveCooldown).UnixMilli()
	p.CanMove = false
	if cell.HasStation && (cell.Owner == hexmap.OwnerNPC || cell.Owner == playerID) {
		p.Ship.SetHealth(p.Ship.MaxHealth)
	}

	if w.hexes.Discover(target, playerID) {
		w.saveWorld()
	}
	w.savePlayer(p)

	logger.Debug("Player moved", "move_timer", p.MoveTimer)
	out.broadcast(EventPlayerMoved, PlayerPosition{ID: p.ID, Username: p.Username, Position: p.Position})
	return p.Clone(), nil
}

func (w *World) GetPlayer(playerID string) (*player.Player, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.players[playerID]
	if !ok {
		return nil, errors.NotFoundf("player %s not found", playerID)
	}
	return p.Clone(), nil
}

// TrainSkill spends a skill point.
func (w *World) TrainSkill(playerID, skill string) (*player.Player, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := w.onlinePlayer(playerID)
	if err != nil {
		return nil, err
	}
	if err := p.TrainSkill(skill); err != nil {
		return nil, err
	}
	w.savePlayer(p)
	return p.Clone(), nil
}

// DepositCargo moves the whole hold into the player's locker at the station
// they are docked at.
func (w *World) DepositCargo(ctx context.Context, playerID string) (player.StationStorage, error) {
	w.mu.Lock()
	p, err := w.onlinePlayer(playerID)
	if err != nil {
		w.mu.Unlock()
		return player.StationStorage{}, err
	}
	cell, _ := w.hexes.Get(p.Position)
	if !cell.HasStation || (cell.Owner != hexmap.OwnerNPC && cell.Owner != playerID) {
		w.mu.Unlock()
		return player.StationStorage{}, errors.Validation("you must be docked at a friendly station")
	}
	hexKey := cell.Coord.Key()
	id := player.StationStorageID(hexKey, playerID)
	_, cached := w.storages[id]
	w.mu.Unlock()

	var loaded *player.StationStorage
	if !cached {
		loaded, err = w.store.EnsureStationStorage(ctx, hexKey, playerID)
		if err != nil {
			w.logger.Error("Failed to load station storage", "operation", "deposit_cargo", "storage_id", id, "error", err)
			return player.StationStorage{}, err
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	storage, ok := w.storages[id]
	if !ok {
		storage = loaded
		w.storages[id] = storage
	}
	// the player may have moved while the locker was loading
	if p.Position.Key() != hexKey {
		return player.StationStorage{}, errors.Validation("you must be docked at a friendly station")
	}

	moved := storage.Deposit(&p.Ship.Cargo)
	w.saver.SaveStationStorage(*storage)
	w.savePlayer(p)
	w.logger.Debug("Cargo deposited", "operation", "deposit_cargo", "player_id", playerID, "storage_id", id, "units", moved)

	return storage.Clone(), nil
}

func (w *World) onlinePlayer(playerID string) (*player.Player, error) {
	p, ok := w.players[playerID]
	if !ok || !w.online[playerID] {
		return nil, errors.NotFound("player is not connected")
	}
	return p, nil
}
