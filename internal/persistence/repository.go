package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"starfront-server/internal/hexmap"
	"starfront-server/internal/invasion"
	"starfront-server/internal/player"
	"starfront-server/internal/quest"
	"starfront-server/internal/shared/errors"
	"sync"
	"time"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"
)

const (
	worldDocumentID     = "current"
	invasionsDocumentID = "active"
)

// Repository implements Store over a document backend. The world snapshot is
// lz4 compressed and skipped when its blake3 hash matches the last write.
type Repository struct {
	backend Backend
	logger  *slog.Logger

	mu        sync.Mutex
	worldHash [32]byte
	hashKnown bool
}

func NewRepository(backend Backend, logger *slog.Logger) *Repository {
	return &Repository{
		backend: backend,
		logger:  logger.With("component", "repository"),
	}
}

func (r *Repository) Close() error {
	return r.backend.Close()
}

func (r *Repository) getJSON(ctx context.Context, collection, id string, v any) (bool, error) {
	body, ok, err := r.backend.Get(ctx, collection, id)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return false, errors.WrapInternal("corrupt "+collection+" document "+id, err)
	}
	return true, nil
}

func (r *Repository) putJSON(ctx context.Context, collection, id string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return errors.WrapInternal("failed to encode "+collection+" document", err)
	}
	return r.backend.Put(ctx, collection, id, body)
}

func (r *Repository) LoadWorld(ctx context.Context) (*World, error) {
	body, ok, err := r.backend.Get(ctx, CollectionWorld, worldDocumentID)
	if err != nil || !ok {
		return nil, err
	}

	raw, err := decompress(body)
	if err != nil {
		return nil, errors.WrapInternal("corrupt world snapshot", err)
	}
	var rec worldRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errors.WrapInternal("corrupt world snapshot", err)
	}

	world := &World{Phase: rec.Phase, Radius: rec.Radius, Seed: rec.Seed, Cells: make([]hexmap.Cell, 0, len(rec.Cells))}
	for _, cr := range rec.Cells {
		cell, err := fromCellRecord(cr)
		if err != nil {
			return nil, errors.WrapInternal("corrupt world snapshot", err)
		}
		world.Cells = append(world.Cells, cell)
	}

	r.mu.Lock()
	r.worldHash = blake3.Sum256(raw)
	r.hashKnown = true
	r.mu.Unlock()

	return world, nil
}

func (r *Repository) SaveWorld(ctx context.Context, world World) error {
	rec := worldRecord{Phase: world.Phase, Radius: world.Radius, Seed: world.Seed, Cells: make([]cellRecord, 0, len(world.Cells))}
	for _, c := range world.Cells {
		rec.Cells = append(rec.Cells, toCellRecord(c))
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return errors.WrapInternal("failed to encode world snapshot", err)
	}

	hash := blake3.Sum256(raw)
	r.mu.Lock()
	unchanged := r.hashKnown && hash == r.worldHash
	r.mu.Unlock()
	if unchanged {
		r.logger.Debug("World snapshot unchanged, skipping write", "operation", "save_world")
		return nil
	}

	body, err := compress(raw)
	if err != nil {
		return errors.WrapInternal("failed to compress world snapshot", err)
	}
	if err := r.backend.Put(ctx, CollectionWorld, worldDocumentID, body); err != nil {
		return err
	}

	r.mu.Lock()
	r.worldHash = hash
	r.hashKnown = true
	r.mu.Unlock()

	r.logger.Debug("World snapshot saved", "operation", "save_world", "cells", len(rec.Cells), "raw_bytes", len(raw), "stored_bytes", len(body))
	return nil
}

func compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(src []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(src)))
}

func (r *Repository) LoadPlayer(ctx context.Context, id string) (*player.Player, error) {
	var p player.Player
	ok, err := r.getJSON(ctx, CollectionPlayers, id, &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) SavePlayer(ctx context.Context, p *player.Player) error {
	if p == nil || p.ID == "" {
		return errors.Validation("player id is required")
	}
	return r.putJSON(ctx, CollectionPlayers, p.ID, p)
}

func (r *Repository) LoadInvasions(ctx context.Context) ([]invasion.State, error) {
	var rec invasionsRecord
	ok, err := r.getJSON(ctx, CollectionInvasions, invasionsDocumentID, &rec)
	if err != nil || !ok {
		return nil, err
	}

	states := make([]invasion.State, 0, len(rec.Invasions))
	for _, ir := range rec.Invasions {
		states = append(states, invasion.State{
			ID:                ir.ID,
			SourceHexKey:      ir.SourceHexKey,
			SourceCoordinates: ir.SourceCoordinates,
			NeighborHexKeys:   ir.NeighborHexKeys,
			EnemyCountPerHex:  ir.EnemyCountPerHex,
			StartTime:         time.UnixMilli(ir.StartTime),
			Phase:             invasion.Phase(ir.Phase),
		})
	}
	return states, nil
}

// SaveInvasions replaces the stored active set.
func (r *Repository) SaveInvasions(ctx context.Context, states []invasion.State) error {
	rec := invasionsRecord{Invasions: make([]invasionRecord, 0, len(states))}
	for _, s := range states {
		rec.Invasions = append(rec.Invasions, invasionRecord{
			ID:                s.ID,
			SourceHexKey:      s.SourceHexKey,
			SourceCoordinates: s.SourceCoordinates,
			NeighborHexKeys:   s.NeighborHexKeys,
			EnemyCountPerHex:  s.EnemyCountPerHex,
			StartTime:         s.StartTime.UnixMilli(),
			Phase:             string(s.Phase),
		})
	}
	return r.putJSON(ctx, CollectionInvasions, invasionsDocumentID, rec)
}

func (r *Repository) LoadPlanetarySystem(ctx context.Context, hexKey string) (*hexmap.PlanetarySystem, error) {
	var s hexmap.PlanetarySystem
	ok, err := r.getJSON(ctx, CollectionSystems, hexKey, &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) SavePlanetarySystem(ctx context.Context, system hexmap.PlanetarySystem) error {
	if system.HexKey == "" {
		return errors.Validation("planetary system hex key is required")
	}
	return r.putJSON(ctx, CollectionSystems, system.HexKey, system)
}

func (r *Repository) LoadStationStorage(ctx context.Context, id string) (*player.StationStorage, error) {
	var s player.StationStorage
	ok, err := r.getJSON(ctx, CollectionStorages, id, &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

// EnsureStationStorage returns the stored locker, creating an empty one on
// first use.
func (r *Repository) EnsureStationStorage(ctx context.Context, hexKey, ownerID string) (*player.StationStorage, error) {
	id := player.StationStorageID(hexKey, ownerID)
	existing, err := r.LoadStationStorage(ctx, id)
	if err != nil || existing != nil {
		return existing, err
	}

	storage := player.NewStationStorage(hexKey, ownerID)
	if err := r.SaveStationStorage(ctx, storage); err != nil {
		return nil, err
	}
	return &storage, nil
}

func (r *Repository) SaveStationStorage(ctx context.Context, storage player.StationStorage) error {
	if storage.ID == "" {
		return errors.Validation("station storage id is required")
	}
	return r.putJSON(ctx, CollectionStorages, storage.ID, storage)
}

func (r *Repository) LoadQuest(ctx context.Context, id string) (*quest.Quest, error) {
	var q quest.Quest
	ok, err := r.getJSON(ctx, CollectionQuests, id, &q)
	if err != nil || !ok {
		return nil, err
	}
	return &q, nil
}

// EnsureQuest stores q unless a quest with its id exists, and returns the
// stored version.
func (r *Repository) EnsureQuest(ctx context.Context, q quest.Quest) (*quest.Quest, error) {
	existing, err := r.LoadQuest(ctx, q.ID)
	if err != nil || existing != nil {
		return existing, err
	}
	if err := r.SaveQuest(ctx, q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *Repository) SaveQuest(ctx context.Context, q quest.Quest) error {
	if q.ID == "" {
		return errors.Validation("quest id is required")
	}
	return r.putJSON(ctx, CollectionQuests, q.ID, q)
}

func (r *Repository) ListQuests(ctx context.Context) ([]quest.Quest, error) {
	docs, err := r.backend.List(ctx, CollectionQuests)
	if err != nil {
		return nil, err
	}
	quests := make([]quest.Quest, 0, len(docs))
	for _, d := range docs {
		var q quest.Quest
		if err := json.Unmarshal(d.Body, &q); err != nil {
			return nil, errors.WrapInternal("corrupt quest document "+d.ID, err)
		}
		quests = append(quests, q)
	}
	return quests, nil
}
