// Package persistence stores the world, players, invasions, planetary
// systems, station storages and quests as documents in a pluggable backend.
package persistence

import "context"

// Collections used by the repository.
const (
	CollectionWorld     = "world"
	CollectionPlayers   = "players"
	CollectionInvasions = "invasions"
	CollectionSystems   = "planetary_systems"
	CollectionStorages  = "station_storages"
	CollectionQuests    = "quests"
)

type Document struct {
	ID   string
	Body []byte
}

// Backend is a key-value document store. Put is an idempotent upsert; Get
// reports false for a missing document.
type Backend interface {
	Get(ctx context.Context, collection, id string) ([]byte, bool, error)
	Put(ctx context.Context, collection, id string, body []byte) error
	List(ctx context.Context, collection string) ([]Document, error)
	Close() error
}
