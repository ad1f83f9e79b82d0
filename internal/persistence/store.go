package persistence

import (
	"context"
	"starfront-server/internal/hexmap"
	"starfront-server/internal/invasion"
	"starfront-server/internal/player"
	"starfront-server/internal/quest"
)

// Store is the durable side of the game world. Every save is an idempotent
// upsert. Loads return nil without error when nothing was stored yet.
type Store interface {
	LoadWorld(ctx context.Context) (*World, error)
	SaveWorld(ctx context.Context, world World) error

	LoadPlayer(ctx context.Context, id string) (*player.Player, error)
	SavePlayer(ctx context.Context, p *player.Player) error

	LoadInvasions(ctx context.Context) ([]invasion.State, error)
	SaveInvasions(ctx context.Context, states []invasion.State) error

	LoadPlanetarySystem(ctx context.Context, hexKey string) (*hexmap.PlanetarySystem, error)
	SavePlanetarySystem(ctx context.Context, system hexmap.PlanetarySystem) error

	LoadStationStorage(ctx context.Context, id string) (*player.StationStorage, error)
	EnsureStationStorage(ctx context.Context, hexKey, ownerID string) (*player.StationStorage, error)
	SaveStationStorage(ctx context.Context, storage player.StationStorage) error

	LoadQuest(ctx context.Context, id string) (*quest.Quest, error)
	EnsureQuest(ctx context.Context, q quest.Quest) (*quest.Quest, error)
	SaveQuest(ctx context.Context, q quest.Quest) error
	ListQuests(ctx context.Context) ([]quest.Quest, error)
}
