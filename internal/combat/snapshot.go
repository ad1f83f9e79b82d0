package combat

import "starfront-server/internal/physics"

type ShipSnapshot struct {
	ID        string         `json:"id" msgpack:"id"`
	Name      string         `json:"name" msgpack:"n"`
	Kind      ControllerKind `json:"kind" msgpack:"k"`
	Side      string         `json:"side" msgpack:"s"`
	Position  physics.Vec2   `json:"position" msgpack:"p"`
	Velocity  physics.Vec2   `json:"velocity" msgpack:"v"`
	Rotation  float64        `json:"rotation" msgpack:"r"`
	Health    float64        `json:"health" msgpack:"h"`
	MaxHealth float64        `json:"maxHealth" msgpack:"mh"`
	Energy    float64        `json:"energy" msgpack:"e"`
	MaxEnergy float64        `json:"maxEnergy" msgpack:"me"`
	Boosting  bool           `json:"boosting" msgpack:"b"`
	Alive     bool           `json:"alive" msgpack:"a"`
}

type Snapshot struct {
	SessionID   string         `json:"sessionId" msgpack:"sid"`
	Type        Type           `json:"type" msgpack:"t"`
	Tick        uint64         `json:"tick" msgpack:"tick"`
	Elapsed     float64        `json:"elapsed" msgpack:"el"`
	Remaining   float64        `json:"remaining" msgpack:"rem"`
	Arena       physics.Bounds `json:"arena" msgpack:"arena"`
	Joinable    bool           `json:"joinable" msgpack:"j"`
	Ended       bool           `json:"ended" msgpack:"end"`
	Ships       []ShipSnapshot `json:"ships" msgpack:"ships"`
	Projectiles []Projectile   `json:"projectiles" msgpack:"proj"`

	// Participants are the human ship ids a snapshot is delivered to.
	Participants []string `json:"-" msgpack:"-"`
}
