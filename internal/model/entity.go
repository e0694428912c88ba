package model

import "time"

// EntityID identifies a transient entity within its room
type EntityID int64

// EntityType tags which authoritative entity set an entity belongs to
type EntityType string

const (
	EntityAsteroid EntityType = "asteroid"
	EntityPowerup  EntityType = "powerup"
)

// Authoritative play-area dimensions. Clients render whatever they like but
// spawn coordinates are expressed in this space.
const (
	WorldWidth  = 800.0
	WorldHeight = 600.0
)

// Asteroid is a destructible space rock owned by its room
type Asteroid struct {
	ID            EntityID
	X, Y          float64 // Spawn position (center)
	VX, VY        float64 // Velocity
	Radius        float64
	RotationSpeed float64 // Radians/sec, may be negative
	SpawnedAt     time.Time
}

// PowerupType is the closed set of powerup kinds
type PowerupType string

const (
	PowerupShield     PowerupType = "shield"
	PowerupRapidFire  PowerupType = "rapid_fire"
	PowerupSpeedBoost PowerupType = "speed_boost"
)

// PowerupTypes lists every powerup kind, for uniform random selection
var PowerupTypes = []PowerupType{PowerupShield, PowerupRapidFire, PowerupSpeedBoost}

// Powerup is a collectible entity owned by its room. It expires after a
// fixed lifetime if nobody collides with it first.
type Powerup struct {
	ID        EntityID
	X, Y      float64
	Type      PowerupType
	SpawnedAt time.Time
}
