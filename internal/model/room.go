package model

import (
	"strings"
	"time"
)

// RoomID is a short human-readable code for joining rooms
type RoomID string

// NormalizeRoomID canonicalizes a client-supplied room code. Codes are
// compared case-insensitively everywhere, so normalization happens at every
// entry point.
func NormalizeRoomID(raw string) RoomID {
	return RoomID(strings.ToUpper(strings.TrimSpace(raw)))
}

// RoomState represents the current lifecycle phase of a room
type RoomState string

const (
	RoomStateWaiting    RoomState = "waiting"     // In the waiting room, no game started
	RoomStateInProgress RoomState = "in_progress" // Game currently active
	RoomStatePaused     RoomState = "paused"      // Game active but paused
	RoomStateEnded      RoomState = "ended"       // Game over, room still open
)

// Active reports whether a game is underway (running or paused). Joins are
// rejected while a room is active.
func (s RoomState) Active() bool {
	return s == RoomStateInProgress || s == RoomStatePaused
}

const (
	// MaxPlayers is the enforced per-room capacity
	MaxPlayers = 4
	// MinPlayersToStart is the minimum roster size to start a game
	MinPlayersToStart = 2
)

// Room represents a play session
type Room struct {
	ID          RoomID
	State       RoomState
	StartedEver bool // a game has been started since creation/last restart

	// Players ordered by join time. Host promotion picks the earliest
	// remaining joiner.
	Players []Player
	Host    ConnectionID

	CreatedAt time.Time
	StartedAt time.Time

	// Authoritative entity state, populated only while a game is active
	Asteroids map[EntityID]*Asteroid
	Powerups  map[EntityID]*Powerup

	// Per-room id sequences; ids are never reused, even after removal
	AsteroidSeq EntityID
	PowerupSeq  EntityID

	// Spawn bookkeeping for the entity spawner
	LastAsteroidSpawn time.Time
	LastPowerupSpawn  time.Time
}

// GetPlayer returns the player with the given connection id, or nil
func (r *Room) GetPlayer(id ConnectionID) *Player {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return &r.Players[i]
		}
	}
	return nil
}

// HasName reports whether any player's name matches case-insensitively
func (r *Room) HasName(name string) bool {
	for i := range r.Players {
		if strings.EqualFold(r.Players[i].Name, name) {
			return true
		}
	}
	return false
}

// RemovePlayer removes the player with the given id, preserving join order.
// It returns the removed player and whether it was present.
func (r *Room) RemovePlayer(id ConnectionID) (Player, bool) {
	for i := range r.Players {
		if r.Players[i].ID == id {
			removed := r.Players[i]
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return removed, true
		}
	}
	return Player{}, false
}

// SetHost records the host on the room and mirrors the flag onto every
// player, keeping exactly one IsHost bit set.
func (r *Room) SetHost(id ConnectionID) {
	r.Host = id
	for i := range r.Players {
		r.Players[i].IsHost = r.Players[i].ID == id
	}
}

// NextAsteroidID returns a fresh asteroid id for this room
func (r *Room) NextAsteroidID() EntityID {
	r.AsteroidSeq++
	return r.AsteroidSeq
}

// NextPowerupID returns a fresh powerup id for this room
func (r *Room) NextPowerupID() EntityID {
	r.PowerupSeq++
	return r.PowerupSeq
}

// ResetEntities clears entity state for a fresh game. Id sequences are kept:
// entity ids are unique for the lifetime of the room.
func (r *Room) ResetEntities(now time.Time) {
	r.Asteroids = make(map[EntityID]*Asteroid)
	r.Powerups = make(map[EntityID]*Powerup)
	r.LastAsteroidSpawn = now
	r.LastPowerupSpawn = now
}
