package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Room events
	EventPlayerJoined EventType = "player_joined"
	EventPlayerLeft   EventType = "player_left"
	EventPlayerQuit   EventType = "player_quit"
	EventHostChanged  EventType = "host_changed"
	EventRoomClosed   EventType = "room_closed"

	// Game events
	EventGameStarted   EventType = "game_started"
	EventGameEnded     EventType = "game_ended"
	EventGamePaused    EventType = "game_paused"
	EventGameResumed   EventType = "game_resumed"
	EventGameRestarted EventType = "game_restarted"

	// Entity events
	EventAsteroidSpawned EventType = "asteroid_spawned"
	EventPowerupSpawned  EventType = "powerup_spawned"
	EventEntityExpired   EventType = "entity_expired"
	EventEntityCollided  EventType = "entity_collided"
)

// Room close reasons, carried on room_closed broadcasts
const (
	CloseReasonHostLeft            = "host_left"
	CloseReasonHostDisconnected    = "host_disconnected"
	CloseReasonInsufficientPlayers = "insufficient_players"
	CloseReasonExpired             = "expired"
)

// Game end reasons, carried on game_end broadcasts
const (
	EndReasonQuit      = "quit"
	EndReasonTimeLimit = "time_limit"
)

// Event describes a state change produced by a room mutation. The protocol
// layer translates events into outbound broadcasts; the lifecycle manager
// itself never touches the transport.
type Event struct {
	Type    EventType
	RoomID  RoomID
	Payload any
}

// PlayerJoinedPayload contains data for player joined events
type PlayerJoinedPayload struct {
	Player Player
}

// PlayerLeftPayload contains data for player left events
type PlayerLeftPayload struct {
	PlayerID ConnectionID
	Name     string
}

// PlayerQuitPayload contains data for player quit events (game continues)
type PlayerQuitPayload struct {
	PlayerID ConnectionID
	Name     string
}

// HostChangedPayload contains data for host changed events
type HostChangedPayload struct {
	HostID   ConnectionID
	HostName string
}

// RoomClosedPayload contains data for room closed events. Recipients lists
// the connections that were still in the room when it closed; the room (and
// its hub) is gone by the time the event is observed, so delivery is
// per-connection.
type RoomClosedPayload struct {
	Reason     string
	HostName   string
	Recipients []ConnectionID
}

// GameStartedPayload contains data for game started events
type GameStartedPayload struct {
	Players   []Player
	StartedAt time.Time
}

// GameEndedPayload contains data for game ended events. If LocalTo is set
// the event is delivered only to that connection, marked localOnly on the
// wire.
type GameEndedPayload struct {
	Reason     string
	PlayerID   ConnectionID
	PlayerName string
	Timestamp  time.Time
	LocalTo    ConnectionID
}

// GamePausedPayload contains data for game paused events
type GamePausedPayload struct {
	PlayerID ConnectionID
}

// GameResumedPayload contains data for game resumed events
type GameResumedPayload struct {
	PlayerID ConnectionID
}

// GameRestartedPayload contains data for game restarted events
type GameRestartedPayload struct {
	PlayerID   ConnectionID
	PlayerName string
	StartedAt  time.Time
	AutoStart  bool
}

// AsteroidSpawnedPayload contains data for asteroid spawned events
type AsteroidSpawnedPayload struct {
	Asteroid Asteroid
}

// PowerupSpawnedPayload contains data for powerup spawned events
type PowerupSpawnedPayload struct {
	Powerup Powerup
}

// EntityExpiredPayload contains data for entity expired events
type EntityExpiredPayload struct {
	EntityType EntityType
	ID         EntityID
}

// EntityCollidedPayload contains data for entity collision events
type EntityCollidedPayload struct {
	EntityType EntityType
	ID         EntityID
	PlayerID   ConnectionID
}
