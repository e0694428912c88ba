// Package protocol defines the websocket wire format: a tagged envelope with
// a fixed payload schema per tag. Unknown tags and malformed payloads are
// rejected at this boundary and never reach the room state machine.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/astroclash/server/internal/model"
)

// Inbound message types (client -> server)
const (
	TypeRoomJoin        = "room_join"
	TypeRoomLeave       = "room_leave"
	TypeGameStart       = "game_start" // also outbound
	TypeGameAction      = "game_action"
	TypePlayerUpdate    = "player_update" // also outbound
	TypeEntityCollision = "entity_collision"
	TypeChatMessage     = "chat_message" // also outbound
	TypeRoomList        = "room_list"    // also outbound
)

// Outbound message types (server -> client)
const (
	TypeRoomJoined       = "room_joined"
	TypeRoomPlayerJoined = "room_player_joined"
	TypeRoomPlayerLeft   = "room_player_left"
	TypeRoomHostChanged  = "room_host_changed"
	TypeRoomClosed       = "room_closed"
	TypeGameEnd          = "game_end"
	TypeGamePause        = "game_pause"
	TypeGameResume       = "game_resume"
	TypeGameRestart      = "game_restart"
	TypePlayerQuit       = "player_quit"
	TypeEntitySpawn      = "entity_spawn"
	TypeEntityExpire     = "entity_expire"
	TypeError            = "error"
)

// Game actions carried by game_action messages
const (
	ActionPause   = "pause"
	ActionResume  = "resume"
	ActionQuit    = "quit"
	ActionRestart = "restart"
	ActionEnd     = "end"
)

// MaxChatLength caps chat messages before they are relayed
const MaxChatLength = 500

// ErrUnknownType is returned for envelope tags outside the protocol
var ErrUnknownType = errors.New("unknown message type")

// Envelope is the outer wire frame for every message in both directions
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message is an outbound message ready for encoding
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Decode parses a raw inbound frame into an envelope. The payload stays raw
// until the tag-specific schema is applied.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed frame: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, errors.New("missing message type")
	}
	switch env.Type {
	case TypeRoomJoin, TypeRoomLeave, TypeGameStart, TypeGameAction,
		TypePlayerUpdate, TypeEntityCollision, TypeChatMessage, TypeRoomList:
		return env, nil
	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// DecodePayload unmarshals an envelope payload into its fixed schema,
// rejecting unknown fields.
func DecodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return nil
}

// Encode serializes an outbound message
func Encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Inbound payloads

// RoomJoinPayload asks to join a room, or to create one when RoomID is empty
type RoomJoinPayload struct {
	Name   string `json:"name"`
	RoomID string `json:"roomId,omitempty"`
	Color  string `json:"color,omitempty"`
}

// GameActionPayload dispatches an in-game action
type GameActionPayload struct {
	Action    string `json:"action"`
	AutoStart bool   `json:"autoStart,omitempty"`
}

// EntityCollisionPayload reports a client-observed collision. It is also the
// outbound broadcast payload.
type EntityCollisionPayload struct {
	EntityType string `json:"entityType"`
	EntityID   int64  `json:"entityId"`
	PlayerID   string `json:"playerId"`
}

// ChatSendPayload carries an inbound chat message
type ChatSendPayload struct {
	Message string `json:"message"`
}

// Outbound payloads

// PlayerInfo is a player as shown to clients
type PlayerInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`
	IsHost bool   `json:"isHost"`
}

// PlayerFromModel converts a model player to its wire form
func PlayerFromModel(p model.Player) PlayerInfo {
	return PlayerInfo{
		ID:     string(p.ID),
		Name:   p.Name,
		Color:  p.Color,
		IsHost: p.IsHost,
	}
}

// PlayersFromModel converts a roster to its wire form
func PlayersFromModel(players []model.Player) []PlayerInfo {
	out := make([]PlayerInfo, len(players))
	for i, p := range players {
		out[i] = PlayerFromModel(p)
	}
	return out
}

// RoomJoinedPayload confirms a join to the joining connection
type RoomJoinedPayload struct {
	RoomID  string       `json:"roomId"`
	IsHost  bool         `json:"isHost"`
	Players []PlayerInfo `json:"players"`
}

// RoomPlayerJoinedPayload announces a new player to the rest of the room
type RoomPlayerJoinedPayload struct {
	Player PlayerInfo `json:"player"`
}

// RoomPlayerLeftPayload announces a departure
type RoomPlayerLeftPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoomHostChangedPayload announces a host promotion to the whole room
type RoomHostChangedPayload struct {
	Host     string `json:"host"`
	HostName string `json:"hostName"`
}

// HostGrantPayload is the host-targeted variant of room_host_changed
type HostGrantPayload struct {
	IsHost bool `json:"isHost"`
}

// RoomClosedPayload tells detached players their room is gone
type RoomClosedPayload struct {
	Reason   string `json:"reason"`
	Message  string `json:"message"`
	HostName string `json:"hostName,omitempty"`
}

// GameStartPayload announces a starting game. StartTime is epoch millis.
type GameStartPayload struct {
	Players   []PlayerInfo `json:"players"`
	StartTime int64        `json:"startTime"`
}

// GameEndPayload announces a game ending. LocalOnly marks a copy addressed
// to a single client so only that client tears down its game view.
type GameEndPayload struct {
	Reason     string `json:"reason"`
	PlayerID   string `json:"playerId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	Timestamp  int64  `json:"timestamp"`
	LocalOnly  bool   `json:"localOnly,omitempty"`
}

// GamePausePayload announces a pause
type GamePausePayload struct {
	PlayerID string `json:"playerId"`
}

// GameResumePayload announces a resume
type GameResumePayload struct {
	PlayerID string `json:"playerId"`
}

// GameRestartPayload announces a restart back to the waiting room
type GameRestartPayload struct {
	PlayerID   string `json:"playerId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	StartTime  int64  `json:"startTime"`
	AutoStart  bool   `json:"autoStart,omitempty"`
}

// PlayerQuitPayload announces a mid-game departure that the game survives
type PlayerQuitPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// AsteroidData is the wire form of a spawned asteroid
type AsteroidData struct {
	ID            int64   `json:"id"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	VX            float64 `json:"vx"`
	VY            float64 `json:"vy"`
	Radius        float64 `json:"radius"`
	RotationSpeed float64 `json:"rotationSpeed"`
}

// PowerupData is the wire form of a spawned powerup
type PowerupData struct {
	ID   int64   `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Type string  `json:"type"`
}

// EntitySpawnPayload announces a newly spawned entity
type EntitySpawnPayload struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// EntityExpirePayload announces an entity reaching its lifetime
type EntityExpirePayload struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

// ChatBroadcastPayload relays a chat message to the room
type ChatBroadcastPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
}

// RoomListing is one advertised room in a room_list response
type RoomListing struct {
	ID          string `json:"id"`
	PlayerCount int    `json:"playerCount"`
	Host        string `json:"host"`
}

// RoomListPayload answers a room_list query
type RoomListPayload struct {
	Rooms []RoomListing `json:"rooms"`
}

// ErrorPayload reports a failed request to its sender. Code is the
// machine-checkable kind; Message is for humans.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
