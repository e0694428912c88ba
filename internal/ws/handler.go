package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/astroclash/server/internal/model"
	"github.com/astroclash/server/internal/protocol"
	"github.com/astroclash/server/internal/registry"
	"github.com/astroclash/server/internal/services/rooms"
)

// SpawnStarter starts the entity spawn loop for a room once a game begins.
type SpawnStarter interface {
	Begin(roomID model.RoomID)
}

// Handler is the session protocol handler: it decodes inbound messages,
// dispatches them to the room lifecycle manager, and translates the
// resulting events into outbound broadcasts.
type Handler struct {
	manager  *rooms.Manager
	registry *registry.Registry
	hubs     *HubManager
	starter  SpawnStarter
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new websocket session handler
func NewHandler(
	manager *rooms.Manager,
	reg *registry.Registry,
	hubs *HubManager,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		manager:  manager,
		registry: reg,
		hubs:     hubs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Game clients are served from arbitrary origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

// SetSpawnStarter wires in the spawn loop. Set once at startup, before the
// handler serves connections.
func (h *Handler) SetSpawnStarter(s SpawnStarter) {
	h.starter = s
}

// ServeHTTP upgrades the request and runs the connection's session
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	id := registry.NewConnectionID()
	client := NewClient(id, conn, h.logger)

	h.registry.Add(id)
	h.hubs.AddClient(client)
	h.logger.Info("client connected",
		slog.String("conn", string(id)),
		slog.Int("total_connections", h.registry.Count()))

	go client.writePump()
	client.readPump(h)
}

// HandleMessage dispatches one inbound frame from a client
func (h *Handler) HandleMessage(c Sender, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		h.sendError(c, protocol.ErrorPayload{
			Code:    CodeInvalidMessage,
			Message: "Malformed message",
		})
		return
	}

	ctx := context.Background()

	switch env.Type {
	case protocol.TypeRoomJoin:
		h.handleRoomJoin(ctx, c, env.Payload)
	case protocol.TypeRoomLeave:
		h.handleRoomLeave(ctx, c)
	case protocol.TypeGameStart:
		h.handleGameStart(ctx, c)
	case protocol.TypeGameAction:
		h.handleGameAction(ctx, c, env.Payload)
	case protocol.TypePlayerUpdate:
		h.handlePlayerUpdate(ctx, c, env.Payload)
	case protocol.TypeEntityCollision:
		h.handleEntityCollision(ctx, c, env.Payload)
	case protocol.TypeChatMessage:
		h.handleChatMessage(c, env.Payload)
	case protocol.TypeRoomList:
		h.handleRoomList(ctx, c)
	default:
		h.sendError(c, protocol.ErrorPayload{
			Code:    CodeInvalidMessage,
			Message: "Unknown message type",
		})
	}
}

// HandleDisconnect runs the departure policy for a dropped connection
func (h *Handler) HandleDisconnect(c Sender) {
	ctx := context.Background()

	res, err := h.manager.LeaveRoom(ctx, c.ID(), rooms.DepartDisconnect)
	if err != nil {
		h.logger.Error("disconnect departure failed",
			slog.String("conn", string(c.ID())),
			slog.Any("error", err))
	}
	if res != nil {
		h.hubs.LeaveRoom(res.RoomID, c.ID())
	}

	h.hubs.RemoveClient(c.ID())
	h.registry.Remove(c.ID())
	h.logger.Info("client disconnected", slog.String("conn", string(c.ID())))
}

func (h *Handler) handleRoomJoin(ctx context.Context, c Sender, raw json.RawMessage) {
	var p protocol.RoomJoinPayload
	if err := protocol.DecodePayload(raw, &p); err != nil {
		h.sendError(c, protocol.ErrorPayload{Code: CodeInvalidMessage, Message: "Malformed room_join payload"})
		return
	}

	res, err := h.manager.JoinRoom(ctx, c.ID(), p.Name, p.RoomID, p.Color)
	if err != nil {
		h.sendError(c, errorPayloadFor(err))
		return
	}

	h.hubs.JoinRoom(res.Room.ID, c)
	h.reply(c, protocol.Message{
		Type: protocol.TypeRoomJoined,
		Payload: protocol.RoomJoinedPayload{
			RoomID:  string(res.Room.ID),
			IsHost:  res.Player.IsHost,
			Players: protocol.PlayersFromModel(res.Room.Players),
		},
	})
}

func (h *Handler) handleRoomLeave(ctx context.Context, c Sender) {
	res, err := h.manager.LeaveRoom(ctx, c.ID(), rooms.DepartLeave)
	if err != nil {
		h.sendError(c, errorPayloadFor(err))
		return
	}
	if res == nil {
		// Not in a room; leaving is idempotent
		return
	}
	h.hubs.LeaveRoom(res.RoomID, c.ID())
}

func (h *Handler) handleGameStart(ctx context.Context, c Sender) {
	res, err := h.manager.StartGame(ctx, c.ID())
	if err != nil {
		h.sendError(c, errorPayloadFor(err))
		return
	}
	if h.starter != nil {
		h.starter.Begin(res.Room.ID)
	}
}

func (h *Handler) handleGameAction(ctx context.Context, c Sender, raw json.RawMessage) {
	var p protocol.GameActionPayload
	if err := protocol.DecodePayload(raw, &p); err != nil {
		h.sendError(c, protocol.ErrorPayload{Code: CodeInvalidMessage, Message: "Malformed game_action payload"})
		return
	}

	var (
		res *rooms.ActionResult
		err error
	)
	switch p.Action {
	case protocol.ActionPause:
		res, err = h.manager.PauseGame(ctx, c.ID())
	case protocol.ActionResume:
		res, err = h.manager.ResumeGame(ctx, c.ID())
	case protocol.ActionQuit:
		res, err = h.manager.QuitGame(ctx, c.ID())
	case protocol.ActionRestart:
		res, err = h.manager.RestartGame(ctx, c.ID(), p.AutoStart)
	case protocol.ActionEnd:
		res, err = h.manager.EndGame(ctx, c.ID())
	default:
		h.sendError(c, protocol.ErrorPayload{Code: CodeInvalidMessage, Message: "Unknown game action"})
		return
	}
	if err != nil {
		h.sendError(c, errorPayloadFor(err))
		return
	}

	if p.Action == protocol.ActionQuit {
		h.hubs.LeaveRoom(res.RoomID, c.ID())
	}
}

// handlePlayerUpdate relays raw position/state frames between the clients
// of an active game. The server injects the sender's id but is otherwise
// not interested in the contents. Frames outside an active game are
// dropped silently.
func (h *Handler) handlePlayerUpdate(ctx context.Context, c Sender, raw json.RawMessage) {
	roomID, ok := h.registry.Room(c.ID())
	if !ok {
		return
	}
	room, err := h.manager.GetRoom(ctx, roomID)
	if err != nil || !room.State.Active() {
		return
	}

	update := make(map[string]any)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &update); err != nil {
			return
		}
	}
	update["id"] = string(c.ID())

	h.hubs.BroadcastToRoomExcept(roomID, c.ID(), protocol.Message{
		Type:    protocol.TypePlayerUpdate,
		Payload: update,
	})
}

func (h *Handler) handleEntityCollision(ctx context.Context, c Sender, raw json.RawMessage) {
	var p protocol.EntityCollisionPayload
	if err := protocol.DecodePayload(raw, &p); err != nil {
		h.sendError(c, protocol.ErrorPayload{Code: CodeInvalidMessage, Message: "Malformed entity_collision payload"})
		return
	}
	entityType := model.EntityType(p.EntityType)
	if entityType != model.EntityAsteroid && entityType != model.EntityPowerup {
		h.sendError(c, protocol.ErrorPayload{Code: CodeInvalidMessage, Message: "Unknown entity type"})
		return
	}

	// Duplicate reports are silent no-ops
	_, err := h.manager.ReportCollision(ctx, c.ID(), entityType,
		model.EntityID(p.EntityID), model.ConnectionID(p.PlayerID))
	if err != nil {
		h.sendError(c, errorPayloadFor(err))
	}
}

func (h *Handler) handleChatMessage(c Sender, raw json.RawMessage) {
	var p protocol.ChatSendPayload
	if err := protocol.DecodePayload(raw, &p); err != nil {
		h.sendError(c, protocol.ErrorPayload{Code: CodeInvalidMessage, Message: "Malformed chat_message payload"})
		return
	}

	text := strings.TrimSpace(p.Message)
	if text == "" {
		h.sendError(c, errorPayloadFor(model.ErrMessageEmpty))
		return
	}
	if len(text) > protocol.MaxChatLength {
		h.sendError(c, errorPayloadFor(model.ErrMessageTooLong))
		return
	}

	roomID, ok := h.registry.Room(c.ID())
	if !ok {
		h.sendError(c, errorPayloadFor(model.ErrNotInRoom))
		return
	}

	h.hubs.BroadcastToRoom(roomID, protocol.Message{
		Type: protocol.TypeChatMessage,
		Payload: protocol.ChatBroadcastPayload{
			PlayerID:   string(c.ID()),
			PlayerName: h.registry.Name(c.ID()),
			Message:    text,
		},
	})
}

func (h *Handler) handleRoomList(ctx context.Context, c Sender) {
	summaries, err := h.manager.ListRooms(ctx)
	if err != nil {
		h.sendError(c, errorPayloadFor(err))
		return
	}

	listings := make([]protocol.RoomListing, len(summaries))
	for i, s := range summaries {
		listings[i] = protocol.RoomListing{
			ID:          string(s.ID),
			PlayerCount: s.PlayerCount,
			Host:        s.HostName,
		}
	}
	h.reply(c, protocol.Message{
		Type:    protocol.TypeRoomList,
		Payload: protocol.RoomListPayload{Rooms: listings},
	})
}

// PublishEvents translates lifecycle events into outbound broadcasts. It is
// the manager's event sink, called inside the mutation boundary, so a
// room's clients observe broadcasts in mutation order.
func (h *Handler) PublishEvents(events []model.Event) {
	for _, event := range events {
		h.publishEvent(event)
	}
}

func (h *Handler) publishEvent(event model.Event) {
	switch p := event.Payload.(type) {
	case model.PlayerJoinedPayload:
		h.hubs.BroadcastToRoomExcept(event.RoomID, p.Player.ID, protocol.Message{
			Type:    protocol.TypeRoomPlayerJoined,
			Payload: protocol.RoomPlayerJoinedPayload{Player: protocol.PlayerFromModel(p.Player)},
		})

	case model.PlayerLeftPayload:
		h.hubs.BroadcastToRoomExcept(event.RoomID, p.PlayerID, protocol.Message{
			Type:    protocol.TypeRoomPlayerLeft,
			Payload: protocol.RoomPlayerLeftPayload{ID: string(p.PlayerID), Name: p.Name},
		})

	case model.PlayerQuitPayload:
		h.hubs.BroadcastToRoomExcept(event.RoomID, p.PlayerID, protocol.Message{
			Type:    protocol.TypePlayerQuit,
			Payload: protocol.PlayerQuitPayload{PlayerID: string(p.PlayerID), PlayerName: p.Name},
		})

	case model.HostChangedPayload:
		h.hubs.BroadcastToRoom(event.RoomID, protocol.Message{
			Type:    protocol.TypeRoomHostChanged,
			Payload: protocol.RoomHostChangedPayload{Host: string(p.HostID), HostName: p.HostName},
		})
		// The new host additionally gets a targeted grant
		h.hubs.SendTo(p.HostID, protocol.Message{
			Type:    protocol.TypeRoomHostChanged,
			Payload: protocol.HostGrantPayload{IsHost: true},
		})

	case model.RoomClosedPayload:
		msg := protocol.Message{
			Type: protocol.TypeRoomClosed,
			Payload: protocol.RoomClosedPayload{
				Reason:   p.Reason,
				Message:  closeMessageFor(p.Reason),
				HostName: p.HostName,
			},
		}
		// The room is already gone; deliver per-connection, then drop the hub
		for _, id := range p.Recipients {
			h.hubs.SendTo(id, msg)
		}
		h.hubs.RemoveHub(event.RoomID)

	case model.GameStartedPayload:
		h.hubs.BroadcastToRoom(event.RoomID, protocol.Message{
			Type: protocol.TypeGameStart,
			Payload: protocol.GameStartPayload{
				Players:   protocol.PlayersFromModel(p.Players),
				StartTime: p.StartedAt.UnixMilli(),
			},
		})

	case model.GameEndedPayload:
		msg := protocol.Message{
			Type: protocol.TypeGameEnd,
			Payload: protocol.GameEndPayload{
				Reason:     p.Reason,
				PlayerID:   string(p.PlayerID),
				PlayerName: p.PlayerName,
				Timestamp:  p.Timestamp.UnixMilli(),
				LocalOnly:  p.LocalTo != "",
			},
		}
		if p.LocalTo != "" {
			h.hubs.SendTo(p.LocalTo, msg)
		} else {
			h.hubs.BroadcastToRoom(event.RoomID, msg)
		}

	case model.GamePausedPayload:
		h.hubs.BroadcastToRoom(event.RoomID, protocol.Message{
			Type:    protocol.TypeGamePause,
			Payload: protocol.GamePausePayload{PlayerID: string(p.PlayerID)},
		})

	case model.GameResumedPayload:
		h.hubs.BroadcastToRoom(event.RoomID, protocol.Message{
			Type:    protocol.TypeGameResume,
			Payload: protocol.GameResumePayload{PlayerID: string(p.PlayerID)},
		})

	case model.GameRestartedPayload:
		h.hubs.BroadcastToRoom(event.RoomID, protocol.Message{
			Type: protocol.TypeGameRestart,
			Payload: protocol.GameRestartPayload{
				PlayerID:   string(p.PlayerID),
				PlayerName: p.PlayerName,
				StartTime:  p.StartedAt.UnixMilli(),
				AutoStart:  p.AutoStart,
			},
		})

	case model.AsteroidSpawnedPayload:
		h.hubs.BroadcastToRoom(event.RoomID, protocol.Message{
			Type: protocol.TypeEntitySpawn,
			Payload: protocol.EntitySpawnPayload{
				Type: string(model.EntityAsteroid),
				Data: protocol.AsteroidData{
					ID:            int64(p.Asteroid.ID),
					X:             p.Asteroid.X,
					Y:             p.Asteroid.Y,
					VX:            p.Asteroid.VX,
					VY:            p.Asteroid.VY,
					Radius:        p.Asteroid.Radius,
					RotationSpeed: p.Asteroid.RotationSpeed,
				},
			},
		})

	case model.PowerupSpawnedPayload:
		h.hubs.BroadcastToRoom(event.RoomID, protocol.Message{
			Type: protocol.TypeEntitySpawn,
			Payload: protocol.EntitySpawnPayload{
				Type: string(model.EntityPowerup),
				Data: protocol.PowerupData{
					ID:   int64(p.Powerup.ID),
					X:    p.Powerup.X,
					Y:    p.Powerup.Y,
					Type: string(p.Powerup.Type),
				},
			},
		})

	case model.EntityExpiredPayload:
		h.hubs.BroadcastToRoom(event.RoomID, protocol.Message{
			Type:    protocol.TypeEntityExpire,
			Payload: protocol.EntityExpirePayload{Type: string(p.EntityType), ID: int64(p.ID)},
		})

	case model.EntityCollidedPayload:
		h.hubs.BroadcastToRoom(event.RoomID, protocol.Message{
			Type: protocol.TypeEntityCollision,
			Payload: protocol.EntityCollisionPayload{
				EntityType: string(p.EntityType),
				EntityID:   int64(p.ID),
				PlayerID:   string(p.PlayerID),
			},
		})

	default:
		h.logger.Warn("unhandled event type", slog.String("type", string(event.Type)))
	}
}

func closeMessageFor(reason string) string {
	switch reason {
	case model.CloseReasonHostLeft:
		return "The host left the room"
	case model.CloseReasonHostDisconnected:
		return "The host disconnected"
	case model.CloseReasonInsufficientPlayers:
		return "Not enough players to keep the room open"
	case model.CloseReasonExpired:
		return "The room expired"
	default:
		return "The room was closed"
	}
}

func (h *Handler) reply(c Sender, msg protocol.Message) {
	data, err := protocol.Encode(msg)
	if err != nil {
		h.logger.Error("failed to encode reply",
			slog.String("type", msg.Type),
			slog.Any("error", err))
		return
	}
	c.Send(data)
}

func (h *Handler) sendError(c Sender, payload protocol.ErrorPayload) {
	h.reply(c, protocol.Message{Type: protocol.TypeError, Payload: payload})
}
