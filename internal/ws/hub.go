package ws

import (
	"log/slog"
	"sync"

	"github.com/astroclash/server/internal/model"
	"github.com/astroclash/server/internal/protocol"
)

// Sender is one connected client's outbound side. Send must not block; it
// reports false when the message was dropped because the client's buffer
// was full.
type Sender interface {
	ID() model.ConnectionID
	Send(data []byte) bool
}

// Hub fans messages out to the clients of a single room. Fan-out is
// synchronous into per-client buffered queues, so messages caused by an
// earlier room mutation are always enqueued before messages from a later
// one.
type Hub struct {
	roomID  model.RoomID
	mu      sync.RWMutex
	clients map[model.ConnectionID]Sender
	logger  *slog.Logger
}

// NewHub creates a new Hub for a room
func NewHub(roomID model.RoomID, logger *slog.Logger) *Hub {
	return &Hub{
		roomID:  roomID,
		clients: make(map[model.ConnectionID]Sender),
		logger:  logger.With(slog.String("room", string(roomID))),
	}
}

// Add registers a client with the hub
func (h *Hub) Add(client Sender) {
	h.mu.Lock()
	h.clients[client.ID()] = client
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("hub client added",
		slog.String("conn", string(client.ID())),
		slog.Int("total_clients", count))
}

// Remove drops a client from the hub
func (h *Hub) Remove(id model.ConnectionID) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

// Broadcast sends a frame to every client in the room
func (h *Hub) Broadcast(data []byte) {
	h.broadcast(data, "")
}

// BroadcastExcept sends a frame to every client except one
func (h *Hub) BroadcastExcept(except model.ConnectionID, data []byte) {
	h.broadcast(data, except)
}

func (h *Hub) broadcast(data []byte, except model.ConnectionID) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for id, client := range h.clients {
		if id == except {
			continue
		}
		if !client.Send(data) {
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("broadcast partially dropped - client buffers full",
			slog.Int("dropped", dropped))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HubManager tracks every connected client and the per-room hubs
type HubManager struct {
	mu      sync.RWMutex
	hubs    map[model.RoomID]*Hub
	clients map[model.ConnectionID]Sender
	logger  *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:    make(map[model.RoomID]*Hub),
		clients: make(map[model.ConnectionID]Sender),
		logger:  logger.With(slog.String("component", "ws")),
	}
}

// AddClient registers a connected client, roomless until it joins
func (m *HubManager) AddClient(client Sender) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[client.ID()] = client
}

// RemoveClient drops a client on disconnect
func (m *HubManager) RemoveClient(id model.ConnectionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, id)
}

// JoinRoom adds a client to a room's hub, creating the hub if needed
func (m *HubManager) JoinRoom(roomID model.RoomID, client Sender) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hub, ok := m.hubs[roomID]
	if !ok {
		hub = NewHub(roomID, m.logger)
		m.hubs[roomID] = hub
	}
	hub.Add(client)
}

// LeaveRoom removes a client from a room's hub; empty hubs are discarded
func (m *HubManager) LeaveRoom(roomID model.RoomID, id model.ConnectionID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hub, ok := m.hubs[roomID]
	if !ok {
		return
	}
	hub.Remove(id)
	if hub.ClientCount() == 0 {
		delete(m.hubs, roomID)
	}
}

// RemoveHub discards a room's hub outright (the room was closed)
func (m *HubManager) RemoveHub(roomID model.RoomID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hubs, roomID)
}

// GetHub returns the hub for a room, or nil if none exists
func (m *HubManager) GetHub(roomID model.RoomID) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[roomID]
}

// BroadcastToRoom encodes a message once and fans it out to the whole room
func (m *HubManager) BroadcastToRoom(roomID model.RoomID, msg protocol.Message) {
	m.broadcastToRoom(roomID, msg, "")
}

// BroadcastToRoomExcept fans a message out to the room, skipping one client
func (m *HubManager) BroadcastToRoomExcept(
	roomID model.RoomID,
	except model.ConnectionID,
	msg protocol.Message,
) {
	m.broadcastToRoom(roomID, msg, except)
}

func (m *HubManager) broadcastToRoom(roomID model.RoomID, msg protocol.Message, except model.ConnectionID) {
	hub := m.GetHub(roomID)
	if hub == nil {
		return
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		m.logger.Error("failed to encode broadcast",
			slog.String("type", msg.Type),
			slog.Any("error", err))
		return
	}
	if except == "" {
		hub.Broadcast(data)
	} else {
		hub.BroadcastExcept(except, data)
	}
}

// SendTo delivers a message to a single connection, in or out of a room
func (m *HubManager) SendTo(id model.ConnectionID, msg protocol.Message) {
	m.mu.RLock()
	client, ok := m.clients[id]
	m.mu.RUnlock()
	if !ok {
		return
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		m.logger.Error("failed to encode message",
			slog.String("type", msg.Type),
			slog.Any("error", err))
		return
	}
	if !client.Send(data) {
		m.logger.Warn("message dropped - client buffer full",
			slog.String("conn", string(id)),
			slog.String("type", msg.Type))
	}
}
