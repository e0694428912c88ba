package rooms

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/astroclash/server/internal/dependencies/clock"
	"github.com/astroclash/server/internal/dependencies/random"
	"github.com/astroclash/server/internal/model"
	"github.com/astroclash/server/internal/registry"
	"github.com/astroclash/server/internal/storage"
)

const (
	// RoomCodeLength is the length of generated room codes
	RoomCodeLength = 6
	// RoomCodeAlphabet is the characters used in room codes (avoid confusing chars)
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// DepartReason distinguishes how a player left their room. Explicit leave
// and transport disconnect run the identical departure policy; the reason
// only colors the room_closed broadcast.
type DepartReason string

const (
	DepartLeave      DepartReason = "leave"
	DepartDisconnect DepartReason = "disconnect"
	DepartQuit       DepartReason = "quit"
)

// EventSink receives the events each mutation produced. The manager calls
// it synchronously while still holding the mutation mutex, so sinks observe
// a room's events in mutation order. Sinks must not call back into the
// manager.
type EventSink interface {
	PublishEvents(events []model.Event)
}

// Manager enforces room lifecycle rules against the room store and the
// connection registry. Every mutation — join, leave, action dispatch, spawn
// tick, powerup expiry, reap sweep — runs under one mutex, so no two
// mutations on the same room ever interleave partially.
type Manager struct {
	mu       sync.Mutex
	store    storage.Storage
	registry *registry.Registry
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger
	sink     EventSink
}

// NewManager creates a new room lifecycle manager
func NewManager(
	store storage.Storage,
	reg *registry.Registry,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		store:    store,
		registry: reg,
		clock:    clk,
		random:   rnd,
		logger:   logger.With(slog.String("component", "rooms")),
	}
}

// SetEventSink wires the broadcast side in once at startup.
func (m *Manager) SetEventSink(sink EventSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
}

// emit hands events to the sink. Callers must hold m.mu.
func (m *Manager) emit(events []model.Event) {
	if m.sink != nil && len(events) > 0 {
		m.sink.PublishEvents(events)
	}
}

// JoinResult describes a successful join
type JoinResult struct {
	Room   *model.Room
	Player model.Player
	// Events to broadcast to the rest of the room (empty when the room was
	// just created)
	Events []model.Event
}

// LeaveResult describes a completed departure. Nil when the connection was
// not in a room (leaving is idempotent).
type LeaveResult struct {
	RoomID model.RoomID
	Events []model.Event
}

// StartResult describes a successfully started game
type StartResult struct {
	Room   *model.Room
	Events []model.Event
}

// ActionResult describes a dispatched in-game action
type ActionResult struct {
	RoomID model.RoomID
	Events []model.Event
}

// RoomSummary is an advertised room in a room listing
type RoomSummary struct {
	ID          model.RoomID
	PlayerCount int
	HostName    string
}

// CreateRoom generates a fresh unique room id and inserts an empty room.
// It only fails if the store does.
func (m *Manager) CreateRoom(ctx context.Context) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createRoom(ctx)
}

func (m *Manager) createRoom(ctx context.Context) (*model.Room, error) {
	var id model.RoomID
	for {
		id = model.RoomID(m.random.String(RoomCodeLength, RoomCodeAlphabet))
		exists, err := m.store.RoomExists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
	}

	now := m.clock.Now()
	room := &model.Room{
		ID:        id,
		State:     model.RoomStateWaiting,
		Players:   []model.Player{},
		CreatedAt: now,
	}
	room.ResetEntities(now)

	if err := m.store.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	m.logger.Info("room created", slog.String("room", string(id)))
	return room, nil
}

// JoinRoom adds a connection to a room. With an empty room code a fresh room
// is created and the joiner becomes host; otherwise the code is normalized
// and looked up. No state is mutated on failure.
func (m *Manager) JoinRoom(
	ctx context.Context,
	connID model.ConnectionID,
	displayName string,
	roomCode string,
	color string,
) (*JoinResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, model.ErrInvalidName
	}

	if strings.TrimSpace(roomCode) == "" {
		return m.joinFreshRoom(ctx, connID, displayName, color)
	}

	id := model.NormalizeRoomID(roomCode)
	room, err := m.store.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(room.Players) >= model.MaxPlayers {
		return nil, model.ErrRoomFull
	}
	if room.State.Active() {
		return nil, model.ErrGameInProgress
	}
	if room.HasName(displayName) {
		return nil, model.ErrNameTaken
	}

	player := model.Player{
		ID:       connID,
		Name:     displayName,
		Color:    color,
		IsHost:   false,
		JoinedAt: m.clock.Now(),
	}
	room.Players = append(room.Players, player)

	if err := m.store.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	m.registry.SetRoom(connID, room.ID, displayName)

	m.logger.Info("player joined room",
		slog.String("room", string(room.ID)),
		slog.String("conn", string(connID)),
		slog.String("name", displayName))

	events := []model.Event{{
		Type:    model.EventPlayerJoined,
		RoomID:  room.ID,
		Payload: model.PlayerJoinedPayload{Player: player},
	}}
	m.emit(events)

	return &JoinResult{Room: room, Player: player, Events: events}, nil
}

func (m *Manager) joinFreshRoom(
	ctx context.Context,
	connID model.ConnectionID,
	displayName string,
	color string,
) (*JoinResult, error) {
	room, err := m.createRoom(ctx)
	if err != nil {
		return nil, err
	}

	player := model.Player{
		ID:       connID,
		Name:     displayName,
		Color:    color,
		IsHost:   true,
		JoinedAt: m.clock.Now(),
	}
	room.Players = append(room.Players, player)
	room.SetHost(connID)

	if err := m.store.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	m.registry.SetRoom(connID, room.ID, displayName)

	m.logger.Info("player created room",
		slog.String("room", string(room.ID)),
		slog.String("conn", string(connID)),
		slog.String("name", displayName))

	return &JoinResult{Room: room, Player: player}, nil
}

// LeaveRoom removes a connection from its room, applying the departure
// policy. It is a no-op for connections not currently in a room.
func (m *Manager) LeaveRoom(
	ctx context.Context,
	connID model.ConnectionID,
	reason DepartReason,
) (*LeaveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.registry.Room(connID)
	if !ok {
		return nil, nil
	}

	room, err := m.store.GetRoom(ctx, roomID)
	if err != nil {
		// Stale registry association; heal it
		m.registry.ClearRoom(connID)
		return nil, nil
	}

	events, _, err := m.depart(ctx, room, connID, reason)
	if err != nil {
		return nil, err
	}
	m.emit(events)
	return &LeaveResult{RoomID: roomID, Events: events}, nil
}

// depart applies the departure policy. Identical for explicit leave,
// transport disconnect, and in-game quit. Returns the events to broadcast
// and whether the room was deleted.
func (m *Manager) depart(
	ctx context.Context,
	room *model.Room,
	connID model.ConnectionID,
	reason DepartReason,
) ([]model.Event, bool, error) {
	removed, ok := room.RemovePlayer(connID)
	if !ok {
		m.registry.ClearRoom(connID)
		return nil, false, nil
	}
	m.registry.ClearRoom(connID)

	// Host leaving the waiting room closes it outright
	if removed.IsHost && !room.StartedEver {
		closeReason := model.CloseReasonHostLeft
		if reason == DepartDisconnect {
			closeReason = model.CloseReasonHostDisconnected
		}
		events := []model.Event{m.closeRoom(ctx, room, closeReason, removed.Name)}
		return events, true, nil
	}

	var events []model.Event
	if len(room.Players) > 0 {
		events = append(events, model.Event{
			Type:    model.EventPlayerLeft,
			RoomID:  room.ID,
			Payload: model.PlayerLeftPayload{PlayerID: removed.ID, Name: removed.Name},
		})
	}

	// Empty room: delete immediately
	if len(room.Players) == 0 {
		if err := m.store.DeleteRoom(ctx, room.ID); err != nil {
			return nil, false, err
		}
		m.logger.Info("room deleted, empty", slog.String("room", string(room.ID)))
		return events, true, nil
	}

	// One player left before any game started: not a viable room
	if len(room.Players) == 1 && !room.StartedEver {
		events = append(events, m.closeRoom(ctx, room, model.CloseReasonInsufficientPlayers, ""))
		return events, true, nil
	}

	// Promote the earliest remaining joiner if the host departed
	if removed.IsHost {
		newHost := room.Players[0]
		room.SetHost(newHost.ID)
		events = append(events, model.Event{
			Type:    model.EventHostChanged,
			RoomID:  room.ID,
			Payload: model.HostChangedPayload{HostID: newHost.ID, HostName: newHost.Name},
		})
	}

	// Mid-game departures either continue the game or force it to end
	if room.State.Active() {
		if len(room.Players) >= model.MinPlayersToStart {
			events = append(events, model.Event{
				Type:    model.EventPlayerQuit,
				RoomID:  room.ID,
				Payload: model.PlayerQuitPayload{PlayerID: removed.ID, Name: removed.Name},
			})
		} else {
			room.State = model.RoomStateEnded
			events = append(events, model.Event{
				Type:   model.EventGameEnded,
				RoomID: room.ID,
				Payload: model.GameEndedPayload{
					Reason:     model.EndReasonQuit,
					PlayerID:   removed.ID,
					PlayerName: removed.Name,
					Timestamp:  m.clock.Now(),
				},
			})
		}
	}

	if err := m.store.SaveRoom(ctx, room); err != nil {
		return nil, false, err
	}
	return events, false, nil
}

// closeRoom detaches every remaining player, deletes the room, and returns
// the room_closed event addressed to the detached connections.
func (m *Manager) closeRoom(
	ctx context.Context,
	room *model.Room,
	reason string,
	hostName string,
) model.Event {
	recipients := make([]model.ConnectionID, 0, len(room.Players))
	for _, p := range room.Players {
		recipients = append(recipients, p.ID)
		m.registry.ClearRoom(p.ID)
	}

	if err := m.store.DeleteRoom(ctx, room.ID); err != nil {
		m.logger.Error("failed to delete room",
			slog.String("room", string(room.ID)),
			slog.Any("error", err))
	}
	m.logger.Info("room closed",
		slog.String("room", string(room.ID)),
		slog.String("reason", reason))

	return model.Event{
		Type:   model.EventRoomClosed,
		RoomID: room.ID,
		Payload: model.RoomClosedPayload{
			Reason:     reason,
			HostName:   hostName,
			Recipients: recipients,
		},
	}
}

// StartGame begins a game in the caller's room. Host-only; needs at least
// two players.
func (m *Manager) StartGame(ctx context.Context, connID model.ConnectionID) (*StartResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, err := m.roomFor(ctx, connID)
	if err != nil {
		return nil, err
	}
	if room.Host != connID {
		return nil, model.ErrNotHost
	}
	if room.State.Active() {
		return nil, model.ErrGameInProgress
	}
	if len(room.Players) < model.MinPlayersToStart {
		return nil, model.ErrNotEnoughPlayers
	}

	now := m.clock.Now()
	room.State = model.RoomStateInProgress
	room.StartedEver = true
	room.StartedAt = now
	room.ResetEntities(now)

	if err := m.store.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	m.logger.Info("game started",
		slog.String("room", string(room.ID)),
		slog.Int("players", len(room.Players)))

	players := make([]model.Player, len(room.Players))
	copy(players, room.Players)

	events := []model.Event{{
		Type:    model.EventGameStarted,
		RoomID:  room.ID,
		Payload: model.GameStartedPayload{Players: players, StartedAt: now},
	}}
	m.emit(events)

	return &StartResult{Room: room, Events: events}, nil
}

// PauseGame pauses a running game. Any player may pause.
func (m *Manager) PauseGame(ctx context.Context, connID model.ConnectionID) (*ActionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, err := m.roomFor(ctx, connID)
	if err != nil {
		return nil, err
	}
	if room.State != model.RoomStateInProgress {
		return nil, model.ErrNoGameInProgress
	}

	room.State = model.RoomStatePaused
	if err := m.store.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	events := []model.Event{{
		Type:    model.EventGamePaused,
		RoomID:  room.ID,
		Payload: model.GamePausedPayload{PlayerID: connID},
	}}
	m.emit(events)

	return &ActionResult{RoomID: room.ID, Events: events}, nil
}

// ResumeGame resumes a paused game. Any player may resume.
func (m *Manager) ResumeGame(ctx context.Context, connID model.ConnectionID) (*ActionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, err := m.roomFor(ctx, connID)
	if err != nil {
		return nil, err
	}
	if room.State != model.RoomStatePaused {
		return nil, model.ErrNoGameInProgress
	}

	room.State = model.RoomStateInProgress
	if err := m.store.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	events := []model.Event{{
		Type:    model.EventGameResumed,
		RoomID:  room.ID,
		Payload: model.GameResumedPayload{PlayerID: connID},
	}}
	m.emit(events)

	return &ActionResult{RoomID: room.ID, Events: events}, nil
}

// QuitGame removes the caller from their mid-game room. If the game can
// continue the others see player_quit and the quitter gets a local-only
// game_end; if the room would drop below two players the game ends for
// everyone.
func (m *Manager) QuitGame(ctx context.Context, connID model.ConnectionID) (*ActionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, err := m.roomFor(ctx, connID)
	if err != nil {
		return nil, err
	}
	if !room.State.Active() {
		return nil, model.ErrNoGameInProgress
	}

	roomID := room.ID
	events, _, err := m.depart(ctx, room, connID, DepartQuit)
	if err != nil {
		return nil, err
	}

	// If the game survived the departure, tear down only the quitter's view
	if !containsGameEnd(events) {
		events = append(events, model.Event{
			Type:   model.EventGameEnded,
			RoomID: roomID,
			Payload: model.GameEndedPayload{
				Reason:    model.EndReasonQuit,
				PlayerID:  connID,
				Timestamp: m.clock.Now(),
				LocalTo:   connID,
			},
		})
	}
	m.emit(events)

	return &ActionResult{RoomID: roomID, Events: events}, nil
}

func containsGameEnd(events []model.Event) bool {
	for _, e := range events {
		if e.Type == model.EventGameEnded {
			return true
		}
	}
	return false
}

// RestartGame returns the room to the waiting state with a fresh start
// timestamp. Host-only, permitted regardless of the current state.
func (m *Manager) RestartGame(
	ctx context.Context,
	connID model.ConnectionID,
	autoStart bool,
) (*ActionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, err := m.roomFor(ctx, connID)
	if err != nil {
		return nil, err
	}
	if room.Host != connID {
		return nil, model.ErrNotHost
	}

	now := m.clock.Now()
	room.State = model.RoomStateWaiting
	room.StartedEver = false
	room.StartedAt = now
	room.ResetEntities(now)

	if err := m.store.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	player := room.GetPlayer(connID)
	events := []model.Event{{
		Type:   model.EventGameRestarted,
		RoomID: room.ID,
		Payload: model.GameRestartedPayload{
			PlayerID:   connID,
			PlayerName: player.Name,
			StartedAt:  now,
			AutoStart:  autoStart,
		},
	}}
	m.emit(events)

	return &ActionResult{RoomID: room.ID, Events: events}, nil
}

// EndGame ends a running game naturally (e.g. time limit reached).
// Host-only.
func (m *Manager) EndGame(ctx context.Context, connID model.ConnectionID) (*ActionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, err := m.roomFor(ctx, connID)
	if err != nil {
		return nil, err
	}
	if room.Host != connID {
		return nil, model.ErrNotHost
	}
	if !room.State.Active() {
		return nil, model.ErrNoGameInProgress
	}

	room.State = model.RoomStateEnded
	if err := m.store.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	events := []model.Event{{
		Type:   model.EventGameEnded,
		RoomID: room.ID,
		Payload: model.GameEndedPayload{
			Reason:    model.EndReasonTimeLimit,
			Timestamp: m.clock.Now(),
		},
	}}
	m.emit(events)

	return &ActionResult{RoomID: room.ID, Events: events}, nil
}

// CollisionResult describes a processed entity collision report
type CollisionResult struct {
	RoomID model.RoomID
	// Removed is false for a duplicate report; the report is then a silent
	// no-op, since several clients may report the same collision.
	Removed bool
	Events  []model.Event
}

// ReportCollision removes the named entity from the room's authoritative
// set. Duplicate reports are silent no-ops, not errors.
func (m *Manager) ReportCollision(
	ctx context.Context,
	connID model.ConnectionID,
	entityType model.EntityType,
	entityID model.EntityID,
	playerID model.ConnectionID,
) (*CollisionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, err := m.roomFor(ctx, connID)
	if err != nil {
		return nil, err
	}

	removed := false
	switch entityType {
	case model.EntityAsteroid:
		if _, ok := room.Asteroids[entityID]; ok {
			delete(room.Asteroids, entityID)
			removed = true
		}
	case model.EntityPowerup:
		if _, ok := room.Powerups[entityID]; ok {
			delete(room.Powerups, entityID)
			removed = true
		}
	}

	if !removed {
		return &CollisionResult{RoomID: room.ID}, nil
	}

	if err := m.store.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	events := []model.Event{{
		Type:   model.EventEntityCollided,
		RoomID: room.ID,
		Payload: model.EntityCollidedPayload{
			EntityType: entityType,
			ID:         entityID,
			PlayerID:   playerID,
		},
	}}
	m.emit(events)

	return &CollisionResult{RoomID: room.ID, Removed: true, Events: events}, nil
}

// GetRoom returns the caller's current room state
func (m *Manager) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.GetRoom(ctx, id)
}

// ListRooms returns the advertised room listing: rooms with one to five
// players and no game underway. The enforced join cap stays at MaxPlayers;
// the looser filter is a display nicety.
func (m *Manager) ListRooms(ctx context.Context) ([]RoomSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all, err := m.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]RoomSummary, 0, len(all))
	for _, room := range all {
		n := len(room.Players)
		if n == 0 || n >= 6 || room.State.Active() {
			continue
		}
		hostName := ""
		if host := room.GetPlayer(room.Host); host != nil {
			hostName = host.Name
		}
		summaries = append(summaries, RoomSummary{
			ID:          room.ID,
			PlayerCount: n,
			HostName:    hostName,
		})
	}
	return summaries, nil
}

// roomFor resolves the caller's current room. Callers must hold m.mu.
func (m *Manager) roomFor(ctx context.Context, connID model.ConnectionID) (*model.Room, error) {
	roomID, ok := m.registry.Room(connID)
	if !ok {
		return nil, model.ErrNotInRoom
	}
	room, err := m.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, model.ErrNotInRoom
	}
	return room, nil
}
