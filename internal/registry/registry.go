package registry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/astroclash/server/internal/model"
)

// Registry tracks every live connection and its current room association.
// It is the single source of truth for "is this connection still alive":
// an entry exists exactly while the underlying transport session does.
type Registry struct {
	mu    sync.RWMutex
	conns map[model.ConnectionID]*entry
}

type entry struct {
	roomID model.RoomID
	name   string
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		conns: make(map[model.ConnectionID]*entry),
	}
}

// NewConnectionID mints an opaque id for a fresh transport session
func NewConnectionID() model.ConnectionID {
	return model.ConnectionID(uuid.NewString())
}

// Add registers a newly connected session
func (r *Registry) Add(id model.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &entry{}
}

// Remove drops a session on transport disconnect
func (r *Registry) Remove(id model.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// IsLive reports whether the connection is still registered
func (r *Registry) IsLive(id model.ConnectionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[id]
	return ok
}

// SetRoom associates a connection with a room and caches its display name
func (r *Registry) SetRoom(id model.ConnectionID, roomID model.RoomID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[id]; ok {
		e.roomID = roomID
		e.name = name
	}
}

// ClearRoom detaches a connection from its room. The cached name is kept so
// departure broadcasts can still label the player.
func (r *Registry) ClearRoom(id model.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[id]; ok {
		e.roomID = ""
	}
}

// Room returns the connection's current room id, if any
func (r *Registry) Room(id model.ConnectionID) (model.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok || e.roomID == "" {
		return "", false
	}
	return e.roomID, true
}

// Name returns the connection's cached display name, or "" if unknown
func (r *Registry) Name(id model.ConnectionID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[id]; ok {
		return e.name
	}
	return ""
}

// Count returns the number of live connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
