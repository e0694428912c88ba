package model

import "time"

// ConnectionID identifies one live transport session. It is assigned at
// connect time and is unique for the lifetime of the process.
type ConnectionID string

// Player represents a connection's membership in a room. Its ID is always
// the owning connection's id.
type Player struct {
	ID       ConnectionID
	Name     string
	Color    string // client-supplied cosmetic tag, unvalidated
	IsHost   bool
	JoinedAt time.Time
}
