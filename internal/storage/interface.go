package storage

import (
	"context"

	"github.com/astroclash/server/internal/model"
)

// Storage defines the interface for the room store
type Storage interface {
	SaveRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error)
	DeleteRoom(ctx context.Context, id model.RoomID) error
	RoomExists(ctx context.Context, id model.RoomID) (bool, error)
	// ListRooms returns every live room in no particular order
	ListRooms(ctx context.Context) ([]*model.Room, error)
}
