package redis

import "github.com/astroclash/server/internal/model"

const (
	keyPrefix   = "astroclash:"
	roomPrefix  = keyPrefix + "room:"
	roomPattern = roomPrefix + "*"
)

func roomKey(id model.RoomID) string {
	return roomPrefix + string(id)
}
