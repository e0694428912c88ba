package ws

import (
	"errors"

	"github.com/astroclash/server/internal/model"
	"github.com/astroclash/server/internal/protocol"
)

// Error codes sent to clients in `error` messages.
const (
	CodeInvalidName      = "INVALID_NAME"
	CodeRoomNotFound     = "ROOM_NOT_FOUND"
	CodeRoomFull         = "ROOM_FULL"
	CodeGameInProgress   = "GAME_IN_PROGRESS"
	CodeNameTaken        = "NAME_TAKEN"
	CodeNotHost          = "NOT_HOST"
	CodeNotEnoughPlayers = "NOT_ENOUGH_PLAYERS"
	CodeNoGame           = "NO_GAME_IN_PROGRESS"
	CodeNotInRoom        = "NOT_IN_ROOM"
	CodeInvalidMessage   = "INVALID_MESSAGE"
	CodeInternalError    = "INTERNAL_ERROR"
)

// errorPayloadFor maps a service error onto its wire code and message.
// Unrecognized errors deliberately collapse to INTERNAL_ERROR so storage
// details never leak to clients.
func errorPayloadFor(err error) protocol.ErrorPayload {
	switch {
	case errors.Is(err, model.ErrInvalidName):
		return protocol.ErrorPayload{Code: CodeInvalidName, Message: "Display name must not be empty"}
	case errors.Is(err, model.ErrRoomNotFound):
		return protocol.ErrorPayload{Code: CodeRoomNotFound, Message: "Room not found"}
	case errors.Is(err, model.ErrRoomFull):
		return protocol.ErrorPayload{Code: CodeRoomFull, Message: "Room is full"}
	case errors.Is(err, model.ErrGameInProgress):
		return protocol.ErrorPayload{Code: CodeGameInProgress, Message: "Game already in progress"}
	case errors.Is(err, model.ErrNameTaken):
		return protocol.ErrorPayload{Code: CodeNameTaken, Message: "That name is already taken in this room"}
	case errors.Is(err, model.ErrNotHost):
		return protocol.ErrorPayload{Code: CodeNotHost, Message: "Only the host can do that"}
	case errors.Is(err, model.ErrNotEnoughPlayers):
		return protocol.ErrorPayload{Code: CodeNotEnoughPlayers, Message: "Need at least 2 players to start"}
	case errors.Is(err, model.ErrNoGameInProgress):
		return protocol.ErrorPayload{Code: CodeNoGame, Message: "No game in progress"}
	case errors.Is(err, model.ErrNotInRoom):
		return protocol.ErrorPayload{Code: CodeNotInRoom, Message: "You are not in a room"}
	case errors.Is(err, model.ErrMessageEmpty):
		return protocol.ErrorPayload{Code: CodeInvalidMessage, Message: "Chat message must not be empty"}
	case errors.Is(err, model.ErrMessageTooLong):
		return protocol.ErrorPayload{Code: CodeInvalidMessage, Message: "Chat message too long"}
	default:
		return protocol.ErrorPayload{Code: CodeInternalError, Message: "Internal server error"}
	}
}
