package model

import "errors"

// Common errors used across the application
var (
	// Join errors
	ErrInvalidName    = errors.New("display name is required")
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrGameInProgress = errors.New("game is in progress")
	ErrNameTaken      = errors.New("name is already taken in this room")

	// Action errors
	ErrNotHost          = errors.New("player is not the host")
	ErrNotEnoughPlayers = errors.New("not enough players to start game")
	ErrNoGameInProgress = errors.New("no game in progress")
	ErrNotInRoom        = errors.New("connection is not in a room")

	// Chat errors
	ErrMessageEmpty   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message is too long")
)
