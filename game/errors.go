package game

import "errors"

// Validation errors surfaced to the request layer. None of these are
// fatal to a room; every operation either succeeds or returns one.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrNotInRoom       = errors.New("client is not in this room")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrRoomPaused      = errors.New("room is paused")
	ErrRoomNotPaused   = errors.New("room is not paused")
	ErrEmptyGuess      = errors.New("empty guess")
	ErrInvalidBotCount = errors.New("invalid bot count")
	ErrNotBotTurn      = errors.New("current turn is not a bot")
	ErrAttemptNotFound = errors.New("no matching rhyme attempt")
)
