package game

import "errors"

// Every failure a room action can produce maps to one of these sentinels.
// Callers branch with errors.Is; the HTTP layer turns them into statuses in
// one place.
var (
	ErrValidation          = errors.New("invalid input")
	ErrRoomNotFound        = errors.New("room not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrRoomLocked          = errors.New("room is locked")
	ErrInvalidState        = errors.New("action not valid in current room state")
	ErrNoPlayers           = errors.New("room has no players")
	ErrNotHost             = errors.New("host token mismatch")
	ErrStaleSubmission     = errors.New("submission targets a stale question")
	ErrDuplicateSubmission = errors.New("answer already submitted")
	ErrConflict            = errors.New("concurrent transition conflict")
	ErrCodeTaken           = errors.New("join code already in use")
	ErrGeneration          = errors.New("question generation failed")
)
