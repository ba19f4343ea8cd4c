package game

import (
	"errors"
	"fmt"
)

// Kind classifies errors surfaced to callers.
type Kind string

const (
	KindNotAuthorized    Kind = "not_authorized"
	KindInvalidState     Kind = "invalid_state"
	KindRoundExpired     Kind = "round_expired"
	KindRoomNotFound     Kind = "room_not_found"
	KindRoomFull         Kind = "room_full"
	KindGameInProgress   Kind = "game_in_progress"
	KindNotEnoughPlayers Kind = "not_enough_players"
	KindCannotRemoveSelf Kind = "cannot_remove_self"
	KindPlayerNotFound   Kind = "player_not_found"
	KindInvalidInput     Kind = "invalid_input"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrRoomFull)
// works regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func newErrorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrNotAuthorized    = newError(KindNotAuthorized, "not authorized")
	ErrInvalidState     = newError(KindInvalidState, "action not valid in the current room state")
	ErrRoundExpired     = newError(KindRoundExpired, "round has ended")
	ErrRoomNotFound     = newError(KindRoomNotFound, "room not found")
	ErrRoomFull         = newError(KindRoomFull, "room is full")
	ErrGameInProgress   = newError(KindGameInProgress, "game already in progress")
	ErrNotEnoughPlayers = newError(KindNotEnoughPlayers, "need at least 2 players to start")
	ErrCannotRemoveSelf = newError(KindCannotRemoveSelf, "host cannot remove themselves")
	ErrPlayerNotFound   = newError(KindPlayerNotFound, "player not found")
	ErrInvalidInput     = newError(KindInvalidInput, "invalid input")
)

// Storage-level errors. These never reach clients as a taxonomy kind.
var (
	// ErrConflict reports a lost compare-and-swap on Room.Version.
	ErrConflict = errors.New("room version conflict")
	// ErrInviteCodeTaken reports an invite code collision on insert.
	ErrInviteCodeTaken = errors.New("invite code already taken")
)

// KindOf returns the taxonomy kind of err, or "" for storage and unknown errors.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return ""
}
