package room

import (
	"errors"

	"github.com/sharetube/syncroom/internal/domain"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrAlreadyExists       = errors.New("room already exists")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrRoomFull            = errors.New("room is full")
	ErrForbidden           = domain.ErrForbidden
	ErrInvalidState        = domain.ErrInvalidState
	ErrSongNotFound        = domain.ErrSongNotFound
)

// rejectReason labels a rejected command for metrics.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrParticipantNotFound), errors.Is(err, ErrSongNotFound):
		return "not_found"
	case errors.Is(err, ErrRoomFull):
		return "room_full"
	default:
		return "error"
	}
}
