package domain

import "errors"

var (
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidState        = errors.New("invalid state")
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberAlreadyExists = errors.New("member already exists")
	ErrMembersLimitReached = errors.New("members limit reached")
	ErrSongNotFound        = errors.New("song not found")
)
