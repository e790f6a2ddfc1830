package connection

import "errors"

var (
	ErrNotFound      = errors.New("connection not found")
	ErrAlreadyExists = errors.New("connection already exists")
)

// Conn is a push connection attached to a participant.
type Conn interface {
	Close() error
}
