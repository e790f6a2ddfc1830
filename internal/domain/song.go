package domain

import (
	"fmt"
	"time"
)

// Song is a resolved catalog entry cached on the room.
type Song struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Artist   string        `json:"artist"`
	Duration time.Duration `json:"-"`
}

// Validate rejects songs that cannot be played, such as entries without a
// duration.
func (s Song) Validate() error {
	if s.Duration <= 0 {
		return fmt.Errorf("%w: song %q has no duration", ErrInvalidState, s.ID)
	}

	return nil
}
