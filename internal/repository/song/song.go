package song

import (
	"errors"
	"time"
)

var ErrSongNotFound = errors.New("song not found")

type Song struct {
	Title      string `redis:"title"`
	Artist     string `redis:"artist"`
	DurationMs int64  `redis:"duration_ms"`
}

type SetSongParams struct {
	SongID     string
	Title      string
	Artist     string
	DurationMs int64
	TTL        time.Duration
}
