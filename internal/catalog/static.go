package catalog

import (
	"context"
	"sync"

	"github.com/sharetube/syncroom/internal/domain"
)

// Static is an in-process catalog used in development and tests.
type Static struct {
	mu    sync.RWMutex
	songs map[string]domain.Song
}

func NewStatic(songs ...domain.Song) *Static {
	s := &Static{songs: make(map[string]domain.Song, len(songs))}
	for _, song := range songs {
		s.songs[song.ID] = song
	}
	return s
}

func (s *Static) Add(song domain.Song) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.songs[song.ID] = song
}

func (s *Static) ResolveSong(_ context.Context, songID string) (domain.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	song, ok := s.songs[songID]
	if !ok {
		return domain.Song{}, ErrSongNotFound
	}
	return song, nil
}
