package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sharetube/syncroom/internal/domain"
	"github.com/sharetube/syncroom/internal/repository/song"
)

type iResolver interface {
	ResolveSong(ctx context.Context, songID string) (domain.Song, error)
}

type iSongCache interface {
	GetSong(ctx context.Context, songID string) (song.Song, error)
	SetSong(ctx context.Context, params *song.SetSongParams) error
}

// Cached resolves songs through a cache. Cache failures are logged and
// fall through to the source.
type Cached struct {
	source iResolver
	cache  iSongCache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(source iResolver, cache iSongCache, ttl time.Duration, logger *slog.Logger) *Cached {
	return &Cached{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *Cached) ResolveSong(ctx context.Context, songID string) (domain.Song, error) {
	cached, err := c.cache.GetSong(ctx, songID)
	switch {
	case err == nil:
		return domain.Song{
			ID:       songID,
			Title:    cached.Title,
			Artist:   cached.Artist,
			Duration: time.Duration(cached.DurationMs) * time.Millisecond,
		}, nil
	case !errors.Is(err, song.ErrSongNotFound):
		c.logger.WarnContext(ctx, "failed to read song cache", "song_id", songID, "error", err)
	}

	resolved, err := c.source.ResolveSong(ctx, songID)
	if err != nil {
		return domain.Song{}, err
	}

	if err := c.cache.SetSong(ctx, &song.SetSongParams{
		SongID:     songID,
		Title:      resolved.Title,
		Artist:     resolved.Artist,
		DurationMs: resolved.Duration.Milliseconds(),
		TTL:        c.ttl,
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to cache song", "song_id", songID, "error", err)
	}

	return resolved, nil
}
