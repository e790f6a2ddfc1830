package redis

import (
	"context"
	"fmt"

	"github.com/sharetube/syncroom/internal/repository/song"
)

func (r repo) getSongKey(songID string) string {
	return "song:" + songID
}

func (r repo) SetSong(ctx context.Context, params *song.SetSongParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	s := song.Song{
		Title:      params.Title,
		Artist:     params.Artist,
		DurationMs: params.DurationMs,
	}
	songKey := r.getSongKey(params.SongID)
	pipe.HSet(ctx, songKey, s)
	pipe.Expire(ctx, songKey, params.TTL)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to set song: %w", err)
	}

	return nil
}

func (r repo) GetSong(ctx context.Context, songID string) (song.Song, error) {
	r.logger.DebugContext(ctx, "called", "song_id", songID)
	cmd := r.rc.HGetAll(ctx, r.getSongKey(songID))
	fields, err := cmd.Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return song.Song{}, fmt.Errorf("failed to get song: %w", err)
	}

	if len(fields) == 0 {
		return song.Song{}, song.ErrSongNotFound
	}

	var s song.Song
	if err := cmd.Scan(&s); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return song.Song{}, fmt.Errorf("failed to scan song: %w", err)
	}

	return s, nil
}

func (r repo) RemoveSong(ctx context.Context, songID string) error {
	r.logger.DebugContext(ctx, "called", "song_id", songID)
	res, err := r.rc.Del(ctx, r.getSongKey(songID)).Result()
	if err != nil {
		return fmt.Errorf("failed to remove song: %w", err)
	}

	if res == 0 {
		return song.ErrSongNotFound
	}

	return nil
}
