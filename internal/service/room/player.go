package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sharetube/syncroom/internal/domain"
)

type PlayerParams struct {
	RoomID   string
	CallerID string
}

func (s service) Play(ctx context.Context, params *PlayerParams) (Event, error) {
	s.logger.DebugContext(ctx, "called", "params", params)

	return s.command(ctx, "play", params.RoomID, func(r *domain.Room, now time.Time) (domain.Event, error) {
		return r.Play(params.CallerID, now)
	})
}

func (s service) Pause(ctx context.Context, params *PlayerParams) (Event, error) {
	s.logger.DebugContext(ctx, "called", "params", params)

	return s.command(ctx, "pause", params.RoomID, func(r *domain.Room, now time.Time) (domain.Event, error) {
		return r.Pause(params.CallerID, now)
	})
}

func (s service) Stop(ctx context.Context, params *PlayerParams) (Event, error) {
	s.logger.DebugContext(ctx, "called", "params", params)

	return s.command(ctx, "stop", params.RoomID, func(r *domain.Room, now time.Time) (domain.Event, error) {
		return r.Stop(params.CallerID, now)
	})
}

type SeekParams struct {
	RoomID   string
	CallerID string
	Offset   time.Duration
}

func (s service) Seek(ctx context.Context, params *SeekParams) (Event, error) {
	s.logger.DebugContext(ctx, "called", "params", params)

	return s.command(ctx, "seek", params.RoomID, func(r *domain.Room, now time.Time) (domain.Event, error) {
		return r.Seek(params.CallerID, params.Offset, now)
	})
}

type SetSongParams struct {
	RoomID   string
	CallerID string
	SongID   string
}

// SetSong resolves the song outside the room lock. The host is checked
// before resolution too, so Forbidden wins over an unknown song.
func (s service) SetSong(ctx context.Context, params *SetSongParams) (Event, error) {
	s.logger.DebugContext(ctx, "called", "params", params)

	if err := s.withRoom(ctx, params.RoomID, func(h *Handle, _ time.Time) error {
		if !h.room.IsHost(params.CallerID) {
			return ErrForbidden
		}
		return nil
	}); err != nil {
		s.logger.InfoContext(ctx, "command rejected", "command", "set_song", "room_id", params.RoomID, "error", err)
		s.metrics.CommandRejected("set_song", rejectReason(err))
		return Event{}, err
	}

	song, err := s.songs.ResolveSong(ctx, params.SongID)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to resolve song", "song_id", params.SongID, "error", err)
		if !errors.Is(err, ErrSongNotFound) {
			err = fmt.Errorf("failed to resolve song: %w", err)
		}
		s.metrics.CommandRejected("set_song", rejectReason(err))
		return Event{}, err
	}

	return s.command(ctx, "set_song", params.RoomID, func(r *domain.Room, now time.Time) (domain.Event, error) {
		return r.SetSong(params.CallerID, song, now)
	})
}
