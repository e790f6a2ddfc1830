package room

import (
	"context"
	"fmt"
	"time"

	"github.com/sharetube/syncroom/internal/domain"
)

type CreateRoomParams struct {
	HostID string
	Name   string
	SongID *string
}

type CreateRoomResponse struct {
	RoomID   string
	Snapshot Snapshot
}

func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	s.logger.DebugContext(ctx, "called", "params", params)

	var song *domain.Song
	if params.SongID != nil {
		resolved, err := s.songs.ResolveSong(ctx, *params.SongID)
		if err != nil {
			s.logger.InfoContext(ctx, "failed to resolve song", "song_id", *params.SongID, "error", err)
			return CreateRoomResponse{}, fmt.Errorf("failed to resolve song: %w", err)
		}
		if err := resolved.Validate(); err != nil {
			s.logger.InfoContext(ctx, "song is not playable", "song_id", *params.SongID, "error", err)
			return CreateRoomResponse{}, err
		}
		song = &resolved
	}

	now := s.clock.Now()
	h, err := s.registry.CreateRoom(func(roomID string) *domain.Room {
		return domain.NewRoom(roomID, params.Name, domain.Member{ID: params.HostID, JoinedAt: now}, song, s.cfg.MembersLimit)
	})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to create room", "error", err)
		return CreateRoomResponse{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := s.connRepo.Add(h.id, params.HostID, now); err != nil {
		s.logger.WarnContext(ctx, "failed to add host to connection table", "error", err)
	}
	s.metrics.RoomCreated()
	s.logger.InfoContext(ctx, "room created", "room_id", h.id, "host_id", params.HostID)

	return CreateRoomResponse{
		RoomID:   h.id,
		Snapshot: newSnapshot(h.room.Snapshot(now)),
	}, nil
}

func (s service) GetRoomState(ctx context.Context, roomID string) (Snapshot, error) {
	var snapshot Snapshot
	err := s.withRoom(ctx, roomID, func(h *Handle, now time.Time) error {
		snapshot = newSnapshot(h.room.Snapshot(now))
		return nil
	})

	return snapshot, err
}

func (s service) GetRoomInfo(ctx context.Context, roomID string) (RoomInfo, error) {
	var info RoomInfo
	err := s.withRoom(ctx, roomID, func(h *Handle, _ time.Time) error {
		info = RoomInfo{
			RoomID:           h.id,
			Name:             h.room.Name(),
			ParticipantCount: h.room.ParticipantCount(),
		}
		return nil
	})

	return info, err
}

type RenameRoomParams struct {
	RoomID   string
	CallerID string
	Name     string
}

func (s service) RenameRoom(ctx context.Context, params *RenameRoomParams) (Event, error) {
	s.logger.DebugContext(ctx, "called", "params", params)

	return s.command(ctx, "rename", params.RoomID, func(r *domain.Room, now time.Time) (domain.Event, error) {
		return r.Rename(params.CallerID, params.Name, now)
	})
}

type PromoteMemberParams struct {
	RoomID     string
	CallerID   string
	PromotedID string
}

func (s service) PromoteMember(ctx context.Context, params *PromoteMemberParams) (Event, error) {
	s.logger.DebugContext(ctx, "called", "params", params)

	return s.command(ctx, "promote", params.RoomID, func(r *domain.Room, now time.Time) (domain.Event, error) {
		return r.TransferHost(params.CallerID, params.PromotedID, now)
	})
}

type CloseRoomParams struct {
	RoomID   string
	CallerID string
}

// CloseRoom destroys the room on behalf of its host.
func (s service) CloseRoom(ctx context.Context, params *CloseRoomParams) error {
	s.logger.DebugContext(ctx, "called", "params", params)

	err := s.withRoom(ctx, params.RoomID, func(h *Handle, now time.Time) error {
		if err := h.room.CheckClose(params.CallerID); err != nil {
			return err
		}

		s.membership.destroy(ctx, h, now)
		return nil
	})
	if err != nil {
		s.logger.InfoContext(ctx, "command rejected", "command", "close", "room_id", params.RoomID, "error", err)
		s.metrics.CommandRejected("close", rejectReason(err))
	}

	return err
}
