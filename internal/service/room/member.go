package room

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type JoinRoomParams struct {
	RoomID        string
	ParticipantID string
}

// JoinRoom adds the participant and returns the room as of its join event.
// Joining twice returns the current snapshot without a new event.
func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (Snapshot, error) {
	s.logger.DebugContext(ctx, "called", "params", params)

	var snapshot Snapshot
	err := s.withRoom(ctx, params.RoomID, func(h *Handle, now time.Time) error {
		if h.room.IsMember(params.ParticipantID) {
			if err := s.membership.heartbeat(h, params.ParticipantID, now); err != nil {
				return err
			}
		} else if err := s.membership.join(ctx, h, params.ParticipantID, now); err != nil {
			return err
		}

		snapshot = newSnapshot(h.room.Snapshot(now))
		return nil
	})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to join room", "room_id", params.RoomID, "error", err)
		s.metrics.CommandRejected("join", rejectReason(err))
		return Snapshot{}, err
	}

	return snapshot, nil
}

type ConnectMemberParams struct {
	RoomID        string
	ParticipantID string
	Conn          Conn
	// JoinIfAbsent joins the participant when it is not a member yet.
	JoinIfAbsent bool
}

type ConnectMemberResponse struct {
	SubscriptionID string
}

// ConnectMember attaches a push connection. The first message it receives is
// a Snapshot; every later message carries a greater or equal sequence.
func (s service) ConnectMember(ctx context.Context, params *ConnectMemberParams) (ConnectMemberResponse, error) {
	s.logger.DebugContext(ctx, "called", "room_id", params.RoomID, "participant_id", params.ParticipantID)

	var sub *subscriber
	err := s.withRoom(ctx, params.RoomID, func(h *Handle, now time.Time) error {
		if !h.room.IsMember(params.ParticipantID) {
			if !params.JoinIfAbsent {
				return ErrParticipantNotFound
			}
			if err := s.membership.join(ctx, h, params.ParticipantID, now); err != nil {
				return err
			}
		}

		sub = s.dispatcher.subscribe(uuid.NewString(), h.id, params.ParticipantID, params.Conn)
		if err := s.membership.attach(h, sub); err != nil {
			sub.Close()
			return err
		}
		if err := s.membership.heartbeat(h, params.ParticipantID, now); err != nil {
			return err
		}

		s.dispatcher.sendTo(sub, snapshotOutput(h.room.Snapshot(now)))
		return nil
	})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to connect member", "room_id", params.RoomID, "error", err)
		return ConnectMemberResponse{}, err
	}

	return ConnectMemberResponse{
		SubscriptionID: sub.id,
	}, nil
}

type DisconnectMemberParams struct {
	RoomID         string
	ParticipantID  string
	SubscriptionID string
}

// DisconnectMember handles a push connection closed by the client. It is an
// implicit leave unless the participant already uses another connection.
func (s service) DisconnectMember(ctx context.Context, params *DisconnectMemberParams) error {
	s.logger.DebugContext(ctx, "called", "params", params)

	return s.withRoom(ctx, params.RoomID, func(h *Handle, now time.Time) error {
		c, err := s.connRepo.GetConn(h.id, params.ParticipantID)
		if err != nil {
			return nil
		}

		sub, ok := c.(*subscriber)
		if !ok || sub.id != params.SubscriptionID || !s.connRepo.Detach(h.id, params.ParticipantID, sub) {
			return nil
		}
		sub.Close()

		return s.membership.leave(ctx, h, params.ParticipantID, leaveReasonConnectionLost, now)
	})
}

type LeaveRoomParams struct {
	RoomID        string
	ParticipantID string
}

func (s service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) error {
	s.logger.DebugContext(ctx, "called", "params", params)

	err := s.withRoom(ctx, params.RoomID, func(h *Handle, now time.Time) error {
		return s.membership.leave(ctx, h, params.ParticipantID, leaveReasonLeft, now)
	})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to leave room", "room_id", params.RoomID, "error", err)
		s.metrics.CommandRejected("leave", rejectReason(err))
	}

	return err
}

type HeartbeatParams struct {
	RoomID        string
	ParticipantID string
}

func (s service) Heartbeat(ctx context.Context, params *HeartbeatParams) error {
	return s.withRoom(ctx, params.RoomID, func(h *Handle, now time.Time) error {
		return s.membership.heartbeat(h, params.ParticipantID, now)
	})
}

type SendToMemberParams struct {
	RoomID        string
	ParticipantID string
}

// SendSnapshot queues a fresh snapshot on the participant's connection.
func (s service) SendSnapshot(ctx context.Context, params *SendToMemberParams) error {
	return s.withRoom(ctx, params.RoomID, func(h *Handle, now time.Time) error {
		sub, err := s.subscriberOf(h, params.ParticipantID)
		if err != nil {
			return err
		}

		s.dispatcher.sendTo(sub, snapshotOutput(h.room.Snapshot(now)))
		return nil
	})
}

// SendError queues an ERROR message on the participant's connection.
func (s service) SendError(ctx context.Context, params *SendToMemberParams, message string) error {
	return s.withRoom(ctx, params.RoomID, func(h *Handle, _ time.Time) error {
		sub, err := s.subscriberOf(h, params.ParticipantID)
		if err != nil {
			return err
		}

		s.dispatcher.sendTo(sub, Output{
			Type:    MessageTypeError,
			Payload: ErrorPayload{Message: message},
		})
		return nil
	})
}

func (s service) subscriberOf(h *Handle, participantID string) (*subscriber, error) {
	c, err := s.connRepo.GetConn(h.id, participantID)
	if err != nil {
		return nil, ErrParticipantNotFound
	}

	sub, ok := c.(*subscriber)
	if !ok {
		return nil, ErrParticipantNotFound
	}

	return sub, nil
}
