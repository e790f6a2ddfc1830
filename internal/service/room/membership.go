package room

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sharetube/syncroom/internal/domain"
)

const (
	leaveReasonLeft             = "left"
	leaveReasonHeartbeatTimeout = "heartbeat_timeout"
	leaveReasonConnectionLost   = "connection_lost"
)

// membership keeps the participants of each room and their connections. All
// methods expect the room lock to be held.
type membership struct {
	registry         *Registry
	connRepo         iConnRepo
	dispatcher       *dispatcher
	clock            clock.Clock
	heartbeatTimeout time.Duration
	emptyRoomGrace   time.Duration
	metrics          iMetrics
	logger           *slog.Logger
}

func (m *membership) join(ctx context.Context, h *Handle, participantID string, now time.Time) error {
	ev, err := h.room.Join(domain.Member{ID: participantID, JoinedAt: now}, now)
	if err != nil {
		if errors.Is(err, domain.ErrMembersLimitReached) {
			return ErrRoomFull
		}
		return err
	}

	if err := m.connRepo.Add(h.id, participantID, now); err != nil {
		m.logger.WarnContext(ctx, "failed to add participant to connection table", "error", err)
	}
	h.emptySince = time.Time{}

	m.logger.InfoContext(ctx, "participant joined", "room_id", h.id, "participant_id", participantID, "sequence", ev.Sequence)
	m.dispatcher.publish(ev)

	return nil
}

// attach makes conn the participant's push connection. The previous one, if
// any, is closed without counting as a leave.
func (m *membership) attach(h *Handle, sub *subscriber) error {
	prev, err := m.connRepo.Attach(h.id, sub.participantID, sub)
	if err != nil {
		return ErrParticipantNotFound
	}

	if prev != nil {
		prev.Close()
	}

	return nil
}

func (m *membership) leave(ctx context.Context, h *Handle, participantID, reason string, now time.Time) error {
	ev, newHostID, err := h.room.Leave(participantID, now)
	if err != nil {
		return ErrParticipantNotFound
	}

	if conn, _ := m.connRepo.Remove(h.id, participantID); conn != nil {
		conn.Close()
	}

	m.logger.InfoContext(ctx, "participant left", "room_id", h.id, "participant_id", participantID, "reason", reason, "new_host_id", newHostID)
	m.dispatcher.publish(ev)

	if h.room.IsEmpty() {
		m.emptied(ctx, h, now)
	}

	return nil
}

func (m *membership) heartbeat(h *Handle, participantID string, now time.Time) error {
	if err := m.connRepo.Touch(h.id, participantID, now); err != nil {
		return ErrParticipantNotFound
	}

	return nil
}

// sweep removes participants that missed too many heartbeats and destroys
// the room if it stayed empty past the grace period.
func (m *membership) sweep(ctx context.Context, h *Handle, now time.Time) {
	for _, participantID := range m.connRepo.GetExpired(h.id, now.Add(-m.heartbeatTimeout)) {
		if err := m.leave(ctx, h, participantID, leaveReasonHeartbeatTimeout, now); err != nil {
			m.logger.WarnContext(ctx, "failed to remove expired participant", "participant_id", participantID, "error", err)
		}
	}

	if !h.destroyed.Load() && h.room.IsEmpty() && !h.emptySince.IsZero() && now.Sub(h.emptySince) >= m.emptyRoomGrace {
		m.destroy(ctx, h, now)
	}
}

func (m *membership) emptied(ctx context.Context, h *Handle, now time.Time) {
	if m.emptyRoomGrace <= 0 {
		m.destroy(ctx, h, now)
		return
	}

	h.emptySince = now
	m.clock.AfterFunc(m.emptyRoomGrace, func() {
		m.reap(h)
	})
}

func (m *membership) reap(h *Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.destroyed.Load() || !h.room.IsEmpty() || h.emptySince.IsZero() {
		return
	}

	now := m.clock.Now()
	if now.Sub(h.emptySince) < m.emptyRoomGrace {
		return
	}

	m.destroy(context.Background(), h, now)
}

// destroy closes every connection of the room with a final RoomClosed event
// and removes the room from the registry.
func (m *membership) destroy(ctx context.Context, h *Handle, now time.Time) {
	conns := m.connRepo.RemoveRoom(h.id)
	subs := make([]*subscriber, 0, len(conns))
	for _, c := range conns {
		if sub, ok := c.(*subscriber); ok {
			subs = append(subs, sub)
		}
	}
	m.dispatcher.closeTopic(h.room.ClosedEvent(now), subs)

	if m.registry.DestroyRoom(h.id) {
		m.metrics.RoomDestroyed()
		m.logger.InfoContext(ctx, "room destroyed", "room_id", h.id)
	}
}
