package room

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sharetube/syncroom/internal/domain"
	"github.com/sharetube/syncroom/internal/repository/connection"
	"github.com/sharetube/syncroom/pkg/randstr"
	"golang.org/x/sync/errgroup"
)

type iConnRepo interface {
	Add(roomID, participantID string, now time.Time) error
	Remove(roomID, participantID string) (connection.Conn, error)
	Attach(roomID, participantID string, conn connection.Conn) (connection.Conn, error)
	Detach(roomID, participantID string, conn connection.Conn) bool
	Touch(roomID, participantID string, now time.Time) error
	GetConn(roomID, participantID string) (connection.Conn, error)
	GetConns(roomID string) []connection.Conn
	GetExpired(roomID string, deadline time.Time) []string
	RemoveRoom(roomID string) []connection.Conn
}

type iSongResolver interface {
	ResolveSong(ctx context.Context, songID string) (domain.Song, error)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type iMetrics interface {
	RoomCreated()
	RoomDestroyed()
	ConnectionOpened()
	ConnectionClosed()
	ConnectionDropped(reason string)
	EventPublished(eventType string)
	CommandRejected(command, reason string)
}

type Config struct {
	MembersLimit        int
	HeartbeatInterval   time.Duration
	MaxMissedHeartbeats int
	SyncInterval        time.Duration
	EmptyRoomGrace      time.Duration
	SendBufferSize      int
	WriteTimeout        time.Duration
	RoomIDLength        int
}

type service struct {
	registry   *Registry
	membership *membership
	dispatcher *dispatcher
	connRepo   iConnRepo
	songs      iSongResolver
	clock      clock.Clock
	metrics    iMetrics
	logger     *slog.Logger
	cfg        Config
}

func NewService(songs iSongResolver, connRepo iConnRepo, clk clock.Clock, m iMetrics, logger *slog.Logger, cfg *Config) *service {
	letterBytes := []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	registry := NewRegistry(randstr.New(letterBytes), cfg.RoomIDLength)
	d := newDispatcher(connRepo, cfg.SendBufferSize, cfg.WriteTimeout, m, logger)

	s := &service{
		registry:   registry,
		dispatcher: d,
		connRepo:   connRepo,
		songs:      songs,
		clock:      clk,
		metrics:    m,
		logger:     logger,
		cfg:        *cfg,
	}
	s.membership = &membership{
		registry:         registry,
		connRepo:         connRepo,
		dispatcher:       d,
		clock:            clk,
		heartbeatTimeout: cfg.HeartbeatInterval * time.Duration(cfg.MaxMissedHeartbeats),
		emptyRoomGrace:   cfg.EmptyRoomGrace,
		metrics:          m,
		logger:           logger,
	}
	d.onLost = s.connectionLost

	return s
}

// Run drives the sync ticks and the heartbeat sweeps until ctx is done.
func (s service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.every(ctx, s.cfg.SyncInterval, s.syncTick)
	})
	g.Go(func() error {
		return s.every(ctx, s.cfg.HeartbeatInterval, s.sweep)
	})

	return g.Wait()
}

func (s service) every(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) error {
	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// withRoom runs fn with the room locked. A song that played out while nobody
// was looking is settled first, so fn always sees the current state.
func (s service) withRoom(ctx context.Context, roomID string, fn func(h *Handle, now time.Time) error) error {
	h, err := s.registry.GetRoom(roomID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.destroyed.Load() {
		return ErrRoomNotFound
	}

	now := s.clock.Now()
	if ev, ok := h.room.Settle(now); ok {
		s.logger.DebugContext(ctx, "song played out", "room_id", roomID)
		s.dispatcher.publish(ev)
	}

	return fn(h, now)
}

// command applies a state transition and broadcasts its event. Rejected
// commands change nothing and emit nothing.
func (s service) command(ctx context.Context, name, roomID string, apply func(r *domain.Room, now time.Time) (domain.Event, error)) (Event, error) {
	var ev domain.Event
	err := s.withRoom(ctx, roomID, func(h *Handle, now time.Time) error {
		var err error
		ev, err = apply(h.room, now)
		if err != nil {
			return err
		}

		s.dispatcher.publish(ev)
		return nil
	})
	if err != nil {
		s.logger.InfoContext(ctx, "command rejected", "command", name, "room_id", roomID, "error", err)
		s.metrics.CommandRejected(name, rejectReason(err))
		return Event{}, err
	}

	return newEvent(ev), nil
}

func (s service) syncTick(ctx context.Context) {
	for _, h := range s.registry.Rooms() {
		_ = s.withRoom(ctx, h.id, func(h *Handle, now time.Time) error {
			if ev, ok := h.room.SyncTick(now); ok {
				s.dispatcher.publish(ev)
			}
			return nil
		})
	}
}

func (s service) sweep(ctx context.Context) {
	for _, h := range s.registry.Rooms() {
		_ = s.withRoom(ctx, h.id, func(h *Handle, now time.Time) error {
			s.membership.sweep(ctx, h, now)
			return nil
		})
	}
}

// connectionLost turns a dead push connection into an implicit leave, unless
// the participant has already moved to another connection.
func (s service) connectionLost(sub *subscriber) {
	ctx := context.Background()
	err := s.withRoom(ctx, sub.roomID, func(h *Handle, now time.Time) error {
		if !s.connRepo.Detach(h.id, sub.participantID, sub) {
			return nil
		}

		return s.membership.leave(ctx, h, sub.participantID, leaveReasonConnectionLost, now)
	})
	if err != nil {
		s.logger.Debug("connection lost", "room_id", sub.roomID, "participant_id", sub.participantID, "error", err)
	}
}
