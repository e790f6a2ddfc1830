package room

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sharetube/syncroom/internal/catalog"
	"github.com/sharetube/syncroom/internal/domain"
	"github.com/sharetube/syncroom/internal/metrics"
	"github.com/sharetube/syncroom/internal/repository/connection/inmemory"
	"github.com/stretchr/testify/require"
)

var errConnClosed = errors.New("connection closed")

type message struct {
	Type    string `json:"type"`
	Payload struct {
		Sequence         uint64  `json:"sequence"`
		PlaybackState    string  `json:"playback_state"`
		Position         float64 `json:"position"`
		HostID           string  `json:"host_id"`
		ParticipantCount int     `json:"participant_count"`
		Message          string  `json:"message"`
	} `json:"payload"`
}

type fakeConn struct {
	mu     sync.Mutex
	msgs   []message
	closed bool
	// block holds every Send until it is closed or the write times out.
	block chan struct{}
}

func (c *fakeConn) Send(ctx context.Context, data []byte) error {
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errConnClosed
	}

	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	c.msgs = append(c.msgs, msg)

	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return nil
}

func (c *fakeConn) messages() []message {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]message(nil), c.msgs...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *fakeConn) countType(t string) int {
	n := 0
	for _, msg := range c.messages() {
		if msg.Type == t {
			n++
		}
	}

	return n
}

var songA = domain.Song{ID: "song-a", Title: "A", Artist: "Artist", Duration: 200 * time.Second}

func testConfig() *Config {
	return &Config{
		MembersLimit:        10,
		HeartbeatInterval:   5 * time.Second,
		MaxMissedHeartbeats: 3,
		SyncInterval:        2 * time.Second,
		EmptyRoomGrace:      30 * time.Second,
		SendBufferSize:      16,
		WriteTimeout:        time.Second,
		RoomIDLength:        8,
	}
}

func newTestService(t *testing.T, cfg *Config) (*service, *clock.Mock) {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	songs := catalog.NewStatic(songA)

	s := NewService(songs, inmemory.NewRepo(logger), mock, metrics.New(prometheus.NewRegistry()), logger, cfg)

	return s, mock
}

func createRoom(t *testing.T, s *service, hostID string, withSong bool) string {
	t.Helper()

	params := CreateRoomParams{HostID: hostID, Name: "friday"}
	if withSong {
		songID := songA.ID
		params.SongID = &songID
	}

	resp, err := s.CreateRoom(context.Background(), &params)
	require.NoError(t, err)

	return resp.RoomID
}

func connect(t *testing.T, s *service, roomID, participantID string) *fakeConn {
	t.Helper()

	conn := &fakeConn{}
	_, err := s.ConnectMember(context.Background(), &ConnectMemberParams{
		RoomID:        roomID,
		ParticipantID: participantID,
		Conn:          conn,
		JoinIfAbsent:  true,
	})
	require.NoError(t, err)

	return conn
}
