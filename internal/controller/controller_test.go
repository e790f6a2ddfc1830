package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sharetube/syncroom/internal/auth"
	"github.com/sharetube/syncroom/internal/catalog"
	"github.com/sharetube/syncroom/internal/domain"
	"github.com/sharetube/syncroom/internal/metrics"
	"github.com/sharetube/syncroom/internal/repository/connection/inmemory"
	"github.com/sharetube/syncroom/internal/service/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsMessage struct {
	Type    string `json:"type"`
	Payload struct {
		Sequence         uint64 `json:"sequence"`
		PlaybackState    string `json:"playback_state"`
		ParticipantCount int    `json:"participant_count"`
		Message          string `json:"message"`
	} `json:"payload"`
}

type roomData struct {
	RoomID           string  `json:"room_id"`
	Name             string  `json:"name"`
	HostID           string  `json:"host_id"`
	Sequence         uint64  `json:"sequence"`
	PlaybackState    string  `json:"playback_state"`
	Position         float64 `json:"position"`
	ParticipantCount int     `json:"participant_count"`
}

func newTestServer(t *testing.T, authorizer iAuthorizer) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	songs := catalog.NewStatic(domain.Song{ID: "song-a", Title: "A", Artist: "Artist", Duration: 200 * time.Second})
	roomService := room.NewService(songs, inmemory.NewRepo(logger), clock.New(), metrics.New(reg), logger, &room.Config{
		MembersLimit:        10,
		HeartbeatInterval:   5 * time.Second,
		MaxMissedHeartbeats: 3,
		SyncInterval:        time.Second,
		EmptyRoomGrace:      time.Minute,
		SendBufferSize:      16,
		WriteTimeout:        time.Second,
		RoomIDLength:        8,
	})

	c := NewController(roomService, authorizer, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger)
	srv := httptest.NewServer(c.GetMux())
	t.Cleanup(srv.Close)

	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		js, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(js)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, data
}

func decodeData[T any](t *testing.T, data []byte) T {
	t.Helper()

	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &envelope))

	return envelope.Data
}

func createRoom(t *testing.T, srv *httptest.Server, token string) string {
	t.Helper()

	status, data := do(t, srv, http.MethodPost, "/create-room", token, map[string]any{
		"host_id": "host",
		"name":    "friday",
		"song_id": "song-a",
	})
	require.Equal(t, http.StatusCreated, status, string(data))

	resp := decodeData[struct {
		RoomID string   `json:"room_id"`
		Room   roomData `json:"room"`
	}](t, data)
	require.NotEmpty(t, resp.RoomID)
	assert.Equal(t, "host", resp.Room.HostID)

	return resp.RoomID
}

func TestRoomEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	roomID := createRoom(t, srv, "")
	base := "/room/" + roomID

	status, data := do(t, srv, http.MethodPost, base+"/join", "", map[string]any{"participant_id": "guest"})
	require.Equal(t, http.StatusOK, status, string(data))
	snapshot := decodeData[roomData](t, data)
	assert.Equal(t, 2, snapshot.ParticipantCount)
	assert.Equal(t, "Stopped", snapshot.PlaybackState)

	status, _ = do(t, srv, http.MethodPost, base+"/play", "", map[string]any{"caller_id": "guest"})
	assert.Equal(t, http.StatusForbidden, status)

	status, data = do(t, srv, http.MethodPost, base+"/play", "", map[string]any{"caller_id": "host"})
	require.Equal(t, http.StatusOK, status, string(data))
	event := decodeData[roomData](t, data)
	assert.Equal(t, "Playing", event.PlaybackState)
	assert.Equal(t, uint64(2), event.Sequence)

	status, _ = do(t, srv, http.MethodPost, base+"/play", "", map[string]any{"caller_id": "host"})
	assert.Equal(t, http.StatusConflict, status)

	status, data = do(t, srv, http.MethodPost, base+"/seek", "", map[string]any{"caller_id": "host", "offset": 120})
	require.Equal(t, http.StatusOK, status, string(data))
	assert.InDelta(t, 120, decodeData[roomData](t, data).Position, 1)

	status, _ = do(t, srv, http.MethodPost, base+"/seek", "", map[string]any{"caller_id": "host", "offset": -1})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, srv, http.MethodPost, base+"/seek", "", map[string]any{"caller_id": "host", "offset": 500})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = do(t, srv, http.MethodPost, base+"/song", "", map[string]any{"caller_id": "host", "song_id": "missing"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, srv, http.MethodPost, base+"/pause", "", `{"caller_id":`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = do(t, srv, http.MethodPost, base+"/rename", "", map[string]any{"caller_id": "host", "name": "saturday"})
	assert.Equal(t, http.StatusOK, status)

	status, data = do(t, srv, http.MethodGet, base+"/info", "", nil)
	require.Equal(t, http.StatusOK, status)
	info := decodeData[roomData](t, data)
	assert.Equal(t, roomID, info.RoomID)
	assert.Equal(t, "saturday", info.Name)
	assert.Equal(t, 2, info.ParticipantCount)

	status, _ = do(t, srv, http.MethodPost, base+"/leave", "", map[string]any{"participant_id": "host"})
	assert.Equal(t, http.StatusNoContent, status)

	status, data = do(t, srv, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "guest", decodeData[roomData](t, data).HostID)

	status, _ = do(t, srv, http.MethodPost, base+"/close", "", map[string]any{"caller_id": "guest"})
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = do(t, srv, http.MethodGet, base+"/info", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreateRoomValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	status, data := do(t, srv, http.MethodPost, "/create-room", "", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(data), "host_id")

	status, _ = do(t, srv, http.MethodPost, "/create-room", "", map[string]any{"host_id": "h", "name": "x", "extra": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = do(t, srv, http.MethodPost, "/create-room", "", map[string]any{"host_id": "h", "name": "x", "song_id": "missing"})
	assert.Equal(t, http.StatusNotFound, status)
}

func dialRoom(t *testing.T, srv *httptest.Server, roomID, participantID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/room/" + roomID + "?participant_id=" + participantID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))

	return msg
}

func TestWebSocket(t *testing.T) {
	srv := newTestServer(t, nil)
	roomID := createRoom(t, srv, "")
	conn := dialRoom(t, srv, roomID, "guest")

	msg := readMessage(t, conn)
	require.Equal(t, room.MessageTypeSnapshot, msg.Type)
	assert.Equal(t, uint64(1), msg.Payload.Sequence)
	assert.Equal(t, 2, msg.Payload.ParticipantCount)

	status, _ := do(t, srv, http.MethodPost, "/room/"+roomID+"/play", "", map[string]any{"caller_id": "host"})
	require.Equal(t, http.StatusOK, status)

	msg = readMessage(t, conn)
	assert.Equal(t, "StateChanged", msg.Type)
	assert.Equal(t, uint64(2), msg.Payload.Sequence)
	assert.Equal(t, "Playing", msg.Payload.PlaybackState)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "PAUSE"}))
	msg = readMessage(t, conn)
	assert.Equal(t, room.MessageTypeError, msg.Type)
	assert.Contains(t, msg.Payload.Message, "forbidden")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "SEEK", "payload": map[string]any{}}))
	msg = readMessage(t, conn)
	assert.Equal(t, room.MessageTypeError, msg.Type)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "GET_STATE"}))
	msg = readMessage(t, conn)
	assert.Equal(t, room.MessageTypeSnapshot, msg.Type)
	assert.Equal(t, uint64(2), msg.Payload.Sequence)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ALIVE"}))
	conn.Close()

	assert.Eventually(t, func() bool {
		_, data := do(t, srv, http.MethodGet, "/room/"+roomID+"/info", "", nil)
		return decodeData[roomData](t, data).ParticipantCount == 1
	}, 2*time.Second, 10*time.Millisecond, "closing the socket leaves the room")
}

func TestWebSocketUnknownRoom(t *testing.T) {
	srv := newTestServer(t, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/room/nope?participant_id=p"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuth(t *testing.T) {
	authorizer := auth.NewJWTAuthorizer("secret", "syncroom")
	srv := newTestServer(t, authorizer)

	hostToken, err := authorizer.IssueToken("host", auth.RoleUser, time.Hour)
	require.NoError(t, err)
	guestToken, err := authorizer.IssueToken("guest", auth.RoleGuest, time.Hour)
	require.NoError(t, err)

	body := map[string]any{"host_id": "host", "name": "friday"}
	status, _ := do(t, srv, http.MethodPost, "/create-room", "", body)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, srv, http.MethodPost, "/create-room", "garbage", body)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, srv, http.MethodPost, "/create-room", guestToken, map[string]any{"host_id": "guest", "name": "x"})
	assert.Equal(t, http.StatusForbidden, status, "guests cannot host")

	status, _ = do(t, srv, http.MethodPost, "/create-room", guestToken, body)
	assert.Equal(t, http.StatusForbidden, status, "caller id must match the token")

	roomID := createRoom(t, srv, hostToken)

	status, _ = do(t, srv, http.MethodPost, "/room/"+roomID+"/join", guestToken, map[string]any{"participant_id": "guest"})
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, srv, http.MethodPost, "/room/"+roomID+"/play", guestToken, map[string]any{"caller_id": "host"})
	assert.Equal(t, http.StatusForbidden, status)

	status, data := do(t, srv, http.MethodGet, "/room/"+roomID+"/info", "", nil)
	require.Equal(t, http.StatusOK, status, "room info is public")
	info := decodeData[room.RoomInfo](t, data)
	assert.Equal(t, roomID, info.RoomID)
	assert.Equal(t, 2, info.ParticipantCount)

	status, _ = do(t, srv, http.MethodGet, "/room/"+roomID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestPlaybackStates(t *testing.T) {
	srv := newTestServer(t, nil)

	status, data := do(t, srv, http.MethodGet, "/playback-states?lang=ru", "", nil)
	require.Equal(t, http.StatusOK, status)
	labels := decodeData[[]playbackStateLabel](t, data)
	require.Len(t, labels, 3)
	assert.Equal(t, "Остановлено", labels[0].Label)

	_, data = do(t, srv, http.MethodGet, "/playback-states?lang=xx", "", nil)
	labels = decodeData[[]playbackStateLabel](t, data)
	assert.Equal(t, "Stopped", labels[0].Label)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	createRoom(t, srv, "")

	status, data := do(t, srv, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), "rooms_created_total")
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{room.ErrRoomNotFound, http.StatusNotFound},
		{room.ErrParticipantNotFound, http.StatusNotFound},
		{room.ErrForbidden, http.StatusForbidden},
		{ErrCallerMismatch, http.StatusForbidden},
		{room.ErrInvalidState, http.StatusConflict},
		{room.ErrRoomFull, http.StatusConflict},
		{room.ErrAlreadyExists, http.StatusConflict},
		{auth.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("resolve: %w", catalog.ErrUnavailable), http.StatusBadGateway},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, errorStatus(tt.err), tt.err.Error())
	}
}
