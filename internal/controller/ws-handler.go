package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/syncroom/internal/service/room"
	"github.com/sharetube/syncroom/pkg/ctxlogger"
	"github.com/sharetube/syncroom/pkg/rest"
	"github.com/sharetube/syncroom/pkg/wsrouter"
)

const maxMessageSize = 4096

var errEmptyPayload = errors.New("payload must not be empty")

func (c controller) connectRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID := c.getRoomIDFromCtx(ctx)
	participantID := r.URL.Query().Get("participant_id")
	if participantID == "" {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": "participant_id is required"})
		return
	}

	if err := c.checkCaller(ctx, participantID); err != nil {
		c.writeError(w, r, err)
		return
	}

	if _, err := c.roomService.GetRoomInfo(ctx, roomID); err != nil {
		c.writeError(w, r, err)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(ctx, "failed to upgrade connection", "error", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)
	ws := newWSConn(conn)

	ctx = context.WithValue(ctx, participantIDCtxKey, participantID)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("participant_id", participantID))

	resp, err := c.roomService.ConnectMember(ctx, &room.ConnectMemberParams{
		RoomID:        roomID,
		ParticipantID: participantID,
		Conn:          ws,
		JoinIfAbsent:  true,
	})
	if err != nil {
		c.logger.InfoContext(ctx, "failed to connect member", "error", err)
		ws.closeWith(websocket.ClosePolicyViolation, err.Error())
		return
	}
	c.logger.InfoContext(ctx, "websocket connected", "subscription_id", resp.SubscriptionID)

	err = c.newWSRouter().ServeConn(ctx, conn)
	c.logger.InfoContext(ctx, "websocket disconnected", "reason", err)

	if err := c.roomService.DisconnectMember(ctx, &room.DisconnectMemberParams{
		RoomID:         roomID,
		ParticipantID:  participantID,
		SubscriptionID: resp.SubscriptionID,
	}); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
		c.logger.InfoContext(ctx, "failed to disconnect member", "error", err)
	}
}

func (c controller) newWSRouter() *wsrouter.WSRouter {
	router := wsrouter.New()
	router.Use(c.wsRequestIdMw, c.wsLoggerMw)

	router.Handle("ALIVE", c.handleAlive)
	router.Handle("PLAY", c.handlePlay)
	router.Handle("PAUSE", c.handlePause)
	router.Handle("STOP", c.handleStop)
	router.Handle("SEEK", c.handleSeek)
	router.Handle("SET_SONG", c.handleSetSong)
	router.Handle("GET_STATE", c.handleGetState)
	router.HandleError(c.handleWSError)

	return router
}

func (c controller) wsRequestIdMw(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) error {
		ctx = ctxlogger.AppendCtx(ctx, slog.String("ws_request_id", c.generateTimeBasedId()))
		return next(ctx, payload)
	}
}

func (c controller) wsLoggerMw(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) error {
		ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))
		c.logger.DebugContext(ctx, "websocket message received", "payload", string(payload))

		start := time.Now()
		err := next(ctx, payload)
		c.logger.DebugContext(ctx, "websocket message handled", "processing_time_us", time.Since(start).Microseconds())

		return err
	}
}

// handleWSError reports a failed message back to its sender. The message is
// queued like any event so the connection keeps a single writer.
func (c controller) handleWSError(ctx context.Context, err error) {
	c.logger.InfoContext(ctx, "websocket message failed", "error", err)

	if sendErr := c.roomService.SendError(ctx, c.sendToParams(ctx), err.Error()); sendErr != nil {
		c.logger.DebugContext(ctx, "failed to send error", "error", sendErr)
	}
}

func (c controller) sendToParams(ctx context.Context) *room.SendToMemberParams {
	return &room.SendToMemberParams{
		RoomID:        c.getRoomIDFromCtx(ctx),
		ParticipantID: c.getParticipantIDFromCtx(ctx),
	}
}

func (c controller) playerParams(ctx context.Context) *room.PlayerParams {
	return &room.PlayerParams{
		RoomID:   c.getRoomIDFromCtx(ctx),
		CallerID: c.getParticipantIDFromCtx(ctx),
	}
}

func (c controller) decodePayload(payload json.RawMessage, dst any) error {
	if len(payload) == 0 {
		return errEmptyPayload
	}

	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	if validationErrors, ok := c.validate.Validate(dst); !ok {
		return fmt.Errorf("invalid payload: %s", validationErrors[0].Message)
	}

	return nil
}

func (c controller) handleAlive(ctx context.Context, _ json.RawMessage) error {
	return c.roomService.Heartbeat(ctx, &room.HeartbeatParams{
		RoomID:        c.getRoomIDFromCtx(ctx),
		ParticipantID: c.getParticipantIDFromCtx(ctx),
	})
}

func (c controller) handlePlay(ctx context.Context, _ json.RawMessage) error {
	_, err := c.roomService.Play(ctx, c.playerParams(ctx))
	return err
}

func (c controller) handlePause(ctx context.Context, _ json.RawMessage) error {
	_, err := c.roomService.Pause(ctx, c.playerParams(ctx))
	return err
}

func (c controller) handleStop(ctx context.Context, _ json.RawMessage) error {
	_, err := c.roomService.Stop(ctx, c.playerParams(ctx))
	return err
}

type seekInput struct {
	Offset *float64 `json:"offset" validate:"required,gte=0"`
}

func (c controller) handleSeek(ctx context.Context, payload json.RawMessage) error {
	var input seekInput
	if err := c.decodePayload(payload, &input); err != nil {
		return err
	}

	_, err := c.roomService.Seek(ctx, &room.SeekParams{
		RoomID:   c.getRoomIDFromCtx(ctx),
		CallerID: c.getParticipantIDFromCtx(ctx),
		Offset:   secondsToDuration(*input.Offset),
	})
	return err
}

type setSongInput struct {
	SongID string `json:"song_id" validate:"required,max=64"`
}

func (c controller) handleSetSong(ctx context.Context, payload json.RawMessage) error {
	var input setSongInput
	if err := c.decodePayload(payload, &input); err != nil {
		return err
	}

	_, err := c.roomService.SetSong(ctx, &room.SetSongParams{
		RoomID:   c.getRoomIDFromCtx(ctx),
		CallerID: c.getParticipantIDFromCtx(ctx),
		SongID:   input.SongID,
	})
	return err
}

func (c controller) handleGetState(ctx context.Context, _ json.RawMessage) error {
	return c.roomService.SendSnapshot(ctx, c.sendToParams(ctx))
}
