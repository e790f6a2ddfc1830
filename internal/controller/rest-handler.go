package controller

import (
	"context"
	"net/http"

	"github.com/sharetube/syncroom/internal/service/room"
	"github.com/sharetube/syncroom/pkg/rest"
)

type createRoomRequest struct {
	HostID string  `json:"host_id" validate:"required,max=64"`
	Name   string  `json:"name" validate:"required,max=64"`
	SongID *string `json:"song_id" validate:"omitempty,min=1,max=64"`
}

type createRoomResponse struct {
	RoomID string        `json:"room_id"`
	Room   room.Snapshot `json:"room"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if !c.decode(w, r, &req) {
		return
	}

	if err := c.checkCanHost(r.Context(), req.HostID); err != nil {
		c.writeError(w, r, err)
		return
	}

	resp, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		HostID: req.HostID,
		Name:   req.Name,
		SongID: req.SongID,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": createRoomResponse{
		RoomID: resp.RoomID,
		Room:   resp.Snapshot,
	}})
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	snapshot, err := c.roomService.GetRoomState(r.Context(), c.getRoomIDFromCtx(r.Context()))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": snapshot})
}

func (c controller) getRoomInfo(w http.ResponseWriter, r *http.Request) {
	info, err := c.roomService.GetRoomInfo(r.Context(), c.getRoomIDFromCtx(r.Context()))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": info})
}

type participantRequest struct {
	ParticipantID string `json:"participant_id" validate:"required,max=64"`
}

func (c controller) readParticipant(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req participantRequest
	if !c.decode(w, r, &req) {
		return "", false
	}

	if err := c.checkCaller(r.Context(), req.ParticipantID); err != nil {
		c.writeError(w, r, err)
		return "", false
	}

	return req.ParticipantID, true
}

func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	participantID, ok := c.readParticipant(w, r)
	if !ok {
		return
	}

	snapshot, err := c.roomService.JoinRoom(r.Context(), &room.JoinRoomParams{
		RoomID:        c.getRoomIDFromCtx(r.Context()),
		ParticipantID: participantID,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": snapshot})
}

func (c controller) leaveRoom(w http.ResponseWriter, r *http.Request) {
	participantID, ok := c.readParticipant(w, r)
	if !ok {
		return
	}

	if err := c.roomService.LeaveRoom(r.Context(), &room.LeaveRoomParams{
		RoomID:        c.getRoomIDFromCtx(r.Context()),
		ParticipantID: participantID,
	}); err != nil {
		c.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c controller) heartbeat(w http.ResponseWriter, r *http.Request) {
	participantID, ok := c.readParticipant(w, r)
	if !ok {
		return
	}

	if err := c.roomService.Heartbeat(r.Context(), &room.HeartbeatParams{
		RoomID:        c.getRoomIDFromCtx(r.Context()),
		ParticipantID: participantID,
	}); err != nil {
		c.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type callerRequest struct {
	CallerID string `json:"caller_id" validate:"required,max=64"`
}

func (c controller) playerCommand(command func(context.Context, *room.PlayerParams) (room.Event, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req callerRequest
		if !c.decode(w, r, &req) {
			return
		}

		if err := c.checkCaller(r.Context(), req.CallerID); err != nil {
			c.writeError(w, r, err)
			return
		}

		event, err := command(r.Context(), &room.PlayerParams{
			RoomID:   c.getRoomIDFromCtx(r.Context()),
			CallerID: req.CallerID,
		})
		if err != nil {
			c.writeError(w, r, err)
			return
		}

		rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": event})
	}
}

type seekRequest struct {
	CallerID string `json:"caller_id" validate:"required,max=64"`
	// Offset is in seconds.
	Offset *float64 `json:"offset" validate:"required,gte=0"`
}

func (c controller) seek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if !c.decode(w, r, &req) {
		return
	}

	if err := c.checkCaller(r.Context(), req.CallerID); err != nil {
		c.writeError(w, r, err)
		return
	}

	event, err := c.roomService.Seek(r.Context(), &room.SeekParams{
		RoomID:   c.getRoomIDFromCtx(r.Context()),
		CallerID: req.CallerID,
		Offset:   secondsToDuration(*req.Offset),
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": event})
}

type setSongRequest struct {
	CallerID string `json:"caller_id" validate:"required,max=64"`
	SongID   string `json:"song_id" validate:"required,max=64"`
}

func (c controller) setSong(w http.ResponseWriter, r *http.Request) {
	var req setSongRequest
	if !c.decode(w, r, &req) {
		return
	}

	if err := c.checkCaller(r.Context(), req.CallerID); err != nil {
		c.writeError(w, r, err)
		return
	}

	event, err := c.roomService.SetSong(r.Context(), &room.SetSongParams{
		RoomID:   c.getRoomIDFromCtx(r.Context()),
		CallerID: req.CallerID,
		SongID:   req.SongID,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": event})
}

type renameRoomRequest struct {
	CallerID string `json:"caller_id" validate:"required,max=64"`
	Name     string `json:"name" validate:"required,max=64"`
}

func (c controller) renameRoom(w http.ResponseWriter, r *http.Request) {
	var req renameRoomRequest
	if !c.decode(w, r, &req) {
		return
	}

	if err := c.checkCaller(r.Context(), req.CallerID); err != nil {
		c.writeError(w, r, err)
		return
	}

	event, err := c.roomService.RenameRoom(r.Context(), &room.RenameRoomParams{
		RoomID:   c.getRoomIDFromCtx(r.Context()),
		CallerID: req.CallerID,
		Name:     req.Name,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": event})
}

type promoteMemberRequest struct {
	CallerID      string `json:"caller_id" validate:"required,max=64"`
	ParticipantID string `json:"participant_id" validate:"required,max=64"`
}

func (c controller) promoteMember(w http.ResponseWriter, r *http.Request) {
	var req promoteMemberRequest
	if !c.decode(w, r, &req) {
		return
	}

	if err := c.checkCaller(r.Context(), req.CallerID); err != nil {
		c.writeError(w, r, err)
		return
	}

	event, err := c.roomService.PromoteMember(r.Context(), &room.PromoteMemberParams{
		RoomID:     c.getRoomIDFromCtx(r.Context()),
		CallerID:   req.CallerID,
		PromotedID: req.ParticipantID,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": event})
}

func (c controller) closeRoom(w http.ResponseWriter, r *http.Request) {
	var req callerRequest
	if !c.decode(w, r, &req) {
		return
	}

	if err := c.checkCaller(r.Context(), req.CallerID); err != nil {
		c.writeError(w, r, err)
		return
	}

	if err := c.roomService.CloseRoom(r.Context(), &room.CloseRoomParams{
		RoomID:   c.getRoomIDFromCtx(r.Context()),
		CallerID: req.CallerID,
	}); err != nil {
		c.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
