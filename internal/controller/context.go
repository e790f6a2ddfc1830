package controller

import (
	"context"

	"github.com/sharetube/syncroom/internal/auth"
)

type contextKey int

const (
	roomIDCtxKey contextKey = iota
	participantIDCtxKey
	identityCtxKey
)

func (c controller) getRoomIDFromCtx(ctx context.Context) string {
	roomID, ok := ctx.Value(roomIDCtxKey).(string)
	if !ok {
		return ""
	}

	return roomID
}

func (c controller) getParticipantIDFromCtx(ctx context.Context) string {
	participantID, ok := ctx.Value(participantIDCtxKey).(string)
	if !ok {
		return ""
	}

	return participantID
}

func (c controller) getIdentityFromCtx(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey).(auth.Identity)
	return identity, ok
}
