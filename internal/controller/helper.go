package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sharetube/syncroom/internal/auth"
	"github.com/sharetube/syncroom/internal/catalog"
	"github.com/sharetube/syncroom/internal/service/room"
	"github.com/sharetube/syncroom/pkg/rest"
)

var (
	ErrCallerMismatch = errors.New("caller does not match token")
	ErrCannotHost     = errors.New("role cannot host rooms")
)

func (c controller) generateTimeBasedId() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}

// checkCaller makes sure callerID is the authenticated participant. Without
// an authorizer every caller id is accepted.
func (c controller) checkCaller(ctx context.Context, callerID string) error {
	identity, ok := c.getIdentityFromCtx(ctx)
	if !ok {
		return nil
	}

	if identity.ParticipantID != callerID {
		return ErrCallerMismatch
	}

	return nil
}

func (c controller) checkCanHost(ctx context.Context, callerID string) error {
	if err := c.checkCaller(ctx, callerID); err != nil {
		return err
	}

	if identity, ok := c.getIdentityFromCtx(ctx); ok && !identity.Role.CanHost() {
		return ErrCannotHost
	}

	return nil
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, room.ErrRoomNotFound),
		errors.Is(err, room.ErrParticipantNotFound),
		errors.Is(err, room.ErrSongNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrForbidden),
		errors.Is(err, ErrCallerMismatch),
		errors.Is(err, ErrCannotHost):
		return http.StatusForbidden
	case errors.Is(err, room.ErrInvalidState),
		errors.Is(err, room.ErrAlreadyExists),
		errors.Is(err, room.ErrRoomFull):
		return http.StatusConflict
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, catalog.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (c controller) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		c.logger.ErrorContext(r.Context(), "request failed", "error", err)
		rest.WriteJSON(w, status, rest.Envelope{"error": "internal server error"})
		return
	}

	c.logger.InfoContext(r.Context(), "request rejected", "status", status, "error", err)
	rest.WriteJSON(w, status, rest.Envelope{"error": err.Error()})
}

// decode reads and validates the request body, answering the client itself
// when that fails.
func (c controller) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := rest.ReadJSON(r, dst); err != nil {
		c.logger.InfoContext(r.Context(), "failed to read json", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return false
	}

	if validationErrors, ok := c.validate.Validate(dst); !ok {
		c.logger.InfoContext(r.Context(), "validation failed", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return false
	}

	return true
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
