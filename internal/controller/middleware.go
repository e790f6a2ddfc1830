package controller

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sharetube/syncroom/pkg/ctxlogger"
	"github.com/sharetube/syncroom/pkg/rest"
)

func (c controller) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = ctxlogger.AppendCtx(ctx, slog.String("request_id", c.generateTimeBasedId()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c controller) requestLoggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		c.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"url", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"status", ww.Status(),
			"duration_us", time.Since(start).Microseconds(),
		)
	})
}

func (c controller) roomIDMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "room-id")
		ctx := context.WithValue(r.Context(), roomIDCtxKey, roomID)
		ctx = ctxlogger.AppendCtx(ctx, slog.String("room_id", roomID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authMw resolves the caller identity when an authorizer is configured. The
// token comes from the Authorization header or, for browsers opening a
// websocket, from the token query parameter.
func (c controller) authMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c.authorizer == nil {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		identity, err := c.authorizer.AuthorizeCaller(r.Context(), token)
		if err != nil {
			c.logger.InfoContext(r.Context(), "failed to authorize caller", "error", err)
			rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": "unauthorized"})
			return
		}

		ctx := context.WithValue(r.Context(), identityCtxKey, identity)
		ctx = ctxlogger.AppendCtx(ctx, slog.String("caller_id", identity.ParticipantID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
