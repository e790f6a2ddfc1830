package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if c.metricsHandler != nil {
		r.Handle("/metrics", c.metricsHandler)
	}
	r.Get("/playback-states", c.getPlaybackStates)

	r.Route("/room/{room-id}", func(r chi.Router) {
		r.Use(c.roomIDMw)
		r.Get("/info", c.getRoomInfo)

		r.Group(func(r chi.Router) {
			r.Use(c.authMw)
			r.Get("/", c.getRoom)
			r.Post("/join", c.joinRoom)
			r.Post("/leave", c.leaveRoom)
			r.Post("/heartbeat", c.heartbeat)
			r.Post("/play", c.playerCommand(c.roomService.Play))
			r.Post("/pause", c.playerCommand(c.roomService.Pause))
			r.Post("/stop", c.playerCommand(c.roomService.Stop))
			r.Post("/seek", c.seek)
			r.Post("/song", c.setSong)
			r.Post("/rename", c.renameRoom)
			r.Post("/promote", c.promoteMember)
			r.Post("/close", c.closeRoom)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(c.authMw)
		r.Post("/create-room", c.createRoom)
		r.With(c.roomIDMw).Get("/ws/room/{room-id}", c.connectRoom)
	})

	return r
}
