package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/syncroom/internal/auth"
	"github.com/sharetube/syncroom/internal/catalog"
	"github.com/sharetube/syncroom/internal/controller"
	"github.com/sharetube/syncroom/internal/domain"
	"github.com/sharetube/syncroom/internal/metrics"
	"github.com/sharetube/syncroom/internal/repository/connection/inmemory"
	songRedis "github.com/sharetube/syncroom/internal/repository/song/redis"
	"github.com/sharetube/syncroom/internal/service/room"
	"github.com/sharetube/syncroom/pkg/ctxlogger"
	"github.com/sharetube/syncroom/pkg/redisclient"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 30 * time.Second
	catalogTimeout  = 5 * time.Second
	tokenIssuer     = "syncroom"
	roomIDLength    = 10
)

type AppConfig struct {
	Secret              string        `json:"-"`
	Host                string        `json:"host"`
	Port                int           `json:"port"`
	LogLevel            string        `json:"log_level"`
	RedisHost           string        `json:"redis_host"`
	RedisPort           int           `json:"redis_port"`
	RedisPassword       string        `json:"-"`
	CatalogURL          string        `json:"catalog_url"`
	SongCacheTTL        time.Duration `json:"song_cache_ttl"`
	MembersLimit        int           `json:"members_limit"`
	HeartbeatInterval   time.Duration `json:"heartbeat_interval"`
	MaxMissedHeartbeats int           `json:"max_missed_heartbeats"`
	SyncInterval        time.Duration `json:"sync_interval"`
	EmptyRoomGrace      time.Duration `json:"empty_room_grace"`
	SendBufferSize      int           `json:"send_buffer_size"`
	WriteTimeout        time.Duration `json:"write_timeout"`
	AuthRequired        bool          `json:"auth_required"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if cfg.MembersLimit < 1 {
		return fmt.Errorf("members limit must be greater than 0")
	}
	if cfg.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}
	if cfg.MaxMissedHeartbeats < 1 {
		return fmt.Errorf("max missed heartbeats must be greater than 0")
	}
	if cfg.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive")
	}
	if cfg.EmptyRoomGrace < 0 {
		return fmt.Errorf("empty room grace must not be negative")
	}
	if cfg.SendBufferSize < 1 {
		return fmt.Errorf("send buffer size must be greater than 0")
	}
	if cfg.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if cfg.AuthRequired && cfg.Secret == "" {
		return fmt.Errorf("secret is required when auth is required")
	}
	return nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(h), nil
}

type iSongResolver interface {
	ResolveSong(ctx context.Context, songID string) (domain.Song, error)
}

type iService interface {
	Run(ctx context.Context) error
}

type app struct {
	handler http.Handler
	service iService
}

func newApp(cfg *AppConfig, rc *redis.Client, clk clock.Clock, logger *slog.Logger) *app {
	var songs iSongResolver
	if cfg.CatalogURL != "" {
		songs = catalog.NewClient(cfg.CatalogURL, catalogTimeout)
	} else {
		logger.Warn("no catalog configured, songs cannot be resolved")
		songs = catalog.NewStatic()
	}
	if rc != nil {
		songs = catalog.NewCached(songs, songRedis.NewRepo(rc, logger), cfg.SongCacheTTL, logger)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	roomService := room.NewService(songs, inmemory.NewRepo(logger), clk, metrics.New(reg), logger, &room.Config{
		MembersLimit:        cfg.MembersLimit,
		HeartbeatInterval:   cfg.HeartbeatInterval,
		MaxMissedHeartbeats: cfg.MaxMissedHeartbeats,
		SyncInterval:        cfg.SyncInterval,
		EmptyRoomGrace:      cfg.EmptyRoomGrace,
		SendBufferSize:      cfg.SendBufferSize,
		WriteTimeout:        cfg.WriteTimeout,
		RoomIDLength:        roomIDLength,
	})

	metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	var handler http.Handler
	if cfg.AuthRequired {
		authorizer := auth.NewJWTAuthorizer(cfg.Secret, tokenIssuer)
		handler = controller.NewController(roomService, authorizer, metricsHandler, logger).GetMux()
	} else {
		handler = controller.NewController(roomService, nil, metricsHandler, logger).GetMux()
	}

	return &app{
		handler: handler,
		service: roomService,
	}
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(os.Stdout, cfg.LogLevel)
	if err != nil {
		return err
	}

	var rc *redis.Client
	if cfg.RedisHost != "" {
		rc, err = redisclient.NewRedisClient(ctx, &redisclient.Config{
			Port:     cfg.RedisPort,
			Host:     cfg.RedisHost,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()
	}

	a := newApp(cfg, rc, clock.New(), logger)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return a.service.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
