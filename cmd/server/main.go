package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/syncroom/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

func (v configVar[T]) bind() {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

var (
	secret = configVar[string]{
		envKey:  "SERVER_SECRET",
		flagKey: "secret",
		usage:   "Secret used to verify caller tokens",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 80,
		usage:        "Server port",
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	authRequired = configVar[bool]{
		envKey:  "SERVER_AUTH_REQUIRED",
		flagKey: "auth-required",
		usage:   "Require a signed token on room endpoints",
	}
	membersLimit = configVar[int]{
		envKey:       "SERVER_MEMBERS_LIMIT",
		flagKey:      "members-limit",
		defaultValue: 50,
		usage:        "Maximum number of participants in a room",
	}
	heartbeatInterval = configVar[time.Duration]{
		envKey:       "SERVER_HEARTBEAT_INTERVAL",
		flagKey:      "heartbeat-interval",
		defaultValue: 10 * time.Second,
		usage:        "Expected interval between client heartbeats",
	}
	maxMissedHeartbeats = configVar[int]{
		envKey:       "SERVER_MAX_MISSED_HEARTBEATS",
		flagKey:      "max-missed-heartbeats",
		defaultValue: 3,
		usage:        "Missed heartbeats before a participant is removed",
	}
	syncInterval = configVar[time.Duration]{
		envKey:       "SERVER_SYNC_INTERVAL",
		flagKey:      "sync-interval",
		defaultValue: 5 * time.Second,
		usage:        "Interval of position sync ticks while playing",
	}
	emptyRoomGrace = configVar[time.Duration]{
		envKey:       "SERVER_EMPTY_ROOM_GRACE",
		flagKey:      "empty-room-grace",
		defaultValue: 30 * time.Second,
		usage:        "How long an empty room is kept before it is destroyed",
	}
	sendBufferSize = configVar[int]{
		envKey:       "SERVER_SEND_BUFFER_SIZE",
		flagKey:      "send-buffer-size",
		defaultValue: 64,
		usage:        "Messages queued per connection before it is dropped",
	}
	writeTimeout = configVar[time.Duration]{
		envKey:       "SERVER_WRITE_TIMEOUT",
		flagKey:      "write-timeout",
		defaultValue: 5 * time.Second,
		usage:        "Timeout of a single push write",
	}
	catalogURL = configVar[string]{
		envKey:  "CATALOG_URL",
		flagKey: "catalog-url",
		usage:   "Base URL of the song catalog",
	}
	songCacheTTL = configVar[time.Duration]{
		envKey:       "SONG_CACHE_TTL",
		flagKey:      "song-cache-ttl",
		defaultValue: 24 * time.Hour,
		usage:        "How long resolved songs stay in redis",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host, empty disables the song cache",
	}
	redisPassword = configVar[string]{
		envKey:  "REDIS_PASSWORD",
		flagKey: "redis-password",
		usage:   "Redis password",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(secret.flagKey, secret.defaultValue, secret.usage)
	pflag.Int(port.flagKey, port.defaultValue, port.usage)
	pflag.String(host.flagKey, host.defaultValue, host.usage)
	pflag.String(logLevel.flagKey, logLevel.defaultValue, logLevel.usage)
	pflag.Bool(authRequired.flagKey, authRequired.defaultValue, authRequired.usage)
	pflag.Int(membersLimit.flagKey, membersLimit.defaultValue, membersLimit.usage)
	pflag.Duration(heartbeatInterval.flagKey, heartbeatInterval.defaultValue, heartbeatInterval.usage)
	pflag.Int(maxMissedHeartbeats.flagKey, maxMissedHeartbeats.defaultValue, maxMissedHeartbeats.usage)
	pflag.Duration(syncInterval.flagKey, syncInterval.defaultValue, syncInterval.usage)
	pflag.Duration(emptyRoomGrace.flagKey, emptyRoomGrace.defaultValue, emptyRoomGrace.usage)
	pflag.Int(sendBufferSize.flagKey, sendBufferSize.defaultValue, sendBufferSize.usage)
	pflag.Duration(writeTimeout.flagKey, writeTimeout.defaultValue, writeTimeout.usage)
	pflag.String(catalogURL.flagKey, catalogURL.defaultValue, catalogURL.usage)
	pflag.Duration(songCacheTTL.flagKey, songCacheTTL.defaultValue, songCacheTTL.usage)
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, redisPort.usage)
	pflag.String(redisHost.flagKey, redisHost.defaultValue, redisHost.usage)
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, redisPassword.usage)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	secret.bind()
	port.bind()
	host.bind()
	logLevel.bind()
	authRequired.bind()
	membersLimit.bind()
	heartbeatInterval.bind()
	maxMissedHeartbeats.bind()
	syncInterval.bind()
	emptyRoomGrace.bind()
	sendBufferSize.bind()
	writeTimeout.bind()
	catalogURL.bind()
	songCacheTTL.bind()
	redisPort.bind()
	redisHost.bind()
	redisPassword.bind()

	config := &app.AppConfig{
		Secret:              viper.GetString(secret.flagKey),
		Host:                viper.GetString(host.flagKey),
		Port:                viper.GetInt(port.flagKey),
		LogLevel:            viper.GetString(logLevel.flagKey),
		AuthRequired:        viper.GetBool(authRequired.flagKey),
		MembersLimit:        viper.GetInt(membersLimit.flagKey),
		HeartbeatInterval:   viper.GetDuration(heartbeatInterval.flagKey),
		MaxMissedHeartbeats: viper.GetInt(maxMissedHeartbeats.flagKey),
		SyncInterval:        viper.GetDuration(syncInterval.flagKey),
		EmptyRoomGrace:      viper.GetDuration(emptyRoomGrace.flagKey),
		SendBufferSize:      viper.GetInt(sendBufferSize.flagKey),
		WriteTimeout:        viper.GetDuration(writeTimeout.flagKey),
		CatalogURL:          viper.GetString(catalogURL.flagKey),
		SongCacheTTL:        viper.GetDuration(songCacheTTL.flagKey),
		RedisPort:           viper.GetInt(redisPort.flagKey),
		RedisHost:           viper.GetString(redisHost.flagKey),
		RedisPassword:       viper.GetString(redisPassword.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(ctx, appConfig); err != nil {
		log.Fatal(err)
	}
}
