package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sharetube/syncroom/internal/auth"
	"github.com/sharetube/syncroom/internal/service/room"
	"github.com/sharetube/syncroom/pkg/validator"
)

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	GetRoomState(context.Context, string) (room.Snapshot, error)
	GetRoomInfo(context.Context, string) (room.RoomInfo, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.Snapshot, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) error
	Heartbeat(context.Context, *room.HeartbeatParams) error
	ConnectMember(context.Context, *room.ConnectMemberParams) (room.ConnectMemberResponse, error)
	DisconnectMember(context.Context, *room.DisconnectMemberParams) error
	SendSnapshot(context.Context, *room.SendToMemberParams) error
	SendError(context.Context, *room.SendToMemberParams, string) error
	Play(context.Context, *room.PlayerParams) (room.Event, error)
	Pause(context.Context, *room.PlayerParams) (room.Event, error)
	Stop(context.Context, *room.PlayerParams) (room.Event, error)
	Seek(context.Context, *room.SeekParams) (room.Event, error)
	SetSong(context.Context, *room.SetSongParams) (room.Event, error)
	RenameRoom(context.Context, *room.RenameRoomParams) (room.Event, error)
	PromoteMember(context.Context, *room.PromoteMemberParams) (room.Event, error)
	CloseRoom(context.Context, *room.CloseRoomParams) error
}

type iAuthorizer interface {
	AuthorizeCaller(ctx context.Context, token string) (auth.Identity, error)
}

type controller struct {
	roomService    iRoomService
	authorizer     iAuthorizer
	metricsHandler http.Handler
	upgrader       websocket.Upgrader
	validate       *validator.Validator
	logger         *slog.Logger
}

// NewController builds the gateway. A nil authorizer trusts the caller ids
// sent by clients; a nil metricsHandler disables /metrics.
func NewController(roomService iRoomService, authorizer iAuthorizer, metricsHandler http.Handler, logger *slog.Logger) *controller {
	return &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService:    roomService,
		authorizer:     authorizer,
		metricsHandler: metricsHandler,
		validate:       validator.NewValidator(),
		logger:         logger,
	}
}
