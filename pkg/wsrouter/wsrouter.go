package wsrouter

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gorilla/websocket"
)

var ErrUnknownMessageType = errors.New("unknown message type")

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

type ErrorHandlerFunc func(ctx context.Context, err error)

type Middleware func(next HandlerFunc) HandlerFunc

// WSRouter reads messages from a connection and dispatches them by type.
// It never writes to the connection, so it can run alongside a dedicated
// writer goroutine.
type WSRouter struct {
	routes       map[string]HandlerFunc
	middlewares  []Middleware
	errorHandler ErrorHandlerFunc
}

func New() *WSRouter {
	return &WSRouter{
		routes:       make(map[string]HandlerFunc),
		errorHandler: func(context.Context, error) {},
	}
}

// Use appends middlewares applied to handlers registered afterwards. The
// first middleware is the outermost.
func (r *WSRouter) Use(middlewares ...Middleware) {
	r.middlewares = append(r.middlewares, middlewares...)
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}
	r.routes[messageType] = handler
}

func (r *WSRouter) HandleError(handler ErrorHandlerFunc) {
	r.errorHandler = handler
}

// ServeConn blocks until reading from conn fails and returns that error.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			var (
				syntaxErr *json.SyntaxError
				typeErr   *json.UnmarshalTypeError
			)
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				r.errorHandler(ctx, err)
				continue
			}
			return err
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		handler, exists := r.routes[msg.Type]
		if !exists {
			r.errorHandler(msgCtx, ErrUnknownMessageType)
			continue
		}

		if err := handler(msgCtx, msg.Payload); err != nil {
			r.errorHandler(msgCtx, err)
		}
	}
}
