package room

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sharetube/syncroom/internal/domain"
)

const (
	dropReasonSlow       = "slow"
	dropReasonSendFailed = "send_failed"
)

// Conn is the push transport of a single client.
type Conn interface {
	Send(ctx context.Context, data []byte) error
	Close() error
}

// subscriber owns one push connection. Messages are queued without blocking
// and written by a dedicated goroutine, so a stuck client never holds up the
// room it listens to. A nil message closes the subscriber once everything
// queued before it has been written.
type subscriber struct {
	id            string
	roomID        string
	participantID string
	conn          Conn
	queue         chan []byte
	done          chan struct{}
	closeOnce     sync.Once
	lost          atomic.Bool
	onClose       func()
}

func (s *subscriber) enqueue(msg []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.queue <- msg:
		return true
	default:
		return false
	}
}

func (s *subscriber) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Close stops the subscriber at once. The transport is closed on its own
// goroutine since closing may wait for a write that is still in flight, and
// Close is called with the room lock held.
func (s *subscriber) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.onClose != nil {
			s.onClose()
		}
		go s.conn.Close()
	})

	return nil
}

// closeAfterDrain closes the subscriber after its queued messages are sent.
func (s *subscriber) closeAfterDrain() {
	if !s.enqueue(nil) {
		s.Close()
	}
}

type dispatcher struct {
	connRepo     iConnRepo
	bufferSize   int
	writeTimeout time.Duration
	onLost       func(sub *subscriber)
	metrics      iMetrics
	logger       *slog.Logger
}

func newDispatcher(connRepo iConnRepo, bufferSize int, writeTimeout time.Duration, m iMetrics, logger *slog.Logger) *dispatcher {
	return &dispatcher{
		connRepo:     connRepo,
		bufferSize:   bufferSize,
		writeTimeout: writeTimeout,
		onLost:       func(*subscriber) {},
		metrics:      m,
		logger:       logger,
	}
}

// subscribe wraps conn and starts its writer. The subscriber receives room
// events once it is attached to the connection table.
func (d *dispatcher) subscribe(subID, roomID, participantID string, conn Conn) *subscriber {
	sub := &subscriber{
		id:            subID,
		roomID:        roomID,
		participantID: participantID,
		conn:          conn,
		queue:         make(chan []byte, d.bufferSize),
		done:          make(chan struct{}),
		onClose:       d.metrics.ConnectionClosed,
	}
	d.metrics.ConnectionOpened()

	go d.write(sub)

	return sub
}

func (d *dispatcher) write(sub *subscriber) {
	for {
		select {
		case <-sub.done:
			return
		case msg := <-sub.queue:
			if msg == nil {
				sub.Close()
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), d.writeTimeout)
			err := sub.conn.Send(ctx, msg)
			cancel()
			if err != nil {
				d.logger.Debug("failed to send message", "room_id", sub.roomID, "participant_id", sub.participantID, "error", err)
				d.drop(sub, dropReasonSendFailed)
				return
			}
		}
	}
}

// drop closes a failing subscriber and reports it as lost. onLost runs on its
// own goroutine because drop may be called with the room lock held.
func (d *dispatcher) drop(sub *subscriber, reason string) {
	if sub.closed() || !sub.lost.CompareAndSwap(false, true) {
		return
	}

	d.logger.Info("connection dropped", "room_id", sub.roomID, "participant_id", sub.participantID, "reason", reason)
	d.metrics.ConnectionDropped(reason)
	sub.Close()

	go d.onLost(sub)
}

func (d *dispatcher) deliver(sub *subscriber, msg []byte) {
	if !sub.enqueue(msg) {
		d.drop(sub, dropReasonSlow)
	}
}

func (d *dispatcher) encode(out Output) ([]byte, bool) {
	msg, err := json.Marshal(out)
	if err != nil {
		d.logger.Error("failed to encode message", "type", out.Type, "error", err)
		return nil, false
	}

	return msg, true
}

// publish fans ev out to every connection of its room. Callers hold the room
// lock, which gives each connection the room's event order.
func (d *dispatcher) publish(ev domain.Event) {
	msg, ok := d.encode(eventOutput(ev))
	if !ok {
		return
	}
	d.metrics.EventPublished(string(ev.Type))

	for _, c := range d.connRepo.GetConns(ev.RoomID) {
		if sub, ok := c.(*subscriber); ok {
			d.deliver(sub, msg)
		}
	}
}

func (d *dispatcher) sendTo(sub *subscriber, out Output) {
	if msg, ok := d.encode(out); ok {
		d.deliver(sub, msg)
	}
}

// closeTopic sends the final event to subs and closes them after it is written.
func (d *dispatcher) closeTopic(final domain.Event, subs []*subscriber) {
	msg, ok := d.encode(eventOutput(final))
	if ok {
		d.metrics.EventPublished(string(final.Type))
	}

	for _, sub := range subs {
		if ok && !sub.enqueue(msg) {
			sub.Close()
			continue
		}
		sub.closeAfterDrain()
	}
}
