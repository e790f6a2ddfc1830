package inmemory

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sharetube/syncroom/internal/repository/connection"
	"golang.org/x/exp/maps"
)

type key struct {
	roomID        string
	participantID string
}

type record struct {
	conn     connection.Conn
	lastSeen time.Time
}

// repo is the presence table: which participants are attached to which room,
// when each was last seen alive and which push connection it uses, if any.
type repo struct {
	records map[key]*record
	byRoom  map[string]map[string]struct{}
	mu      sync.RWMutex
	logger  *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		records: make(map[key]*record),
		byRoom:  make(map[string]map[string]struct{}),
		logger:  logger,
	}
}

func (r *repo) Add(roomID, participantID string, now time.Time) error {
	funcName := "connection.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "room_id", roomID, "participant_id", participantID)
	k := key{roomID, participantID}
	if _, ok := r.records[k]; ok {
		r.logger.Debug(funcName, "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	r.records[k] = &record{lastSeen: now}
	if r.byRoom[roomID] == nil {
		r.byRoom[roomID] = make(map[string]struct{})
	}
	r.byRoom[roomID][participantID] = struct{}{}

	return nil
}

// Remove deletes the participant and returns its connection, which may be nil.
func (r *repo) Remove(roomID, participantID string) (connection.Conn, error) {
	funcName := "connection.inmemory.Remove"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "room_id", roomID, "participant_id", participantID)
	k := key{roomID, participantID}
	rec, ok := r.records[k]
	if !ok {
		r.logger.Debug(funcName, "error", connection.ErrNotFound)
		return nil, connection.ErrNotFound
	}

	delete(r.records, k)
	delete(r.byRoom[roomID], participantID)
	if len(r.byRoom[roomID]) == 0 {
		delete(r.byRoom, roomID)
	}

	return rec.conn, nil
}

// Attach sets the participant's connection and returns the one it replaced.
func (r *repo) Attach(roomID, participantID string, conn connection.Conn) (connection.Conn, error) {
	funcName := "connection.inmemory.Attach"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "room_id", roomID, "participant_id", participantID)
	rec, ok := r.records[key{roomID, participantID}]
	if !ok {
		r.logger.Debug(funcName, "error", connection.ErrNotFound)
		return nil, connection.ErrNotFound
	}

	prev := rec.conn
	rec.conn = conn

	return prev, nil
}

// Detach clears the participant's connection only if it is still conn.
func (r *repo) Detach(roomID, participantID string, conn connection.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[key{roomID, participantID}]
	if !ok || rec.conn != conn {
		return false
	}

	rec.conn = nil
	return true
}

func (r *repo) Touch(roomID, participantID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[key{roomID, participantID}]
	if !ok {
		return connection.ErrNotFound
	}

	if now.After(rec.lastSeen) {
		rec.lastSeen = now
	}

	return nil
}

func (r *repo) GetConn(roomID, participantID string) (connection.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[key{roomID, participantID}]
	if !ok || rec.conn == nil {
		return nil, connection.ErrNotFound
	}

	return rec.conn, nil
}

func (r *repo) GetConns(roomID string) []connection.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]connection.Conn, 0, len(r.byRoom[roomID]))
	for participantID := range r.byRoom[roomID] {
		if rec := r.records[key{roomID, participantID}]; rec.conn != nil {
			conns = append(conns, rec.conn)
		}
	}

	return conns
}

// GetExpired returns the participants of roomID last seen before deadline,
// sorted by id.
func (r *repo) GetExpired(roomID string, deadline time.Time) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	expired := make([]string, 0)
	for participantID := range r.byRoom[roomID] {
		if r.records[key{roomID, participantID}].lastSeen.Before(deadline) {
			expired = append(expired, participantID)
		}
	}
	slices.Sort(expired)

	return expired
}

// RemoveRoom drops every participant of roomID and returns their connections.
func (r *repo) RemoveRoom(roomID string) []connection.Conn {
	funcName := "connection.inmemory.RemoveRoom"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "room_id", roomID)
	participantIDs := maps.Keys(r.byRoom[roomID])
	conns := make([]connection.Conn, 0, len(participantIDs))
	for _, participantID := range participantIDs {
		k := key{roomID, participantID}
		if rec := r.records[k]; rec.conn != nil {
			conns = append(conns, rec.conn)
		}
		delete(r.records, k)
	}
	delete(r.byRoom, roomID)

	return conns
}
