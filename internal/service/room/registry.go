package room

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sharetube/syncroom/internal/domain"
	"golang.org/x/exp/maps"
)

// Handle guards one room. Every command on the room runs with mu held, so
// rooms progress in parallel while each one sees a single command at a time.
type Handle struct {
	id         string
	mu         sync.Mutex
	room       *domain.Room
	emptySince time.Time
	destroyed  atomic.Bool
}

func (h *Handle) ID() string {
	return h.id
}

// Registry maps room ids to handles. Its lock is only held for map access,
// never while a room processes a command.
type Registry struct {
	rooms     map[string]*Handle
	mu        sync.RWMutex
	generator iGenerator
	idLength  int
}

func NewRegistry(generator iGenerator, idLength int) *Registry {
	return &Registry{
		rooms:     make(map[string]*Handle),
		generator: generator,
		idLength:  idLength,
	}
}

// CreateRoom draws a random id and registers the room built by newRoom.
func (r *Registry) CreateRoom(newRoom func(roomID string) *domain.Room) (*Handle, error) {
	roomID := r.generator.GenerateRandomString(r.idLength)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomID]; ok {
		return nil, ErrAlreadyExists
	}

	h := &Handle{
		id:   roomID,
		room: newRoom(roomID),
	}
	r.rooms[roomID] = h

	return h, nil
}

func (r *Registry) GetRoom(roomID string) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}

	return h, nil
}

// DestroyRoom removes the room and reports whether it was still registered.
func (r *Registry) DestroyRoom(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.rooms[roomID]
	if !ok {
		return false
	}

	h.destroyed.Store(true)
	delete(r.rooms, roomID)

	return true
}

// Rooms returns the handles registered at the time of the call.
func (r *Registry) Rooms() []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return maps.Values(r.rooms)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}
