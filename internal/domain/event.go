package domain

import "time"

type EventType string

const (
	EventStateChanged        EventType = "StateChanged"
	EventHostChanged         EventType = "HostChanged"
	EventParticipantsChanged EventType = "ParticipantsChanged"
	EventSyncTick            EventType = "SyncTick"
	EventRoomClosed          EventType = "RoomClosed"
)

// Event is emitted for every accepted mutation of a room and for sync ticks.
// Position is the derived position at Timestamp.
type Event struct {
	Type             EventType
	RoomID           string
	Name             string
	Sequence         uint64
	PlaybackState    PlaybackState
	AnchorPosition   time.Duration
	AnchorTimestamp  time.Time
	Position         time.Duration
	Song             *Song
	HostID           string
	ParticipantCount int
	Timestamp        time.Time
}

// Snapshot is the full view of a room handed to new arrivals.
type Snapshot struct {
	RoomID           string
	Name             string
	HostID           string
	Participants     []string
	Song             *Song
	PlaybackState    PlaybackState
	AnchorPosition   time.Duration
	AnchorTimestamp  time.Time
	Position         time.Duration
	Sequence         uint64
	ParticipantCount int
	Timestamp        time.Time
}
