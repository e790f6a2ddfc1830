package room

import (
	"time"

	"github.com/sharetube/syncroom/internal/domain"
)

const (
	MessageTypeSnapshot = "Snapshot"
	MessageTypeError    = "ERROR"
)

// Output is the envelope of every message pushed to a connection.
type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type Song struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Duration float64 `json:"duration"`
}

// Event is the wire form of a room event. Positions are in seconds,
// timestamps in unix milliseconds.
type Event struct {
	RoomID           string               `json:"room_id"`
	Name             string               `json:"name"`
	Sequence         uint64               `json:"sequence"`
	PlaybackState    domain.PlaybackState `json:"playback_state"`
	Position         float64              `json:"position"`
	AnchorPosition   float64              `json:"anchor_position"`
	AnchorTimestamp  int64                `json:"anchor_timestamp"`
	SongID           *string              `json:"song_id"`
	Song             *Song                `json:"song"`
	HostID           string               `json:"host_id"`
	ParticipantCount int                  `json:"participant_count"`
	Timestamp        int64                `json:"timestamp"`
}

type Snapshot struct {
	RoomID           string               `json:"room_id"`
	Name             string               `json:"name"`
	HostID           string               `json:"host_id"`
	Participants     []string             `json:"participants"`
	Sequence         uint64               `json:"sequence"`
	PlaybackState    domain.PlaybackState `json:"playback_state"`
	Position         float64              `json:"position"`
	AnchorPosition   float64              `json:"anchor_position"`
	AnchorTimestamp  int64                `json:"anchor_timestamp"`
	SongID           *string              `json:"song_id"`
	Song             *Song                `json:"song"`
	ParticipantCount int                  `json:"participant_count"`
	Timestamp        int64                `json:"timestamp"`
}

type RoomInfo struct {
	RoomID           string `json:"room_id"`
	Name             string `json:"name"`
	ParticipantCount int    `json:"participant_count"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func seconds(d time.Duration) float64 {
	return d.Seconds()
}

func newSong(song *domain.Song) (*string, *Song) {
	if song == nil {
		return nil, nil
	}

	id := song.ID
	return &id, &Song{
		ID:       song.ID,
		Title:    song.Title,
		Artist:   song.Artist,
		Duration: seconds(song.Duration),
	}
}

func newEvent(ev domain.Event) Event {
	songID, song := newSong(ev.Song)
	return Event{
		RoomID:           ev.RoomID,
		Name:             ev.Name,
		Sequence:         ev.Sequence,
		PlaybackState:    ev.PlaybackState,
		Position:         seconds(ev.Position),
		AnchorPosition:   seconds(ev.AnchorPosition),
		AnchorTimestamp:  ev.AnchorTimestamp.UnixMilli(),
		SongID:           songID,
		Song:             song,
		HostID:           ev.HostID,
		ParticipantCount: ev.ParticipantCount,
		Timestamp:        ev.Timestamp.UnixMilli(),
	}
}

func newSnapshot(s domain.Snapshot) Snapshot {
	songID, song := newSong(s.Song)
	return Snapshot{
		RoomID:           s.RoomID,
		Name:             s.Name,
		HostID:           s.HostID,
		Participants:     s.Participants,
		Sequence:         s.Sequence,
		PlaybackState:    s.PlaybackState,
		Position:         seconds(s.Position),
		AnchorPosition:   seconds(s.AnchorPosition),
		AnchorTimestamp:  s.AnchorTimestamp.UnixMilli(),
		SongID:           songID,
		Song:             song,
		ParticipantCount: s.ParticipantCount,
		Timestamp:        s.Timestamp.UnixMilli(),
	}
}

func eventOutput(ev domain.Event) Output {
	return Output{
		Type:    string(ev.Type),
		Payload: newEvent(ev),
	}
}

func snapshotOutput(s domain.Snapshot) Output {
	return Output{
		Type:    MessageTypeSnapshot,
		Payload: newSnapshot(s),
	}
}
