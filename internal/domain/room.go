package domain

import (
	"fmt"
	"time"
)

// Room holds the playback authority of a single listening room. It is not
// safe for concurrent use; callers serialize access per room.
//
// The current position is never stored. It is derived from the anchor
// (position and wall-clock instant of the last transition) on every read.
type Room struct {
	id              string
	name            string
	members         *Members
	song            *Song
	state           PlaybackState
	anchorPosition  time.Duration
	anchorTimestamp time.Time
	sequence        uint64
}

func NewRoom(id, name string, host Member, song *Song, membersLimit int) *Room {
	r := &Room{
		id:              id,
		name:            name,
		members:         NewMembers(host, membersLimit),
		state:           Stopped,
		anchorTimestamp: host.JoinedAt,
	}
	if song != nil {
		s := *song
		r.song = &s
	}

	return r
}

func (r *Room) ID() string {
	return r.id
}

func (r *Room) Name() string {
	return r.name
}

func (r *Room) HostID() string {
	return r.members.HostID()
}

func (r *Room) Sequence() uint64 {
	return r.sequence
}

func (r *Room) State() PlaybackState {
	return r.state
}

func (r *Room) Song() *Song {
	if r.song == nil {
		return nil
	}
	s := *r.song
	return &s
}

func (r *Room) ParticipantCount() int {
	return r.members.Length()
}

func (r *Room) IsEmpty() bool {
	return r.members.Length() == 0
}

func (r *Room) IsMember(id string) bool {
	return r.members.Contains(id)
}

func (r *Room) IsHost(id string) bool {
	return r.members.IsHost(id)
}

func (r *Room) Members() []Member {
	return r.members.AsList()
}

func (r *Room) duration() time.Duration {
	if r.song == nil {
		return 0
	}
	return r.song.Duration
}

// Position returns the derived playback position at now.
func (r *Room) Position(now time.Time) time.Duration {
	return derivePosition(r.state, r.anchorPosition, r.anchorTimestamp, now, r.duration())
}

func (r *Room) checkHost(callerID string) error {
	if !r.members.IsHost(callerID) {
		return ErrForbidden
	}
	return nil
}

func (r *Room) SetSong(callerID string, song Song, now time.Time) (Event, error) {
	if err := r.checkHost(callerID); err != nil {
		return Event{}, err
	}
	if err := song.Validate(); err != nil {
		return Event{}, err
	}

	r.song = &song
	r.anchorPosition = 0
	r.anchorTimestamp = now
	r.state = Stopped

	return r.commit(EventStateChanged, now), nil
}

func (r *Room) Play(callerID string, now time.Time) (Event, error) {
	if err := r.checkHost(callerID); err != nil {
		return Event{}, err
	}
	if r.song == nil {
		return Event{}, fmt.Errorf("%w: no song", ErrInvalidState)
	}
	if r.state == Playing {
		return Event{}, fmt.Errorf("%w: already playing", ErrInvalidState)
	}

	r.anchorTimestamp = now
	r.state = Playing

	return r.commit(EventStateChanged, now), nil
}

func (r *Room) Pause(callerID string, now time.Time) (Event, error) {
	if err := r.checkHost(callerID); err != nil {
		return Event{}, err
	}
	if r.state != Playing {
		return Event{}, fmt.Errorf("%w: not playing", ErrInvalidState)
	}

	r.anchorPosition = r.Position(now)
	r.anchorTimestamp = now
	r.state = Paused

	return r.commit(EventStateChanged, now), nil
}

func (r *Room) Seek(callerID string, offset time.Duration, now time.Time) (Event, error) {
	if err := r.checkHost(callerID); err != nil {
		return Event{}, err
	}
	if r.song == nil {
		return Event{}, fmt.Errorf("%w: no song", ErrInvalidState)
	}
	if offset < 0 || offset > r.song.Duration {
		return Event{}, fmt.Errorf("%w: offset %s out of [0, %s]", ErrInvalidState, offset, r.song.Duration)
	}

	r.anchorPosition = offset
	if r.state == Playing {
		r.anchorTimestamp = now
	}

	return r.commit(EventStateChanged, now), nil
}

func (r *Room) Stop(callerID string, now time.Time) (Event, error) {
	if err := r.checkHost(callerID); err != nil {
		return Event{}, err
	}

	r.anchorPosition = 0
	r.anchorTimestamp = now
	r.state = Stopped

	return r.commit(EventStateChanged, now), nil
}

func (r *Room) Rename(callerID, name string, now time.Time) (Event, error) {
	if err := r.checkHost(callerID); err != nil {
		return Event{}, err
	}
	if name == "" {
		return Event{}, fmt.Errorf("%w: empty name", ErrInvalidState)
	}

	r.name = name

	return r.commit(EventStateChanged, now), nil
}

// TransferHost hands host authority to another member.
func (r *Room) TransferHost(callerID, targetID string, now time.Time) (Event, error) {
	if err := r.checkHost(callerID); err != nil {
		return Event{}, err
	}
	if callerID == targetID {
		return Event{}, fmt.Errorf("%w: already host", ErrInvalidState)
	}
	if err := r.members.SetHost(targetID); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}

	return r.commit(EventHostChanged, now), nil
}

// CheckClose reports whether callerID may close the room.
func (r *Room) CheckClose(callerID string) error {
	return r.checkHost(callerID)
}

// Join adds a member. A member joining an empty room becomes host and a
// HostChanged event is emitted instead of ParticipantsChanged.
func (r *Room) Join(member Member, now time.Time) (Event, error) {
	becameHost, err := r.members.Add(member)
	if err != nil {
		return Event{}, err
	}

	if becameHost {
		return r.commit(EventHostChanged, now), nil
	}
	return r.commit(EventParticipantsChanged, now), nil
}

// Leave removes a member. When the host leaves and others remain, the
// longest-tenured one is promoted and exactly one HostChanged is emitted.
func (r *Room) Leave(memberID string, now time.Time) (ev Event, newHostID string, err error) {
	_, newHostID, err = r.members.Remove(memberID)
	if err != nil {
		return Event{}, "", err
	}

	if newHostID != "" {
		return r.commit(EventHostChanged, now), newHostID, nil
	}
	return r.commit(EventParticipantsChanged, now), "", nil
}

// Settle stops a room whose song has played out. It returns the resulting
// event and true when a transition happened.
func (r *Room) Settle(now time.Time) (Event, bool) {
	if r.state != Playing || r.song == nil {
		return Event{}, false
	}
	if r.Position(now) < r.song.Duration {
		return Event{}, false
	}

	r.anchorPosition = 0
	r.anchorTimestamp = now
	r.state = Stopped

	return r.commit(EventStateChanged, now), true
}

// SyncTick returns a non-mutating position event while playing.
func (r *Room) SyncTick(now time.Time) (Event, bool) {
	if r.state != Playing {
		return Event{}, false
	}
	return r.event(EventSyncTick, now), true
}

// ClosedEvent is the last event a room emits. It does not advance the
// sequence.
func (r *Room) ClosedEvent(now time.Time) Event {
	return r.event(EventRoomClosed, now)
}

func (r *Room) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		RoomID:           r.id,
		Name:             r.name,
		HostID:           r.members.HostID(),
		Participants:     r.members.IDs(),
		Song:             r.Song(),
		PlaybackState:    r.state,
		AnchorPosition:   r.anchorPosition,
		AnchorTimestamp:  r.anchorTimestamp,
		Position:         r.Position(now),
		Sequence:         r.sequence,
		ParticipantCount: r.members.Length(),
		Timestamp:        now,
	}
}

func (r *Room) commit(t EventType, now time.Time) Event {
	r.sequence++
	return r.event(t, now)
}

func (r *Room) event(t EventType, now time.Time) Event {
	return Event{
		Type:             t,
		RoomID:           r.id,
		Name:             r.name,
		Sequence:         r.sequence,
		PlaybackState:    r.state,
		AnchorPosition:   r.anchorPosition,
		AnchorTimestamp:  r.anchorTimestamp,
		Position:         r.Position(now),
		Song:             r.Song(),
		HostID:           r.members.HostID(),
		ParticipantCount: r.members.Length(),
		Timestamp:        now,
	}
}
