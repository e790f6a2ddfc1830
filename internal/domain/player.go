package domain

import (
	"fmt"
	"time"
)

type PlaybackState int

const (
	Stopped PlaybackState = iota
	Playing
	Paused
)

var playbackStateNames = map[PlaybackState]string{
	Stopped: "Stopped",
	Playing: "Playing",
	Paused:  "Paused",
}

func (s PlaybackState) String() string {
	if name, ok := playbackStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("PlaybackState(%d)", int(s))
}

func (s PlaybackState) MarshalText() ([]byte, error) {
	name, ok := playbackStateNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown playback state %d", int(s))
	}
	return []byte(name), nil
}

func (s *PlaybackState) UnmarshalText(text []byte) error {
	for state, name := range playbackStateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown playback state %q", text)
}

// PlaybackStates lists every state in declaration order.
func PlaybackStates() []PlaybackState {
	return []PlaybackState{Stopped, Playing, Paused}
}

// derivePosition computes the playback offset at now from the anchor. The
// result is clamped to [0, duration]; a zero duration disables the upper
// bound.
func derivePosition(state PlaybackState, anchor time.Duration, anchoredAt, now time.Time, duration time.Duration) time.Duration {
	pos := anchor
	if state == Playing {
		if elapsed := now.Sub(anchoredAt); elapsed > 0 {
			pos += elapsed
		}
	}

	if pos < 0 {
		pos = 0
	}
	if duration > 0 && pos > duration {
		pos = duration
	}

	return pos
}
