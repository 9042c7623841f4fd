package engine

import (
	"fmt"

	"github.com/aleksima/kaiku"
)

type (
	// TrackRegistry holds the clip and capture state of every track. It is the
	// single place clip start times are mutated, so the mid-capture guard
	// cannot be bypassed. The registry has one logical owner, the engine
	// timeline; it is not safe for concurrent mutation and does not lock.
	TrackRegistry struct {
		tracks []track
	}

	track struct {
		clip  *kaiku.Clip
		gain  float64
		state captureState

		// capture bookkeeping, managed by the engine
		pendingStart float64 // cursor snapshot at capture start
		stream       kaiku.CaptureStream
		stopMonitor  func()
	}

	captureState int
)

const (
	captureIdle captureState = iota
	capturing
	finalizing
)

func NewTrackRegistry(numTracks int) *TrackRegistry {
	tracks := make([]track, numTracks)
	for i := range tracks {
		tracks[i].gain = 1
	}
	return &TrackRegistry{tracks: tracks}
}

func (r *TrackRegistry) NumTracks() int { return len(r.tracks) }

// Clip returns the clip of the given track, or nil if the track is empty or
// the index out of range.
func (r *TrackRegistry) Clip(t int) *kaiku.Clip {
	if t < 0 || t >= len(r.tracks) {
		return nil
	}
	return r.tracks[t].clip
}

// SetClip replaces the clip of the given track. A nil clip empties the track.
func (r *TrackRegistry) SetClip(t int, clip *kaiku.Clip) {
	if t < 0 || t >= len(r.tracks) {
		return
	}
	r.tracks[t].clip = clip
}

// SetStart moves the clip of the given track to project time start, clamped to
// ≥ 0. Fails with ErrInvalidState while the track is mid-capture. In-flight
// voices are unaffected; the move is seen by future playFrom and scrub calls
// only.
func (r *TrackRegistry) SetStart(t int, start float64) error {
	if t < 0 || t >= len(r.tracks) {
		return fmt.Errorf("track %d out of range: %w", t, kaiku.ErrInvalidState)
	}
	if r.tracks[t].state != captureIdle {
		return fmt.Errorf("track %d is capturing: %w", t, kaiku.ErrInvalidState)
	}
	if r.tracks[t].clip == nil {
		return fmt.Errorf("track %d has no clip: %w", t, kaiku.ErrInvalidState)
	}
	r.tracks[t].clip.Start = max(start, 0)
	return nil
}

// Gain returns the track gain, 1 = unity.
func (r *TrackRegistry) Gain(t int) float64 {
	if t < 0 || t >= len(r.tracks) {
		return 0
	}
	return r.tracks[t].gain
}

func (r *TrackRegistry) SetGain(t int, gain float64) {
	if t < 0 || t >= len(r.tracks) {
		return
	}
	r.tracks[t].gain = max(gain, 0)
}

// Capturing reports whether the track is currently part of an active capture
// (acquiring, recording or finalizing).
func (r *TrackRegistry) Capturing(t int) bool {
	if t < 0 || t >= len(r.tracks) {
		return false
	}
	return r.tracks[t].state != captureIdle
}
