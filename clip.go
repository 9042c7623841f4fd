package kaiku

import (
	"errors"
	"fmt"
)

type (
	// Clip is a decoded, fixed-length audio buffer attached to a track. The
	// sample data is split per channel; every channel has the same number of
	// frames. Once created, a Clip is immutable except for Start, which is the
	// project-relative time (in seconds) at which the clip begins. Start is
	// only ever mutated through the TrackRegistry, which guards against edits
	// while the track is capturing.
	Clip struct {
		Samples    [][]float32 `yaml:"-"`
		SampleRate int         `yaml:"samplerate"`
		Start      float64     `yaml:"start"`
	}
)

// NewClip validates the sample data and wraps it into a Clip. All channels
// must have equal length, the sample rate must be positive and start cannot be
// negative.
func NewClip(samples [][]float32, sampleRate int, start float64) (*Clip, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("clip sample rate should be > 0, got %d", sampleRate)
	}
	if len(samples) == 0 || len(samples[0]) == 0 {
		return nil, errors.New("clip contains no samples")
	}
	for i, ch := range samples[1:] {
		if len(ch) != len(samples[0]) {
			return nil, fmt.Errorf("channel %d has %d frames, channel 0 has %d", i+1, len(ch), len(samples[0]))
		}
	}
	if start < 0 {
		start = 0
	}
	return &Clip{Samples: samples, SampleRate: sampleRate, Start: start}, nil
}

// Frames returns the number of sample frames in the clip.
func (c *Clip) Frames() int {
	if len(c.Samples) == 0 {
		return 0
	}
	return len(c.Samples[0])
}

// Channels returns the number of channels in the clip.
func (c *Clip) Channels() int { return len(c.Samples) }

// Duration returns the length of the clip in seconds; always exactly
// Frames()/SampleRate.
func (c *Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.SampleRate)
}

// End returns the project time at which the clip ends.
func (c *Clip) End() float64 { return c.Start + c.Duration() }

// Overlaps reports whether project time t falls inside the clip.
func (c *Clip) Overlaps(t float64) bool { return t >= c.Start && t < c.End() }

// Sample returns the sample of the given channel at the given frame, or 0 if
// either index is out of range.
func (c *Clip) Sample(channel, frame int) float32 {
	if channel < 0 || channel >= len(c.Samples) {
		return 0
	}
	if frame < 0 || frame >= len(c.Samples[channel]) {
		return 0
	}
	return c.Samples[channel][frame]
}
