// Package oto implements the kaiku output device on top of the oto library:
// one shared stereo mixing stage, a monotonic clock derived from the number of
// frames handed to the hardware, and sample-accurate voice scheduling against
// absolute device-clock targets.
package oto

import (
	"fmt"

	"github.com/aleksima/kaiku"
	"github.com/aleksima/kaiku/engine"
	"github.com/ebitengine/oto/v3"
)

type Device struct {
	mixer  *mixer
	ctx    *oto.Context
	player *oto.Player
}

// NewDevice opens the default audio output and starts the mixing stage.
// Natural voice ends are reported to broker.ToEngine as VoiceEndedMsg.
func NewDevice(broker *engine.Broker, sampleRate int) (*Device, error) {
	m := newMixer(broker, sampleRate)
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	player := ctx.NewPlayer(m)
	player.Play()
	return &Device{mixer: m, ctx: ctx, player: player}, nil
}

// Now returns the device clock in seconds: frames rendered so far divided by
// the sample rate. Monotonic by construction.
func (d *Device) Now() float64 { return d.mixer.now() }

// Start schedules a voice. Requests whose device time has already passed are
// rejected with ErrSchedulingRejected.
func (d *Device) Start(spec kaiku.VoiceSpec) (kaiku.VoiceID, error) {
	return d.mixer.start(spec)
}

// End force-ends a voice. Ending an already-ended voice is a no-op.
func (d *Device) End(id kaiku.VoiceID) { d.mixer.end(id) }

// PlayThrough mixes src into the output until the returned stop func is
// called. The stop func is single-use and idempotent.
func (d *Device) PlayThrough(src kaiku.SampleReader) (stop func()) {
	return d.mixer.playThrough(src)
}

func (d *Device) Close() error {
	if err := d.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
