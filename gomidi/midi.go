// Package gomidi is an optional MIDI remote for the transport: realtime
// Start/Stop/Continue messages map to play and stop, and notes from a
// configurable base note toggle per-track recording.
package gomidi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aleksima/kaiku/engine"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type Transport struct {
	driver   *rtmididrv.Driver
	in       drivers.In
	stopFn   func()
	broker   *engine.Broker
	baseNote uint8
}

// NewTransport opens the first MIDI input whose name starts with namePrefix
// (any input if the prefix is empty) and starts forwarding transport commands
// to the engine broker. Notes baseNote..baseNote+N toggle recording on tracks
// 0..N.
func NewTransport(broker *engine.Broker, namePrefix string, baseNote uint8) (*Transport, error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("no MIDI driver available: %w", err)
	}
	t := &Transport{driver: driver, broker: broker, baseNote: baseNote}
	ins, err := driver.Ins()
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("listing MIDI inputs failed: %w", err)
	}
	for _, in := range ins {
		if namePrefix == "" || strings.HasPrefix(in.String(), namePrefix) {
			t.in = in
			break
		}
	}
	if t.in == nil {
		driver.Close()
		return nil, errors.New("no matching MIDI input found")
	}
	if err := t.in.Open(); err != nil {
		driver.Close()
		return nil, fmt.Errorf("opening MIDI input failed: %w", err)
	}
	t.stopFn, err = midi.ListenTo(t.in, t.handleMessage)
	if err != nil {
		t.in.Close()
		driver.Close()
		return nil, fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	return t, nil
}

func (t *Transport) String() string { return t.in.String() }

// handleMessage runs on the MIDI driver goroutine; everything is forwarded as
// a non-blocking send so a full engine can only drop commands, never stall
// the driver.
func (t *Transport) handleMessage(msg midi.Message, timestampms int32) {
	var channel, key, velocity uint8
	switch {
	case msg.Is(midi.StartMsg), msg.Is(midi.ContinueMsg):
		engine.TrySend(t.broker.ToEngine, engine.MsgToEngine{Data: engine.TransportMsg{Kind: engine.TransportPlay}})
	case msg.Is(midi.StopMsg):
		engine.TrySend(t.broker.ToEngine, engine.MsgToEngine{Data: engine.TransportMsg{Kind: engine.TransportStop}})
	case msg.GetNoteOn(&channel, &key, &velocity):
		if key < t.baseNote {
			return
		}
		engine.TrySend(t.broker.ToEngine, engine.MsgToEngine{Data: engine.TransportMsg{
			Kind:  engine.TransportRecord,
			Track: int(key - t.baseNote),
		}})
	}
}

func (t *Transport) Close() {
	if t.stopFn != nil {
		t.stopFn()
	}
	if t.in != nil && t.in.IsOpen() {
		t.in.Close()
	}
	t.driver.Close()
}
