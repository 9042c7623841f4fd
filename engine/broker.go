package engine

import (
	"time"

	"github.com/aleksima/kaiku"
)

type (
	// Broker carries messages between the engine's cooperative timeline and
	// everything that is asynchronous around it. Completion notifications from
	// capture acquisition, finalize+decode, voice natural ends, scrub
	// watchdogs and remote transports all arrive through ToEngine; the engine
	// publishes cursor state and alerts to the renderer through ToRenderer.
	// Communication is many-to-one, one channel per recipient, and all sends
	// are non-blocking TrySends so that no collaborator can dead-lock the
	// engine or the audio thread.
	Broker struct {
		ToEngine   chan MsgToEngine
		ToRenderer chan MsgToRenderer
	}

	// MsgToEngine is a notification for the engine. The concrete payload is
	// boxed in Data; casting pointer-free small structs to any is cheap enough
	// here since these messages are not per-sample.
	MsgToEngine struct {
		Data any
	}

	// MsgToRenderer is published after every cursor update. The renderer reads
	// the cursor time, the current page and whether a page boundary was just
	// crossed (requiring a viewport realignment); clips are read from the
	// registry. Infrequent payloads (alerts, committed clips) are boxed in
	// Data.
	MsgToRenderer struct {
		Time        float64
		Page        int
		Playing     bool
		PageChanged bool

		Data any
	}

	// VoiceEndedMsg is sent by a Device when a voice reaches the end of its
	// buffer or planned duration on its own.
	VoiceEndedMsg struct {
		ID kaiku.VoiceID
	}

	// TransportMsg is a remote transport command, e.g. from a MIDI input.
	TransportMsg struct {
		Kind  TransportKind
		Track int // only for TransportRecord
	}

	TransportKind int

	// Alert is a user-facing notification, published boxed in
	// MsgToRenderer.Data. Name identifies the alert source so renderers can
	// deduplicate repeats.
	Alert struct {
		Name     string
		Message  string
		Priority AlertPriority
	}

	AlertPriority int
)

const (
	TransportPlay TransportKind = iota
	TransportStop
	TransportRecord
)

const (
	Info AlertPriority = iota
	Warning
	Error
)

func NewBroker() *Broker {
	return &Broker{
		ToEngine:   make(chan MsgToEngine, 1024),
		ToRenderer: make(chan MsgToRenderer, 1024),
	}
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Returns true if the value was sent,
// false otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive is a helper function to block until a value is received from
// a channel, or timing out after t. ok will be false if the timeout occurred
// or if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
