package engine

import (
	"context"
	"time"

	"github.com/aleksima/kaiku"
	"github.com/sirupsen/logrus"
)

type (
	// Engine is the coordinator owning all mutable core state: the track
	// registry, the project clock, the playback scheduler, the scrub engine
	// and the per-track capture sessions. All of its methods must be called
	// from one goroutine — the cooperative timeline — which also pumps the
	// broker, either through Run or by calling Frame at the visual refresh
	// rate. Capture, decode and the audio device run concurrently but only
	// communicate with the engine through broker messages.
	Engine struct {
		broker   *Broker
		dev      kaiku.Device
		capturer kaiku.Capturer
		decoder  kaiku.Decoder
		log      logrus.FieldLogger

		cfg   Config
		reg   *TrackRegistry
		sched *scheduler
		cur   *cursor
		scr   *scrub
	}
)

func NewEngine(broker *Broker, dev kaiku.Device, capturer kaiku.Capturer, decoder kaiku.Decoder, cfg Config, log logrus.FieldLogger) *Engine {
	reg := NewTrackRegistry(cfg.NumTracks)
	sched := newScheduler(dev, reg, cfg.Latency, log)
	return &Engine{
		broker:   broker,
		dev:      dev,
		capturer: capturer,
		decoder:  decoder,
		log:      log,
		cfg:      cfg,
		reg:      reg,
		sched:    sched,
		cur:      newCursor(dev, sched, cfg),
		scr:      newScrub(dev, reg, broker, cfg, log),
	}
}

// Registry returns the track registry. The registry shares the engine's
// single-owner rule.
func (e *Engine) Registry() *TrackRegistry { return e.reg }

// Time returns the project cursor time as of the last frame.
func (e *Engine) Time() float64 { return e.cur.time }

// Playing reports whether the transport is running.
func (e *Engine) Playing() bool { return e.cur.playing }

// Page returns the current page index.
func (e *Engine) Page() int { return e.cur.page }

// ActiveVoices returns the number of playback and scrub voices the engine
// still accounts as alive.
func (e *Engine) ActiveVoices() int { return e.sched.activeCount() + e.scr.activeCount() }

// Play starts playback from the current cursor position. No-op if already
// playing.
func (e *Engine) Play() {
	e.scr.endScrub()
	e.cur.play()
	e.publish(false)
}

// Stop stops playback, freezing the cursor at its last computed value. No-op
// if already stopped.
func (e *Engine) Stop() {
	e.cur.stop()
	e.publish(false)
}

// Seek moves the cursor to t, clamped into [0, ProjectLimit]. While playing
// this is a jump cut: all voices are stopped and playback re-scheduled from
// the new position.
func (e *Engine) Seek(t float64) {
	e.cur.seek(t)
	e.publish(e.cur.checkPage())
}

// ScrubTo auditions the audio under cursor time t and moves the cursor there
// without starting playback.
func (e *Engine) ScrubTo(t float64) {
	if e.cur.playing {
		return
	}
	e.scr.scrubTo(t)
	e.cur.seek(t)
	e.publish(e.cur.checkPage())
}

// EndScrub ends all scrub voices and disables triggers until the next
// ScrubTo.
func (e *Engine) EndScrub() { e.scr.endScrub() }

// Frame advances the engine by one visual frame: drains pending broker
// messages, recomputes the cursor from the device clock and publishes the
// renderer state.
func (e *Engine) Frame() {
	e.ProcessMessages()
	e.publish(e.cur.frame())
}

// ProcessMessages drains ToEngine without blocking and dispatches the
// notifications to their components.
func (e *Engine) ProcessMessages() {
loop:
	for {
		select {
		case msg := <-e.broker.ToEngine:
			switch m := msg.Data.(type) {
			case VoiceEndedMsg:
				e.sched.voiceEnded(m.ID)
				e.scr.voiceEnded(m.ID)
			case watchdogMsg:
				e.dev.End(m.id)
				e.scr.voiceEnded(m.id)
			case streamMsg:
				e.handleStream(m)
			case clipMsg:
				e.handleClip(m)
			case TransportMsg:
				e.handleTransport(m)
			default:
				// ignore unknown messages
			}
		default:
			break loop
		}
	}
}

func (e *Engine) handleTransport(m TransportMsg) {
	switch m.Kind {
	case TransportPlay:
		e.Play()
	case TransportStop:
		e.Stop()
	case TransportRecord:
		if e.reg.Capturing(m.Track) {
			e.RecordStop(m.Track)
		} else if err := e.RecordStart(m.Track); err != nil {
			e.log.WithError(err).WithField("track", m.Track).Debug("remote record ignored")
		}
	}
}

// Run drives the engine at the configured frame rate until the context is
// cancelled. It is a convenience wrapper for binaries; tests and embedders
// can call Frame themselves instead.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / e.cfg.FrameRate))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.Stop()
			return
		case <-ticker.C:
			e.Frame()
		}
	}
}

// alert surfaces a user-facing notification to the renderer; failures never
// panic or abort the timeline.
func (e *Engine) alert(name, message string, priority AlertPriority) {
	e.log.WithField("alert", name).Warn(message)
	e.publishData(Alert{Name: name, Message: message, Priority: priority})
}

func (e *Engine) publish(pageChanged bool) {
	TrySend(e.broker.ToRenderer, MsgToRenderer{
		Time:        e.cur.time,
		Page:        e.cur.page,
		Playing:     e.cur.playing,
		PageChanged: pageChanged,
	})
}

func (e *Engine) publishData(data any) {
	TrySend(e.broker.ToRenderer, MsgToRenderer{
		Time:    e.cur.time,
		Page:    e.cur.page,
		Playing: e.cur.playing,
		Data:    data,
	})
}
