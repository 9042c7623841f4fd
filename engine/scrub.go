package engine

import (
	"errors"
	"time"

	"github.com/aleksima/kaiku"
	"github.com/sirupsen/logrus"
)

type (
	// scrub produces short, fade-enveloped audition slices while the cursor is
	// dragged, without committing to full playback. The critical invariant is
	// that at most one generation of scrub voices is ever alive: every trigger
	// first force-ends the previous generation, so fast dragging cannot pile
	// up overlapping voices. Triggers are throttled against the device clock,
	// the system's only backpressure mechanism.
	scrub struct {
		dev    kaiku.Device
		reg    *TrackRegistry
		broker *Broker
		log    logrus.FieldLogger

		latency  float64
		slice    float64
		fade     float64
		throttle float64

		active      map[kaiku.VoiceID]struct{} // current generation
		lastTrigger float64
		triggered   bool // at least one trigger since endScrub
	}

	// watchdogMsg force-ends one scrub voice slightly after its natural slice
	// duration, in case the natural-end notification never fires.
	watchdogMsg struct {
		id kaiku.VoiceID
	}
)

func newScrub(dev kaiku.Device, reg *TrackRegistry, broker *Broker, cfg Config, log logrus.FieldLogger) *scrub {
	return &scrub{
		dev:      dev,
		reg:      reg,
		broker:   broker,
		log:      log,
		latency:  cfg.Latency,
		slice:    cfg.ScrubSlice,
		fade:     cfg.ScrubFade,
		throttle: cfg.ScrubThrottle,
		active:   make(map[kaiku.VoiceID]struct{}),
	}
}

// scrubTo auditions whatever is under cursor time t: one slice per overlapping
// clip, read at the in-buffer offset matching t, enveloped with linear fades
// to prevent discontinuity clicks. Rate-limited to one trigger per throttle
// interval.
func (s *scrub) scrubTo(t float64) {
	now := s.dev.Now()
	if s.triggered && now-s.lastTrigger < s.throttle {
		return
	}
	s.lastTrigger = now
	s.triggered = true
	s.endAll()
	for i := 0; i < s.reg.NumTracks(); i++ {
		clip := s.reg.Clip(i)
		if clip == nil || !clip.Overlaps(t) {
			continue
		}
		spec := kaiku.VoiceSpec{
			Track:      i,
			Clip:       clip,
			DeviceTime: now + s.latency,
			Offset:     t - clip.Start,
			Duration:   s.slice,
			Gain:       s.reg.Gain(i),
			FadeIn:     s.fade,
			FadeOut:    s.fade,
		}
		id, err := s.dev.Start(spec)
		if errors.Is(err, kaiku.ErrSchedulingRejected) {
			// retry once from the start of the buffer
			spec.Offset = 0
			id, err = s.dev.Start(spec)
		}
		if err != nil {
			s.log.WithError(err).WithField("track", i).Debug("scrub slice rejected")
			continue
		}
		s.active[id] = struct{}{}
		s.watchdog(id)
	}
}

// endScrub force-ends the current generation and disables triggers until the
// next scrubTo. Safe to call with zero active voices.
func (s *scrub) endScrub() {
	s.endAll()
	s.triggered = false
}

func (s *scrub) endAll() {
	for id := range s.active {
		s.dev.End(id)
	}
	clear(s.active)
}

func (s *scrub) voiceEnded(id kaiku.VoiceID) {
	delete(s.active, id)
}

// watchdog independently force-ends the voice slightly after its slice should
// have played out. The force-end is idempotent, so firing after a natural end
// or a new generation is harmless.
func (s *scrub) watchdog(id kaiku.VoiceID) {
	after := time.Duration((s.latency + s.slice) * 1.5 * float64(time.Second))
	time.AfterFunc(after, func() {
		TrySend(s.broker.ToEngine, MsgToEngine{Data: watchdogMsg{id: id}})
	})
}

func (s *scrub) activeCount() int { return len(s.active) }
