package engine

import (
	"github.com/aleksima/kaiku"
	"github.com/sirupsen/logrus"
)

type (
	// scheduler turns "play everything from cursor time t" into absolute
	// device-clock start requests, one voice per clip overlapping [t, ∞), and
	// keeps the active-voice set for cancellation. Voices are created in
	// ascending track order but the order carries no meaning: every start
	// request is an absolute device-time target.
	scheduler struct {
		dev     kaiku.Device
		reg     *TrackRegistry
		latency float64
		log     logrus.FieldLogger

		active map[kaiku.VoiceID]int // voice -> track
	}
)

func newScheduler(dev kaiku.Device, reg *TrackRegistry, latency float64, log logrus.FieldLogger) *scheduler {
	return &scheduler{
		dev:     dev,
		reg:     reg,
		latency: latency,
		log:     log,
		active:  make(map[kaiku.VoiceID]int),
	}
}

// playFrom schedules one voice for every clip that overlaps the play window
// starting at cursor time t. Clips entirely in the past are skipped; clips
// already under the cursor start immediately at a mid-buffer offset; clips in
// the future start at their exact device-clock instant with zero offset. A
// device rejection skips that single voice and leaves the rest of the
// playback untouched.
func (s *scheduler) playFrom(t float64) {
	now := s.dev.Now()
	for i := 0; i < s.reg.NumTracks(); i++ {
		clip := s.reg.Clip(i)
		if clip == nil || clip.End() <= t {
			continue
		}
		spec := kaiku.VoiceSpec{
			Track:      i,
			Clip:       clip,
			DeviceTime: now + s.latency,
			Gain:       s.reg.Gain(i),
		}
		if clip.Start <= t {
			spec.Offset = t - clip.Start
		} else {
			spec.DeviceTime += clip.Start - t
		}
		id, err := s.dev.Start(spec)
		if err != nil {
			s.log.WithError(err).WithField("track", i).Warn("voice start rejected, skipping")
			continue
		}
		s.active[id] = i
	}
}

// stopAll forcibly ends every active voice and clears the bookkeeping.
// Idempotent: ending an already-ended voice is a no-op, and calling this with
// zero active voices changes nothing.
func (s *scheduler) stopAll() {
	for id := range s.active {
		s.dev.End(id)
	}
	clear(s.active)
}

// voiceEnded removes a naturally ended voice from the active set. Unknown ids
// (already force-ended, or scrub voices) are ignored.
func (s *scheduler) voiceEnded(id kaiku.VoiceID) {
	delete(s.active, id)
}

func (s *scheduler) activeCount() int { return len(s.active) }
