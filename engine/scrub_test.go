package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrubSliceParameters(t *testing.T) {
	cfg := testConfig()
	e, dev, _ := testEngine(t, cfg)
	e.Registry().SetClip(2, mustClip(t, 1, 4))

	dev.now = 7
	e.ScrubTo(2.5)
	require.Len(t, dev.started, 1)
	v := dev.started[0]
	assert.Equal(t, 2, v.Track)
	assert.InDelta(t, 1.5, v.Offset, 1e-9)
	assert.InDelta(t, 7+cfg.Latency, v.DeviceTime, 1e-9)
	assert.InDelta(t, cfg.ScrubSlice, v.Duration, 1e-9)
	assert.InDelta(t, cfg.ScrubFade, v.FadeIn, 1e-9)
	assert.InDelta(t, cfg.ScrubFade, v.FadeOut, 1e-9)
	assert.InDelta(t, 2.5, e.Time(), 1e-9, "the cursor follows the pointer")
}

// After N rapid triggers, at most one generation of scrub voices is alive.
func TestScrubSingleGeneration(t *testing.T) {
	cfg := testConfig()
	e, dev, _ := testEngine(t, cfg)
	e.Registry().SetClip(0, mustClip(t, 0, 50))
	e.Registry().SetClip(1, mustClip(t, 0, 50))

	for i := 0; i < 10; i++ {
		dev.now += cfg.ScrubThrottle + 0.001
		e.ScrubTo(float64(i))
		assert.LessOrEqual(t, len(dev.active), 2, "only one generation may be alive")
		assert.LessOrEqual(t, e.ActiveVoices(), 2)
	}
}

func TestScrubThrottle(t *testing.T) {
	cfg := testConfig()
	e, dev, _ := testEngine(t, cfg)
	e.Registry().SetClip(0, mustClip(t, 0, 50))

	e.ScrubTo(1)
	require.Len(t, dev.started, 1)

	// within the throttle window: cursor still moves, no new voices
	dev.now += cfg.ScrubThrottle / 2
	e.ScrubTo(2)
	assert.Len(t, dev.started, 1)
	assert.InDelta(t, 2.0, e.Time(), 1e-9)

	dev.now += cfg.ScrubThrottle
	e.ScrubTo(3)
	assert.Len(t, dev.started, 2)
}

func TestScrubSkipsNonOverlapping(t *testing.T) {
	e, dev, _ := testEngine(t, testConfig())
	e.Registry().SetClip(0, mustClip(t, 5, 1))

	e.ScrubTo(2)
	assert.Empty(t, dev.started)

	dev.now += 1
	e.ScrubTo(5.5)
	assert.Len(t, dev.started, 1)
}

func TestScrubRejectionRetriesAtBufferStart(t *testing.T) {
	e, dev, _ := testEngine(t, testConfig())
	e.Registry().SetClip(0, mustClip(t, 0, 10))

	dev.rejects = 1
	e.ScrubTo(4)
	require.Len(t, dev.started, 1)
	assert.Zero(t, dev.started[0].Offset, "retry falls back to a zero in-buffer offset")
}

func TestEndScrubIdempotent(t *testing.T) {
	e, dev, _ := testEngine(t, testConfig())
	e.Registry().SetClip(0, mustClip(t, 0, 10))

	e.EndScrub() // nothing active
	assert.Zero(t, e.ActiveVoices())

	e.ScrubTo(1)
	require.Equal(t, 1, e.ActiveVoices())
	e.EndScrub()
	e.EndScrub()
	assert.Zero(t, e.ActiveVoices())
	assert.Empty(t, dev.active)

	// next scrubTo triggers immediately again, untrottled
	e.ScrubTo(2)
	assert.Equal(t, 1, e.ActiveVoices())
}

func TestScrubWatchdog(t *testing.T) {
	cfg := testConfig()
	cfg.ScrubSlice = 0.01
	cfg.Latency = 0.001
	e, dev, _ := testEngine(t, cfg)
	e.Registry().SetClip(0, mustClip(t, 0, 10))

	e.ScrubTo(1)
	require.Len(t, dev.active, 1)

	// the natural-end notification never fires; the watchdog force-ends the
	// voice on its own
	deadline := time.Now().Add(time.Second)
	for e.ActiveVoices() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("watchdog did not fire")
		}
		e.Frame()
		time.Sleep(time.Millisecond)
	}
	assert.Empty(t, dev.active)
}

func TestPlayEndsScrubVoices(t *testing.T) {
	e, dev, _ := testEngine(t, testConfig())
	e.Registry().SetClip(0, mustClip(t, 0, 10))

	e.ScrubTo(1)
	require.Len(t, dev.active, 1)
	e.Play()
	assert.Len(t, dev.active, 1, "the scrub voice was ended, the playback voice remains")
	assert.Equal(t, 1, e.ActiveVoices())
}
