package oto

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/aleksima/kaiku"
	"github.com/aleksima/kaiku/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 100

func testClip(t *testing.T, frames int, value float32) *kaiku.Clip {
	t.Helper()
	samples := make([]float32, frames)
	for i := range samples {
		samples[i] = value
	}
	clip, err := kaiku.NewClip([][]float32{samples}, testRate, 0)
	require.NoError(t, err)
	return clip
}

// render reads n frames and returns the left channel.
func render(t *testing.T, m *mixer, n int) []float32 {
	t.Helper()
	p := make([]byte, n*8)
	got, err := m.Read(p)
	require.NoError(t, err)
	require.Equal(t, len(p), got)
	left := make([]float32, n)
	for i := range left {
		left[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[i*8:]))
	}
	return left
}

func TestMixerRendersScheduledVoice(t *testing.T) {
	broker := engine.NewBroker()
	m := newMixer(broker, testRate)

	_, err := m.start(kaiku.VoiceSpec{
		Clip:       testClip(t, 4, 1),
		DeviceTime: 0.02, // frame 2
		Gain:       0.5,
	})
	require.NoError(t, err)

	left := render(t, m, 10)
	assert.Equal(t, []float32{0, 0, 0.5, 0.5, 0.5, 0.5, 0, 0, 0, 0}, left)
	assert.InDelta(t, 0.1, m.now(), 1e-9, "the clock advances by the rendered frames")

	// the natural end was reported
	select {
	case msg := <-broker.ToEngine:
		_, ok := msg.Data.(engine.VoiceEndedMsg)
		assert.True(t, ok)
	default:
		t.Fatal("no natural-end notification")
	}

	// the ended voice is gone
	assert.Equal(t, []float32{0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, render(t, m, 10))
}

func TestMixerStartRejections(t *testing.T) {
	m := newMixer(engine.NewBroker(), testRate)
	render(t, m, 10) // clock at 0.1s

	for _, spec := range []kaiku.VoiceSpec{
		{Clip: nil, DeviceTime: 1},
		{Clip: testClip(t, 4, 1), DeviceTime: 0.05},            // already passed
		{Clip: testClip(t, 4, 1), DeviceTime: 1, Offset: 0.05}, // past buffer end
		{Clip: testClip(t, 4, 1), DeviceTime: 1, Offset: -1},
	} {
		_, err := m.start(spec)
		assert.ErrorIs(t, err, kaiku.ErrSchedulingRejected)
	}
}

func TestMixerEndIdempotent(t *testing.T) {
	m := newMixer(engine.NewBroker(), testRate)
	id, err := m.start(kaiku.VoiceSpec{Clip: testClip(t, 50, 1), DeviceTime: 0, Gain: 1})
	require.NoError(t, err)

	m.end(id)
	m.end(id)
	assert.Equal(t, []float32{0, 0, 0, 0}, render(t, m, 4))
}

func TestMixerOffsetAndDuration(t *testing.T) {
	m := newMixer(engine.NewBroker(), testRate)
	clip := testClip(t, 50, 0)
	for i := range clip.Samples[0] {
		clip.Samples[0][i] = float32(i)
	}
	_, err := m.start(kaiku.VoiceSpec{
		Clip:       clip,
		DeviceTime: 0,
		Offset:     0.1, // frame 10
		Duration:   0.03,
		Gain:       1,
	})
	require.NoError(t, err)

	left := render(t, m, 5)
	assert.Equal(t, []float32{10, 11, 12, 0, 0}, left)
}

func TestMixerFades(t *testing.T) {
	m := newMixer(engine.NewBroker(), testRate)
	_, err := m.start(kaiku.VoiceSpec{
		Clip:       testClip(t, 10, 1),
		DeviceTime: 0,
		Gain:       1,
		FadeIn:     0.02,
		FadeOut:    0.02,
	})
	require.NoError(t, err)

	left := render(t, m, 10)
	assert.Equal(t, float32(0), left[0], "fade-in starts from silence")
	assert.Less(t, left[1], float32(1))
	assert.Equal(t, float32(1), left[5], "full gain mid-voice")
	assert.Less(t, left[9], float32(1), "fade-out ramps down")
}

type constReader struct {
	value float32
	err   error
}

func (r *constReader) ReadSamples(p []float32) (int, error) {
	for i := range p {
		p[i] = r.value
	}
	return len(p), r.err
}

func TestMixerPlayThrough(t *testing.T) {
	m := newMixer(engine.NewBroker(), testRate)
	stop := m.playThrough(&constReader{value: 0.25})

	left := render(t, m, 4)
	assert.Equal(t, []float32{0.25, 0.25, 0.25, 0.25}, left)

	stop()
	stop() // single-use, second call is a no-op
	assert.Equal(t, []float32{0, 0, 0, 0}, render(t, m, 4))
}

func TestMixerDropsFailedMonitor(t *testing.T) {
	m := newMixer(engine.NewBroker(), testRate)
	m.playThrough(&constReader{value: 0.25, err: errors.New("stream gone")})

	render(t, m, 4)
	assert.Equal(t, []float32{0, 0, 0, 0}, render(t, m, 4), "a failing monitor is dropped")
}
