package oto

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/aleksima/kaiku"
	"github.com/aleksima/kaiku/engine"
)

type (
	// mixer is the shared output mixing stage. It implements io.Reader for the
	// oto player: every Read renders the scheduled voices and the monitor
	// passthroughs into interleaved stereo float32 LE and advances the device
	// clock by the rendered frame count. Nothing but gain scaling happens
	// here, so voices and monitors need no ordering discipline beyond being
	// registered before they are due.
	//
	// The mixer is the concurrency boundary of the module: the audio thread
	// calls Read while the engine timeline schedules and ends voices, so the
	// voice table is guarded by a mutex. The clock is atomic so Now never
	// contends with rendering.
	mixer struct {
		broker *engine.Broker
		rate   int
		pos    atomic.Int64 // frames rendered so far

		mu       sync.Mutex
		voices   map[kaiku.VoiceID]*mixVoice
		monitors map[int64]kaiku.SampleReader
		nextID   int64
		tmp      []float32
	}

	// mixVoice is one scheduled emission, with everything precomputed in
	// device frames at schedule time. The clip's Start field is deliberately
	// not referenced after scheduling: moving a clip never affects in-flight
	// voices.
	mixVoice struct {
		samples    [][]float32
		gain       float32
		startFrame int64   // device frame at which the voice begins
		srcOffset  int64   // first clip frame to play
		length     int64   // length in device frames
		step       float64 // clip frames advanced per device frame
		fadeIn     int64   // fade lengths in device frames
		fadeOut    int64
	}
)

func newMixer(broker *engine.Broker, rate int) *mixer {
	return &mixer{
		broker:   broker,
		rate:     rate,
		voices:   make(map[kaiku.VoiceID]*mixVoice),
		monitors: make(map[int64]kaiku.SampleReader),
	}
}

func (m *mixer) now() float64 {
	return float64(m.pos.Load()) / float64(m.rate)
}

func (m *mixer) start(spec kaiku.VoiceSpec) (kaiku.VoiceID, error) {
	if spec.Clip == nil || spec.Clip.Frames() == 0 {
		return 0, fmt.Errorf("voice has no buffer: %w", kaiku.ErrSchedulingRejected)
	}
	startFrame := int64(spec.DeviceTime * float64(m.rate))
	if startFrame < m.pos.Load() {
		return 0, fmt.Errorf("start time %.3fs already passed: %w", spec.DeviceTime, kaiku.ErrSchedulingRejected)
	}
	if spec.Offset < 0 || spec.Offset >= spec.Clip.Duration() {
		return 0, fmt.Errorf("offset %.3fs outside buffer: %w", spec.Offset, kaiku.ErrSchedulingRejected)
	}
	step := float64(spec.Clip.SampleRate) / float64(m.rate)
	srcOffset := int64(spec.Offset * float64(spec.Clip.SampleRate))
	length := int64(float64(int64(spec.Clip.Frames())-srcOffset) / step)
	if spec.Duration > 0 {
		length = min(length, int64(spec.Duration*float64(m.rate)))
	}
	v := &mixVoice{
		samples:    spec.Clip.Samples,
		gain:       float32(spec.Gain),
		startFrame: startFrame,
		srcOffset:  srcOffset,
		length:     length,
		step:       step,
		fadeIn:     int64(spec.FadeIn * float64(m.rate)),
		fadeOut:    int64(spec.FadeOut * float64(m.rate)),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := kaiku.VoiceID(m.nextID)
	m.voices[id] = v
	return id, nil
}

func (m *mixer) end(id kaiku.VoiceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.voices, id)
}

func (m *mixer) playThrough(src kaiku.SampleReader) (stop func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	key := m.nextID
	m.monitors[key] = src
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.monitors, key)
		})
	}
}

// Read renders the next len(p)/8 frames. Always fills the whole buffer;
// silence is just the absence of voices.
func (m *mixer) Read(p []byte) (int, error) {
	frames := len(p) / 8
	pos := m.pos.Load()

	left := make([]float32, frames)
	right := make([]float32, frames)

	m.mu.Lock()
	for id, v := range m.voices {
		if ended := v.mix(left, right, pos); ended {
			delete(m.voices, id)
			engine.TrySend(m.broker.ToEngine, engine.MsgToEngine{Data: engine.VoiceEndedMsg{ID: id}})
		}
	}
	if len(m.tmp) < frames {
		m.tmp = make([]float32, frames)
	}
	for key, mon := range m.monitors {
		n, err := mon.ReadSamples(m.tmp[:frames])
		for i := 0; i < n; i++ {
			left[i] += m.tmp[i]
			right[i] += m.tmp[i]
		}
		if err != nil {
			delete(m.monitors, key)
		}
	}
	m.mu.Unlock()

	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint32(p[i*8:], math.Float32bits(left[i]))
		binary.LittleEndian.PutUint32(p[i*8+4:], math.Float32bits(right[i]))
	}
	m.pos.Add(int64(frames))
	return frames * 8, nil
}

// mix renders the voice's overlap with the block starting at device frame pos
// and reports whether the voice ended within the block.
func (v *mixVoice) mix(left, right []float32, pos int64) (ended bool) {
	frames := int64(len(left))
	from := max(v.startFrame-pos, 0)
	to := min(v.startFrame+v.length-pos, frames)
	l, r := v.samples[0], v.samples[0]
	if len(v.samples) > 1 {
		r = v.samples[1]
	}
	for i := from; i < to; i++ {
		played := pos + i - v.startFrame
		src := v.srcOffset + int64(float64(played)*v.step)
		if src >= int64(len(l)) {
			break
		}
		g := v.gain * v.envelope(played)
		left[i] += l[src] * g
		right[i] += r[src] * g
	}
	return v.startFrame+v.length <= pos+frames
}

// envelope returns the linear fade gain at the given frame since voice start.
func (v *mixVoice) envelope(played int64) float32 {
	g := float32(1)
	if v.fadeIn > 0 && played < v.fadeIn {
		g *= float32(played) / float32(v.fadeIn)
	}
	if rem := v.length - played; v.fadeOut > 0 && rem < v.fadeOut {
		g *= float32(rem) / float32(v.fadeOut)
	}
	return g
}
