package engine_test

import (
	"io"
	"testing"
	"time"

	"github.com/aleksima/kaiku"
	"github.com/aleksima/kaiku/engine"
	"github.com/sirupsen/logrus"
)

// fakeDevice is a manually advanced device clock with full bookkeeping of
// every start request, so tests can assert the exact device times and offsets
// the engine computed.
type fakeDevice struct {
	now    float64
	nextID kaiku.VoiceID

	started []kaiku.VoiceSpec                 // every accepted start, in order
	active  map[kaiku.VoiceID]kaiku.VoiceSpec // currently playing
	ends    int                               // End calls, including no-ops

	rejects int // upcoming Start calls to reject

	monitors     int
	monitorStops int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{active: make(map[kaiku.VoiceID]kaiku.VoiceSpec)}
}

func (d *fakeDevice) Now() float64 { return d.now }

func (d *fakeDevice) Start(spec kaiku.VoiceSpec) (kaiku.VoiceID, error) {
	if d.rejects > 0 {
		d.rejects--
		return 0, kaiku.ErrSchedulingRejected
	}
	d.nextID++
	d.started = append(d.started, spec)
	d.active[d.nextID] = spec
	return d.nextID, nil
}

func (d *fakeDevice) End(id kaiku.VoiceID) {
	d.ends++
	delete(d.active, id)
}

func (d *fakeDevice) PlayThrough(src kaiku.SampleReader) (stop func()) {
	d.monitors++
	return func() { d.monitorStops++ }
}

func (d *fakeDevice) Close() error { return nil }

// fakeCapturer returns a canned stream or error.
type fakeCapturer struct {
	err    error
	stream *fakeStream
}

func (c *fakeCapturer) Begin() (kaiku.CaptureStream, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.stream, nil
}

type fakeStream struct {
	data      []byte
	err       error
	finalized int
}

func (s *fakeStream) ReadSamples(p []float32) (int, error) { return 0, nil }

func (s *fakeStream) Finalize() ([]byte, error) {
	s.finalized++
	return s.data, s.err
}

// fakeDecoder maps non-empty blobs to a fixed mono buffer.
type fakeDecoder struct {
	err    error
	frames int
	rate   int
}

func (d *fakeDecoder) Decode(data []byte) ([][]float32, int, error) {
	if d.err != nil {
		return nil, 0, d.err
	}
	if len(data) == 0 {
		return nil, 0, kaiku.ErrDecodeFailed
	}
	return [][]float32{make([]float32, d.frames)}, d.rate, nil
}

func testConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Latency = 0.03
	cfg.ProjectLimit = 100
	return cfg
}

func testEngine(t *testing.T, cfg engine.Config) (*engine.Engine, *fakeDevice, *engine.Broker) {
	t.Helper()
	e, dev, broker, _ := testEngineCapture(t, cfg, &fakeCapturer{stream: &fakeStream{data: []byte("blob")}})
	return e, dev, broker
}

// testEngineCapture wires a caller-controlled capturer, for tests poking at
// the capture state machine.
func testEngineCapture(t *testing.T, cfg engine.Config, cap *fakeCapturer) (*engine.Engine, *fakeDevice, *engine.Broker, *fakeDecoder) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	broker := engine.NewBroker()
	dev := newFakeDevice()
	dec := &fakeDecoder{frames: 10, rate: 10}
	e := engine.NewEngine(broker, dev, cap, dec, cfg, log)
	return e, dev, broker, dec
}

// mustClip builds a clip of the given start and duration at a low sample rate
// to keep the buffers tiny.
func mustClip(t *testing.T, start, duration float64) *kaiku.Clip {
	t.Helper()
	const rate = 100
	clip, err := kaiku.NewClip([][]float32{make([]float32, int(duration*rate))}, rate, start)
	if err != nil {
		t.Fatal(err)
	}
	return clip
}

// pump waits until at least one message is queued for the engine and
// processes everything that has arrived.
func pump(t *testing.T, e *engine.Engine, broker *engine.Broker) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for len(broker.ToEngine) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no message arrived for the engine")
		}
		time.Sleep(time.Millisecond)
	}
	e.ProcessMessages()
}

func sendVoiceEnded(broker *engine.Broker, id kaiku.VoiceID) {
	engine.TrySend(broker.ToEngine, engine.MsgToEngine{Data: engine.VoiceEndedMsg{ID: id}})
}

// drainRenderer empties ToRenderer and returns the messages.
func drainRenderer(broker *engine.Broker) []engine.MsgToRenderer {
	var msgs []engine.MsgToRenderer
	for {
		select {
		case m := <-broker.ToRenderer:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}
