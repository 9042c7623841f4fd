// Package portaudio implements the capture collaborator on the system's
// default input device. Captured audio accumulates in memory, is readable
// live for monitoring, and is handed to the core as one WAV blob on finalize.
package portaudio

import (
	"fmt"
	"sync"

	"github.com/aleksima/kaiku"
	"github.com/aleksima/kaiku/wav"
	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 512

type Capturer struct {
	sampleRate int
}

// NewCapturer initializes portaudio. Close terminates it; every Begin/Finalize
// pair in between shares the one initialization.
func NewCapturer(sampleRate int) (*Capturer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: %v: %w", err, kaiku.ErrCaptureUnavailable)
	}
	return &Capturer{sampleRate: sampleRate}, nil
}

func (c *Capturer) Close() error { return portaudio.Terminate() }

// Begin opens and starts the default mono input stream. Fails with an error
// wrapping ErrCaptureUnavailable when no device can be acquired.
func (c *Capturer) Begin() (kaiku.CaptureStream, error) {
	s := &captureStream{sampleRate: c.sampleRate}
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(c.sampleRate), framesPerBuffer, s.collect)
	if err != nil {
		return nil, fmt.Errorf("open input: %v: %w", err, kaiku.ErrCaptureUnavailable)
	}
	s.stream = stream
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start input: %v: %w", err, kaiku.ErrCaptureUnavailable)
	}
	return s, nil
}

type captureStream struct {
	stream     *portaudio.Stream
	sampleRate int

	mu   sync.Mutex
	buf  []float32
	rpos int // monitor read position; never rewinds
	done bool
}

func (s *captureStream) collect(in []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		s.buf = append(s.buf, in...)
	}
}

// ReadSamples drains captured samples for the monitoring passthrough. Never
// blocks; returns 0 when nothing new has arrived.
func (s *captureStream) ReadSamples(p []float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(p, s.buf[s.rpos:])
	s.rpos += n
	return n, nil
}

// Finalize stops the capture and returns everything captured as one WAV blob.
func (s *captureStream) Finalize() ([]byte, error) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil, fmt.Errorf("capture already finalized: %w", kaiku.ErrInvalidState)
	}
	s.done = true
	buf := s.buf
	s.mu.Unlock()

	// Stop flushes pending callbacks, so it must not run under the mutex.
	if err := s.stream.Stop(); err != nil {
		s.stream.Close()
		return nil, fmt.Errorf("stop input: %w", err)
	}
	if err := s.stream.Close(); err != nil {
		return nil, fmt.Errorf("close input: %w", err)
	}
	if len(buf) == 0 {
		return nil, nil // nothing captured; the decoder rejects the empty blob
	}
	return wav.Encode([][]float32{buf}, s.sampleRate)
}
