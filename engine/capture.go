package engine

import (
	"fmt"

	"github.com/aleksima/kaiku"
)

// Capture is a per-track state machine: idle → capturing → finalizing → idle.
// Stream acquisition, finalization and decoding may take unbounded time, so
// they run in goroutines and report back through the broker; the engine
// timeline never blocks on them, and no failure in one track's capture
// touches another track.

type (
	// streamMsg reports the outcome of a capture stream acquisition.
	streamMsg struct {
		track  int
		stream kaiku.CaptureStream
		err    error
	}

	// clipMsg reports the outcome of finalize+decode.
	clipMsg struct {
		track int
		clip  *kaiku.Clip
		err   error
	}

	// ClipCommittedMsg is published boxed to the renderer when a decoded clip
	// has been committed to the registry.
	ClipCommittedMsg struct {
		Track int
	}
)

// RecordStart begins capturing into the given track. The current cursor
// position is snapshotted as the prospective clip start. Fails with
// ErrAlreadyCapturing unless the track is idle.
func (e *Engine) RecordStart(t int) error {
	if t < 0 || t >= e.reg.NumTracks() {
		return fmt.Errorf("track %d out of range: %w", t, kaiku.ErrInvalidState)
	}
	st := &e.reg.tracks[t]
	if st.state != captureIdle {
		return kaiku.ErrAlreadyCapturing
	}
	st.state = capturing
	st.pendingStart = e.cur.time
	go func() {
		stream, err := e.capturer.Begin()
		TrySend(e.broker.ToEngine, MsgToEngine{Data: streamMsg{track: t, stream: stream, err: err}})
	}()
	return nil
}

// RecordStop stops capturing on the given track and hands the accumulated
// bytes to decode. No-op unless the track is capturing.
func (e *Engine) RecordStop(t int) {
	if t < 0 || t >= e.reg.NumTracks() {
		return
	}
	st := &e.reg.tracks[t]
	if st.state != capturing {
		return
	}
	st.state = finalizing
	e.teardownMonitor(st)
	if st.stream != nil {
		e.finalize(t, st.stream)
		st.stream = nil
	}
	// if the stream is still being acquired, handleStream finalizes it on
	// arrival
}

func (e *Engine) handleStream(m streamMsg) {
	st := &e.reg.tracks[m.track]
	if m.err != nil {
		e.alert("capture", fmt.Sprintf("track %d: %v", m.track, m.err), Error)
		st.state = captureIdle
		return
	}
	switch st.state {
	case capturing:
		st.stream = m.stream
		// monitoring passthrough: the performer hears the live input while
		// recording; torn down exactly once on stop
		st.stopMonitor = e.dev.PlayThrough(m.stream)
	case finalizing:
		// stop arrived before the stream did
		e.finalize(m.track, m.stream)
	default:
		// track went idle meanwhile; close the stream and drop the result
		go func() { m.stream.Finalize() }()
	}
}

func (e *Engine) finalize(t int, stream kaiku.CaptureStream) {
	go func() {
		data, err := stream.Finalize()
		if err != nil {
			TrySend(e.broker.ToEngine, MsgToEngine{Data: clipMsg{track: t, err: err}})
			return
		}
		samples, rate, err := e.decoder.Decode(data)
		if err != nil {
			TrySend(e.broker.ToEngine, MsgToEngine{Data: clipMsg{track: t, err: err}})
			return
		}
		clip, err := kaiku.NewClip(samples, rate, 0)
		TrySend(e.broker.ToEngine, MsgToEngine{Data: clipMsg{track: t, clip: clip, err: err}})
	}()
}

func (e *Engine) handleClip(m clipMsg) {
	st := &e.reg.tracks[m.track]
	st.state = captureIdle
	st.stream = nil
	if m.err != nil {
		// captured bytes are discarded; the track's prior clip is untouched
		e.alert("decode", fmt.Sprintf("track %d: %v", m.track, m.err), Error)
		return
	}
	m.clip.Start = st.pendingStart
	e.reg.SetClip(m.track, m.clip)
	e.publishData(ClipCommittedMsg{Track: m.track})
}

// teardownMonitor stops the monitoring passthrough. The stop func is nilled so
// the teardown happens exactly once regardless of which path gets here first.
func (e *Engine) teardownMonitor(st *track) {
	if st.stopMonitor != nil {
		st.stopMonitor()
		st.stopMonitor = nil
	}
}
