// Package wav implements the decode collaborator: captured WAV blobs in,
// per-channel float samples out. It also encodes, so the capture side can hand
// whole WAV blobs to the core.
package wav

import (
	"bytes"
	"fmt"

	"github.com/aleksima/kaiku"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Codec implements kaiku.Decoder.
type Codec struct{}

func (Codec) Decode(data []byte) ([][]float32, int, error) { return Decode(data) }

// Decode parses a WAV blob into per-channel float32 samples in [-1, 1] and
// the sample rate. Malformed or empty input fails with an error wrapping
// kaiku.ErrDecodeFailed.
func Decode(data []byte) ([][]float32, int, error) {
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("empty input: %w", kaiku.ErrDecodeFailed)
	}
	d := wav.NewDecoder(bytes.NewReader(data))
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%v: %w", err, kaiku.ErrDecodeFailed)
	}
	channels := buf.Format.NumChannels
	if channels <= 0 || len(buf.Data) == 0 {
		return nil, 0, fmt.Errorf("no audio data: %w", kaiku.ErrDecodeFailed)
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float32(int(1) << (bitDepth - 1))
	frames := len(buf.Data) / channels
	samples := make([][]float32, channels)
	for c := range samples {
		samples[c] = make([]float32, frames)
		for i := 0; i < frames; i++ {
			samples[c][i] = float32(buf.Data[i*channels+c]) / scale
		}
	}
	return samples, buf.Format.SampleRate, nil
}

// Encode writes per-channel float32 samples into a 16-bit PCM WAV blob.
func Encode(samples [][]float32, sampleRate int) ([]byte, error) {
	if len(samples) == 0 || len(samples[0]) == 0 {
		return nil, fmt.Errorf("nothing to encode")
	}
	channels := len(samples)
	frames := len(samples[0])
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, frames*channels),
	}
	for c, ch := range samples {
		for i, s := range ch {
			buf.Data[i*channels+c] = int(clamp(s) * 32767)
		}
	}
	var ws writeSeeker
	e := wav.NewEncoder(&ws, sampleRate, 16, channels, 1)
	if err := e.Write(buf); err != nil {
		return nil, fmt.Errorf("wav encode: %w", err)
	}
	if err := e.Close(); err != nil {
		return nil, fmt.Errorf("wav encode: %w", err)
	}
	return ws.buf, nil
}

func clamp(s float32) float32 {
	return min(max(s, -1), 1)
}

// writeSeeker is the minimal in-memory io.WriteSeeker the wav encoder needs
// to patch up chunk sizes on Close.
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	if grow := w.pos + len(p) - len(w.buf); grow > 0 {
		w.buf = append(w.buf, make([]byte, grow)...)
	}
	copy(w.buf[w.pos:], p)
	w.pos += len(p)
	return len(p), nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case 0:
		pos = offset
	case 1:
		pos = int64(w.pos) + offset
	case 2:
		pos = int64(len(w.buf)) + offset
	}
	if pos < 0 {
		return 0, fmt.Errorf("seek before start")
	}
	w.pos = int(pos)
	return pos, nil
}
