package kaiku

import "github.com/viterin/vek/vek32"

// Peaks reduces one channel of sample data into n peak magnitudes, one per
// equal-width window, for waveform drawing. Renderers are expected to call
// this instead of walking the raw buffers. Returns nil if there is nothing to
// reduce.
func Peaks(samples []float32, n int) []float32 {
	if len(samples) == 0 || n <= 0 {
		return nil
	}
	if n > len(samples) {
		n = len(samples)
	}
	ret := make([]float32, n)
	tmp := make([]float32, 0, (len(samples)+n-1)/n)
	for i := 0; i < n; i++ {
		start := i * len(samples) / n
		end := (i + 1) * len(samples) / n
		if end <= start {
			continue
		}
		tmp = tmp[:end-start]
		vek32.Abs_Into(tmp, samples[start:end])
		ret[i] = vek32.Max(tmp)
	}
	return ret
}

// ClipPeaks reduces every channel of a clip with Peaks.
func ClipPeaks(c *Clip, n int) [][]float32 {
	if c == nil {
		return nil
	}
	ret := make([][]float32, len(c.Samples))
	for i, ch := range c.Samples {
		ret[i] = Peaks(ch, n)
	}
	return ret
}
