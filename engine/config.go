package engine

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Config holds the engine parameters. All durations are in seconds. The zero
// value is not usable; start from DefaultConfig.
type Config struct {
	SampleRate int `yaml:"samplerate"`
	NumTracks  int `yaml:"tracks"`

	// Latency is the fixed lookahead added to every device-clock start
	// request, so the device can honor precise start times despite dispatch
	// jitter.
	Latency float64 `yaml:"latency"`

	// ProjectLimit is the length of the composed timeline; the cursor is
	// clamped into [0, ProjectLimit] and playback stops when it is reached.
	ProjectLimit float64 `yaml:"projectlimit"`

	ScrubThrottle float64 `yaml:"scrubthrottle"` // min interval between scrub triggers
	ScrubSlice    float64 `yaml:"scrubslice"`    // audible slice length per trigger
	ScrubFade     float64 `yaml:"scrubfade"`     // linear fade-in/out per slice

	// PixelsPerSecond and PageWidth define the page geometry: the page index
	// is a pure function of cursor time, int(time*PixelsPerSecond)/PageWidth.
	PixelsPerSecond float64 `yaml:"pixelspersecond"`
	PageWidth       int     `yaml:"pagewidth"`

	FrameRate float64 `yaml:"framerate"` // visual refresh rate driven by Run
}

func DefaultConfig() Config {
	return Config{
		SampleRate:      44100,
		NumTracks:       10,
		Latency:         0.03,
		ProjectLimit:    300,
		ScrubThrottle:   0.04,
		ScrubSlice:      0.06,
		ScrubFade:       0.005,
		PixelsPerSecond: 100,
		PageWidth:       1000,
		FrameRate:       60,
	}
}

// ReadConfig reads yaml fields over the defaults, so a config file only needs
// to name what it changes.
func ReadConfig(r io.Reader) (Config, error) {
	c := DefaultConfig()
	if err := yaml.NewDecoder(r).Decode(&c); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("ReadConfig: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("samplerate should be > 0, got %d", c.SampleRate)
	}
	if c.NumTracks <= 0 {
		return fmt.Errorf("tracks should be > 0, got %d", c.NumTracks)
	}
	if c.Latency < 0 || c.ProjectLimit <= 0 {
		return fmt.Errorf("invalid timing config: latency %g, projectlimit %g", c.Latency, c.ProjectLimit)
	}
	if c.ScrubThrottle <= 0 || c.ScrubSlice <= 0 || c.ScrubFade < 0 || c.ScrubFade*2 > c.ScrubSlice {
		return fmt.Errorf("invalid scrub config: throttle %g, slice %g, fade %g", c.ScrubThrottle, c.ScrubSlice, c.ScrubFade)
	}
	if c.PixelsPerSecond <= 0 || c.PageWidth <= 0 {
		return fmt.Errorf("invalid page geometry: %g px/s, page width %d", c.PixelsPerSecond, c.PageWidth)
	}
	return nil
}
