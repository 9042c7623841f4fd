package engine

import "github.com/aleksima/kaiku"

type (
	// cursor maintains the canonical project time. While playing, time is a
	// pure function of the device clock, time = dev.Now() - deviceZero,
	// recomputed on every frame and never independently mutated; while
	// stopped, time is the sole source of truth and may be set freely within
	// [0, limit].
	cursor struct {
		dev   kaiku.Device
		sched *scheduler

		time       float64
		playing    bool
		deviceZero float64 // device time at which project time was 0
		latency    float64
		limit      float64

		pps       float64 // pixels per second
		pageWidth int
		page      int
	}
)

func newCursor(dev kaiku.Device, sched *scheduler, cfg Config) *cursor {
	return &cursor{
		dev:       dev,
		sched:     sched,
		latency:   cfg.Latency,
		limit:     cfg.ProjectLimit,
		pps:       cfg.PixelsPerSecond,
		pageWidth: cfg.PageWidth,
	}
}

// play anchors the device clock to the current cursor position and schedules
// all overlapping clips. No-op if already playing.
func (c *cursor) play() {
	if c.playing {
		return
	}
	c.deviceZero = c.dev.Now() + c.latency - c.time
	c.sched.playFrom(c.time)
	c.playing = true
}

// stop ends all voices and freezes the cursor at its last computed value.
// No-op if already stopped.
func (c *cursor) stop() {
	if !c.playing {
		return
	}
	c.sched.stopAll()
	c.playing = false
}

// seek moves the cursor to t, clamped into [0, limit]. While stopped it just
// updates the time; while playing it re-schedules from the new position with
// jump cut semantics, no crossfade.
func (c *cursor) seek(t float64) {
	t = min(max(t, 0), c.limit)
	c.time = t
	if c.playing {
		c.sched.stopAll()
		c.deviceZero = c.dev.Now() + c.latency - c.time
		c.sched.playFrom(c.time)
	}
}

// frame recomputes the cursor from the device clock and tracks page boundary
// crossings. Returns whether the page changed on this frame. Forces a stop
// when the project limit is reached.
func (c *cursor) frame() (pageChanged bool) {
	if c.playing {
		c.time = c.dev.Now() - c.deviceZero
		if c.time >= c.limit {
			c.time = c.limit
			c.stop()
		}
	}
	return c.checkPage()
}

// checkPage tracks page boundary crossings without touching the time.
func (c *cursor) checkPage() bool {
	if page := c.pageOf(c.time); page != c.page {
		c.page = page
		return true
	}
	return false
}

// pageOf is a pure function of cursor time and pixel density.
func (c *cursor) pageOf(t float64) int {
	return int(t*c.pps) / c.pageWidth
}

// PagePos translates a project time into a page index and an x pixel position
// on that page. Exported for renderers; the engine itself only tracks the
// page index.
func PagePos(t, pixelsPerSecond float64, pageWidth int) (page, x int) {
	px := int(t * pixelsPerSecond)
	return px / pageWidth, px % pageWidth
}
