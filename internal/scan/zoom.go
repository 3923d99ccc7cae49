package scan

import "sync"

// Zoom advisor tuning. Levels are camera zoom factors; the ratio is the
// detection-box share of the frame area below which the code is considered
// too small to decode reliably.
const (
	defaultZoomMin  = 1.0
	defaultZoomMax  = 5.0
	defaultZoomStep = 0.5
	smallBoxRatio   = 0.1
)

// ZoomAdvisor suggests camera zoom levels from per-frame detection
// geometry. A small detection steps the level in, a frame with no
// detection steps it back out towards neutral, and a comfortably sized
// detection holds the current level. Suggestions are advisory; the
// terminal applies them at its own pace.
//
// All methods are safe for concurrent use.
type ZoomAdvisor struct {
	mu    sync.Mutex
	level float64
}

// NewZoomAdvisor creates an advisor at the neutral zoom level.
func NewZoomAdvisor() *ZoomAdvisor {
	return &ZoomAdvisor{level: defaultZoomMin}
}

// Advise consumes one frame observation and returns the suggested zoom
// level. detection is nil when the frame contained no code. Frames with
// unusable dimensions leave the level unchanged.
func (z *ZoomAdvisor) Advise(frameWidth, frameHeight int, detection *Box) float64 {
	z.mu.Lock()
	defer z.mu.Unlock()

	if frameWidth <= 0 || frameHeight <= 0 {
		return z.level
	}

	switch {
	case detection == nil:
		z.level -= defaultZoomStep
	case float64(detection.Area())/float64(frameWidth*frameHeight) < smallBoxRatio:
		z.level += defaultZoomStep
	}

	if z.level < defaultZoomMin {
		z.level = defaultZoomMin
	}
	if z.level > defaultZoomMax {
		z.level = defaultZoomMax
	}
	return z.level
}

// Level returns the current suggested zoom level.
func (z *ZoomAdvisor) Level() float64 {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.level
}

// Reset returns the advisor to the neutral zoom level.
func (z *ZoomAdvisor) Reset() {
	z.mu.Lock()
	z.level = defaultZoomMin
	z.mu.Unlock()
}
