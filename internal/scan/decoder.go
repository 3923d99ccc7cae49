package scan

import (
	"context"
	"errors"
)

// ErrNoCode is returned by a Decoder when the image contains no readable
// code. It is an expected outcome, not a failure of the decoder itself.
var ErrNoCode = errors.New("scan: no code found")

// Box is a detection bounding box in frame pixel coordinates.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns the box area in square pixels. Degenerate boxes report 0.
func (b Box) Area() int {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// Result is a successful decode: the code text plus, when the decoder
// provides one, the bounding box of the detection.
type Result struct {
	Text   string `json:"text"`
	Bounds *Box   `json:"bounds,omitempty"`
}

// Decoder extracts a code from a still image.
//
// Implementations return ErrNoCode when the image holds no readable code,
// and respect ctx cancellation and deadlines. Any other error means the
// decode itself failed (worker unreachable, malformed image).
type Decoder interface {
	Decode(ctx context.Context, image []byte) (*Result, error)
}

// DecoderFunc adapts a plain function to the Decoder interface.
type DecoderFunc func(ctx context.Context, image []byte) (*Result, error)

// Decode calls f.
func (f DecoderFunc) Decode(ctx context.Context, image []byte) (*Result, error) {
	return f(ctx, image)
}
