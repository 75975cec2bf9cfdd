package l1video

import (
	"image"
	"math"
)

// Frame is one decoded grayscale raster. It is produced once by a Source
// and must not be modified by consumers.
type Frame struct {
	Index     int
	Timestamp float64 // seconds, Index / fps
	Gray      *image.Gray
}

// Width returns the frame width in pixels.
func (f Frame) Width() int {
	if f.Gray == nil {
		return 0
	}
	return f.Gray.Rect.Dx()
}

// Height returns the frame height in pixels.
func (f Frame) Height() int {
	if f.Gray == nil {
		return 0
	}
	return f.Gray.Rect.Dy()
}

// Source yields frames of one video in decode order, exactly once.
// Implementations are not restartable and not safe for concurrent use.
type Source interface {
	// FPS returns the resolved frame rate used for every timestamp.
	FPS() float64
	// Next returns the next frame. ok is false once the stream is exhausted.
	Next() (frame Frame, ok bool, err error)
	Close() error
}

// ValidRate reports whether r is usable as a frame rate.
func ValidRate(r float64) bool {
	return r > 0 && !math.IsNaN(r) && !math.IsInf(r, 0)
}

// ResolveFPS picks the container rate when valid, then the caller hint,
// then the configured default.
func ResolveFPS(declared, hint, fallback float64) (fps float64, source string) {
	switch {
	case ValidRate(declared):
		return declared, "container"
	case ValidRate(hint):
		return hint, "hint"
	default:
		return fallback, "default"
	}
}

// Timestamp converts a frame index to seconds.
func Timestamp(index int, fps float64) float64 {
	return float64(index) / fps
}

// OpenOptions carries the caller's frame-rate hint and the configured
// default to a decoding backend.
type OpenOptions struct {
	FPSHint    float64
	DefaultFPS float64
}
