package l1video

import (
	"errors"
	"image"
)

// SliceSource replays in-memory rasters as a Source. It is used for
// synthetic fixtures and for replaying frames already held by a caller.
type SliceSource struct {
	fps    float64
	frames []*image.Gray
	next   int
	closed bool
}

// NewSliceSource wraps frames at the given rate. An invalid rate falls back
// to fallback, mirroring the container rule.
func NewSliceSource(frames []*image.Gray, fps, fallback float64) *SliceSource {
	rate, _ := ResolveFPS(fps, 0, fallback)
	return &SliceSource{fps: rate, frames: frames}
}

func (s *SliceSource) FPS() float64 { return s.fps }

func (s *SliceSource) Next() (Frame, bool, error) {
	if s.closed {
		return Frame{}, false, errors.New("slice source closed")
	}
	if s.next >= len(s.frames) {
		return Frame{}, false, nil
	}
	i := s.next
	s.next++
	return Frame{Index: i, Timestamp: Timestamp(i, s.fps), Gray: s.frames[i]}, true, nil
}

func (s *SliceSource) Close() error {
	s.closed = true
	return nil
}
