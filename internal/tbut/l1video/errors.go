package l1video

import (
	"errors"
	"fmt"
)

var (
	// ErrVideoOpen matches any VideoOpenError via errors.Is.
	ErrVideoOpen = errors.New("video cannot be opened")
	// ErrEmptyVideo matches any EmptyVideoError via errors.Is.
	ErrEmptyVideo = errors.New("video has no decodable frames")
)

// VideoOpenError reports a container that could not be opened or decoded.
type VideoOpenError struct {
	Path string
	Err  error
}

func (e *VideoOpenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("open video %q: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("open video %q: %v", e.Path, ErrVideoOpen)
}

func (e *VideoOpenError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrVideoOpen}
	}
	return []error{ErrVideoOpen, e.Err}
}

// EmptyVideoError reports a stream that yielded zero frames.
type EmptyVideoError struct {
	Path string
}

func (e *EmptyVideoError) Error() string {
	return fmt.Sprintf("video %q: %v", e.Path, ErrEmptyVideo)
}

func (e *EmptyVideoError) Unwrap() error { return ErrEmptyVideo }
