// Package l1video owns Layer 1 (Frames) of the break-up pipeline.
//
// Responsibilities: the grayscale Frame value, the single-pass FrameSource
// contract, frame-rate resolution and the fatal input errors.
// Key types: Frame, Source, SliceSource.
//
// Dependency rule: L1 depends on nothing above it. Decoding backends
// (internal/tbut/cv) implement Source; no cgo is allowed in this package.
package l1video
