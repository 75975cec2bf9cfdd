// Package l2polar owns Layer 2 (Geometry) of the break-up pipeline.
//
// Responsibilities: the per-run ring Calibration, the working radius clip
// rule, and the Cartesian -> polar unwrap of each frame.
// Key types: Calibration, PolarImage, Projector.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
package l2polar
