// Package l4breakup owns Layer 4 (Events) of the break-up pipeline.
//
// Responsibilities: the per-sector resting baseline, the sustained-drop
// state machine, and aggregation of sector break times into the reported
// break-up time.
// Key types: Params, Detector, BreakEvent, Result.
//
// Dependency rule: L4 may depend on L1-L3. It never touches pixels, so
// every rule here is testable from synthetic energy series alone.
package l4breakup
