package l4breakup

import "fmt"

// State is a sector's position in the sustained-drop state machine.
type State int

const (
	AboveThreshold State = iota
	CountingBelow
	ConfirmedBreak // terminal
)

func (s State) String() string {
	switch s {
	case AboveThreshold:
		return "above_threshold"
	case CountingBelow:
		return "counting_below"
	case ConfirmedBreak:
		return "confirmed_break"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Detector scans one sector's energy series frame by frame for the first
// run of at least sustain consecutive frames below baseline*dropRatio.
type Detector struct {
	threshold  float64
	sustain    int
	state      State
	below      int
	next       int // index of the next frame to be stepped
	breakFrame int
}

// NewDetector creates a detector for one sector. dropRatio multiplies the
// baseline: 0.4 means energy must fall to 40% of baseline.
func NewDetector(baseline, dropRatio float64, sustain int) *Detector {
	if sustain < 1 {
		sustain = 1
	}
	return &Detector{threshold: baseline * dropRatio, sustain: sustain, breakFrame: -1}
}

// Threshold returns the absolute energy threshold.
func (d *Detector) Threshold() float64 { return d.threshold }

// State returns the current state.
func (d *Detector) State() State { return d.state }

// Step consumes the energy of the next frame and returns the new state.
// Once ConfirmedBreak is reached further input is ignored.
func (d *Detector) Step(energy float64) State {
	i := d.next
	d.next++
	if d.state == ConfirmedBreak {
		return d.state
	}
	if energy < d.threshold {
		d.below++
		d.state = CountingBelow
		if d.below >= d.sustain {
			d.state = ConfirmedBreak
			d.breakFrame = i - d.sustain + 1
		}
		return d.state
	}
	d.below = 0
	d.state = AboveThreshold
	return d.state
}

// BreakFrame returns the first frame of the confirming run.
func (d *Detector) BreakFrame() (int, bool) {
	return d.breakFrame, d.state == ConfirmedBreak
}
