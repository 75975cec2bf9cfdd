package l4breakup

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/tearfilm.report/internal/tbut/l1video"
	"github.com/banshee-data/tearfilm.report/internal/tbut/l3energy"
)

// NoBreak is the reported value when no sector shows a sustained drop.
const NoBreak = -1.0

// Params configures baseline estimation and break detection.
type Params struct {
	BaselineSeconds float64
	DropRatio       float64
	SustainFrames   int
}

// BreakEvent is one sector's outcome. Frame is -1 when Found is false.
type BreakEvent struct {
	Sector  int     `json:"sector"`
	Found   bool    `json:"found"`
	Frame   int     `json:"frame"`
	Seconds float64 `json:"seconds"`
}

// Result is the aggregated break-up time.
//
// Seconds is the mean of the detected sector times, or NoBreak. Earliest is
// the first detected sector time and is informational only: the reported
// metric is the mean.
type Result struct {
	Seconds  float64      `json:"seconds"`
	Detected int          `json:"detected_sectors"`
	Earliest float64      `json:"earliest_seconds"`
	Baseline []float64    `json:"baseline"`
	Events   []BreakEvent `json:"events"`
}

// Found reports whether any sector broke.
func (r Result) Found() bool { return r.Detected > 0 }

// Detect runs one Detector per sector over the whole series.
func Detect(m *l3energy.Matrix, baseline []float64, dropRatio float64, sustain int, fps float64) []BreakEvent {
	events := make([]BreakEvent, m.Sectors())
	for s := range events {
		d := NewDetector(baseline[s], dropRatio, sustain)
		for i := 0; i < m.Frames(); i++ {
			if d.Step(m.At(i, s)) == ConfirmedBreak {
				break
			}
		}
		ev := BreakEvent{Sector: s, Frame: -1, Seconds: NoBreak}
		if f, ok := d.BreakFrame(); ok {
			ev.Found = true
			ev.Frame = f
			ev.Seconds = l1video.Timestamp(f, fps)
		}
		events[s] = ev
	}
	return events
}

// Aggregate reduces sector events to the reported value.
func Aggregate(events []BreakEvent) (seconds, earliest float64, detected int) {
	times := make([]float64, 0, len(events))
	earliest = NoBreak
	for _, ev := range events {
		if !ev.Found {
			continue
		}
		times = append(times, ev.Seconds)
		if earliest == NoBreak || ev.Seconds < earliest {
			earliest = ev.Seconds
		}
	}
	if len(times) == 0 {
		return NoBreak, NoBreak, 0
	}
	return stat.Mean(times, nil), earliest, len(times)
}

// Analyze computes the baseline, then scans for breaks and aggregates.
func Analyze(m *l3energy.Matrix, fps float64, p Params) (Result, error) {
	if m == nil || m.Frames() == 0 {
		return Result{}, fmt.Errorf("empty energy series")
	}
	if !l1video.ValidRate(fps) {
		return Result{}, fmt.Errorf("invalid frame rate %v", fps)
	}
	window := BaselineWindow(p.BaselineSeconds, fps, m.Frames())
	baseline := Baseline(m, window)
	events := Detect(m, baseline, p.DropRatio, p.SustainFrames, fps)
	seconds, earliest, detected := Aggregate(events)
	return Result{
		Seconds:  seconds,
		Detected: detected,
		Earliest: earliest,
		Baseline: baseline,
		Events:   events,
	}, nil
}
