package l4breakup

import (
	"github.com/banshee-data/tearfilm.report/internal/tbut/l3energy"
)

// MinBaselineFrames is the smallest baseline window used when the stream
// is long enough.
const MinBaselineFrames = 3

// BaselineWindow returns the number of leading rows used for the baseline:
// max(3, min(seconds*fps, total)), never more than total.
func BaselineWindow(seconds, fps float64, total int) int {
	w := int(seconds * fps)
	w = min(w, total)
	w = max(MinBaselineFrames, w)
	return min(w, total)
}

// Baseline computes the per-sector median energy over the first window rows.
func Baseline(m *l3energy.Matrix, window int) []float64 {
	base := make([]float64, m.Sectors())
	for s := range base {
		base[s] = l3energy.Median(m.Column(s, window))
	}
	return base
}
