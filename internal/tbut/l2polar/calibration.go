package l2polar

import (
	"fmt"
	"math"
)

// CalibrationSource records which estimator supplied the ring center.
type CalibrationSource string

const (
	SourceCircle      CalibrationSource = "circle"   // Hough circle match
	SourceCentroid    CalibrationSource = "centroid" // bright-mask centroid, fallback radius
	SourceImageCenter CalibrationSource = "center"   // geometric center, fallback radius
)

// Calibration is the ring geometry measured on the first frame and held
// fixed for the rest of the run.
type Calibration struct {
	CenterX   float64
	CenterY   float64
	Radius    float64 // estimated ring radius
	MaxRadius float64 // working radius used by the polar unwrap, always > 0
	Source    CalibrationSource
}

func (c Calibration) String() string {
	return fmt.Sprintf("center=(%.1f,%.1f) radius=%.1f working=%.1f source=%s",
		c.CenterX, c.CenterY, c.Radius, c.MaxRadius, c.Source)
}

// FallbackRadius is the ring radius assumed when no circle is detected:
// one third of the shorter frame dimension.
func FallbackRadius(width, height int) float64 {
	return float64(min(width, height)) / 3
}

// WorkingRadius scales the estimated radius and clips it to a fraction of
// the shorter frame dimension. The result is never below one pixel.
func WorkingRadius(radius float64, width, height int, scale, clip float64) float64 {
	short := float64(min(width, height))
	r := math.Min(radius*scale, clip*short)
	if r < 1 || math.IsNaN(r) {
		return 1
	}
	return r
}

// NewCalibration assembles a Calibration, deriving the working radius.
func NewCalibration(cx, cy, radius float64, width, height int, scale, clip float64, src CalibrationSource) Calibration {
	return Calibration{
		CenterX:   cx,
		CenterY:   cy,
		Radius:    radius,
		MaxRadius: WorkingRadius(radius, width, height, scale, clip),
		Source:    src,
	}
}
