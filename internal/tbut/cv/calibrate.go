package cv

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/banshee-data/tearfilm.report/internal/monitoring"
	"github.com/banshee-data/tearfilm.report/internal/tbut"
	"github.com/banshee-data/tearfilm.report/internal/tbut/l2polar"
)

// Hough and blur settings for the ring search. These match placido-ring
// footage at typical slit-lamp magnification and are not user tunable.
const (
	blurKernel   = 9
	blurSigma    = 2.0
	houghDP      = 1.2
	houghMinDist = 100.0
	houghCanny   = 80.0
	houghVotes   = 30.0
)

// RingCalibrator estimates the ring center and radius from one frame.
//
// The center starts at the centroid of pixels brighter than the configured
// percentile of the blurred frame, or the image center when too few pixels
// qualify. A Hough circle within the radius limits replaces both center and
// radius when one is found.
type RingCalibrator struct {
	MinRadius       int
	MaxRadius       int
	MinBrightPixels int
	Percentile      float64
	RadiusScale     float64
	RadiusClip      float64
}

// NewRingCalibrator takes its limits from cfg.
func NewRingCalibrator(cfg tbut.Config) *RingCalibrator {
	return &RingCalibrator{
		MinRadius:       cfg.MinCalibrationRadius,
		MaxRadius:       cfg.MaxCalibrationRadius,
		MinBrightPixels: cfg.MinBrightPixels,
		Percentile:      cfg.BrightPercentile,
		RadiusScale:     cfg.WorkingRadiusScale,
		RadiusClip:      cfg.WorkingRadiusClip,
	}
}

// Calibrate implements tbut.Calibrator. It never fails: any OpenCV error
// degrades to the geometric fallback.
func (c *RingCalibrator) Calibrate(frame *image.Gray) l2polar.Calibration {
	w, h := frame.Rect.Dx(), frame.Rect.Dy()
	fallback := l2polar.NewCalibration(float64(w)/2, float64(h)/2, l2polar.FallbackRadius(w, h),
		w, h, c.RadiusScale, c.RadiusClip, l2polar.SourceImageCenter)

	src, err := grayToMat(frame)
	if err != nil {
		monitoring.Logf("cv: calibration frame conversion failed: %v", err)
		return fallback
	}
	defer src.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(src, &blurred, image.Pt(blurKernel, blurKernel), blurSigma, blurSigma, gocv.BorderDefault)

	cx, cy, source := fallback.CenterX, fallback.CenterY, fallback.Source
	if mx, my, ok := brightCentroid(blurred.ToBytes(), w, h, c.Percentile, c.MinBrightPixels); ok {
		cx, cy, source = mx, my, l2polar.SourceCentroid
	}
	radius := fallback.Radius

	if x, y, r, ok := c.strongestCircle(blurred); ok {
		cx, cy, radius, source = x, y, r, l2polar.SourceCircle
	}
	return l2polar.NewCalibration(cx, cy, radius, w, h, c.RadiusScale, c.RadiusClip, source)
}

// strongestCircle returns the first (highest-vote) Hough circle.
func (c *RingCalibrator) strongestCircle(blurred gocv.Mat) (x, y, r float64, ok bool) {
	circles := gocv.NewMat()
	defer circles.Close()

	gocv.HoughCirclesWithParams(blurred, &circles, gocv.HoughGradient,
		houghDP, houghMinDist, houghCanny, houghVotes,
		c.MinRadius, c.MaxRadius)

	if circles.Empty() || circles.Cols() == 0 {
		return 0, 0, 0, false
	}
	x = float64(circles.GetFloatAt(0, 0))
	y = float64(circles.GetFloatAt(0, 1))
	r = float64(circles.GetFloatAt(0, 2))
	if r <= 0 || math.IsNaN(r) {
		return 0, 0, 0, false
	}
	return x, y, r, true
}

// brightCentroid averages the coordinates of pixels strictly above the
// given percentile. ok is false when fewer than minPixels qualify.
func brightCentroid(pix []byte, w, h int, pct float64, minPixels int) (cx, cy float64, ok bool) {
	n := w * h
	if n == 0 || len(pix) < n {
		return 0, 0, false
	}
	var hist [256]int
	for _, v := range pix[:n] {
		hist[v]++
	}
	thr := percentile(&hist, n, pct)

	var sumX, sumY float64
	count := 0
	for y := 0; y < h; y++ {
		row := pix[y*w : (y+1)*w]
		for x, v := range row {
			if float64(v) > thr {
				sumX += float64(x)
				sumY += float64(y)
				count++
			}
		}
	}
	if count < minPixels || count == 0 {
		return 0, 0, false
	}
	return sumX / float64(count), sumY / float64(count), true
}

// percentile interpolates linearly between the closest ranks of the
// histogrammed samples.
func percentile(hist *[256]int, n int, pct float64) float64 {
	pos := pct / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	frac := pos - float64(lo)
	a := rank(hist, lo)
	if frac == 0 || lo+1 >= n {
		return a
	}
	b := rank(hist, lo+1)
	return a + frac*(b-a)
}

// rank returns the k-th smallest sample (0-based).
func rank(hist *[256]int, k int) float64 {
	seen := 0
	for v, c := range hist {
		seen += c
		if k < seen {
			return float64(v)
		}
	}
	return 255
}
