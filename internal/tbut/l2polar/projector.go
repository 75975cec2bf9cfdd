package l2polar

import (
	"image"
	"math"
)

// PolarImage is an angle-by-radius raster. Row a is the angle bucket
// a*360/Angles degrees clockwise from "up"; column r samples radius
// r*MaxRadius/Radii.
type PolarImage struct {
	Angles int
	Radii  int
	Pix    []float64
}

// NewPolarImage allocates a zeroed raster.
func NewPolarImage(angles, radii int) *PolarImage {
	return &PolarImage{Angles: angles, Radii: radii, Pix: make([]float64, angles*radii)}
}

// Row returns the radius samples for one angle bucket. The slice aliases Pix.
func (p *PolarImage) Row(a int) []float64 {
	return p.Pix[a*p.Radii : (a+1)*p.Radii]
}

// At returns the sample at angle bucket a, radius bucket r.
func (p *PolarImage) At(a, r int) float64 {
	return p.Pix[a*p.Radii+r]
}

// Projector unwraps frames around a fixed center with a fixed output shape.
// The trigonometric tables are computed once; a Projector is read-only
// after construction and may be shared.
type Projector struct {
	angles int
	radii  int
	sin    []float64
	cos    []float64
}

// NewProjector builds a projector producing angles x radii rasters.
func NewProjector(angles, radii int) *Projector {
	p := &Projector{
		angles: angles,
		radii:  radii,
		sin:    make([]float64, angles),
		cos:    make([]float64, angles),
	}
	for a := 0; a < angles; a++ {
		theta := 2 * math.Pi * float64(a) / float64(angles)
		p.sin[a], p.cos[a] = math.Sincos(theta)
	}
	return p
}

// Shape returns the output dimensions.
func (p *Projector) Shape() (angles, radii int) { return p.angles, p.radii }

// Project resamples img into dst using bilinear interpolation. Source
// coordinates outside the frame take the nearest edge pixel. dst is reused
// when it has the right shape, otherwise a new raster is allocated.
func (p *Projector) Project(img *image.Gray, cal Calibration, dst *PolarImage) *PolarImage {
	if dst == nil || dst.Angles != p.angles || dst.Radii != p.radii {
		dst = NewPolarImage(p.angles, p.radii)
	}
	step := cal.MaxRadius / float64(p.radii)
	for a := 0; a < p.angles; a++ {
		row := dst.Row(a)
		// Angle 0 points up (negative y in image coordinates), increasing clockwise.
		dx, dy := p.sin[a], -p.cos[a]
		for r := 0; r < p.radii; r++ {
			rho := float64(r) * step
			row[r] = bilinear(img, cal.CenterX+rho*dx, cal.CenterY+rho*dy)
		}
	}
	return dst
}

// bilinear samples img at (x, y) in local pixel coordinates with edge clamping.
func bilinear(img *image.Gray, x, y float64) float64 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	x0f, y0f := math.Floor(x), math.Floor(y)
	fx, fy := x-x0f, y-y0f
	x0, y0 := int(x0f), int(y0f)

	p00 := grayAt(img, x0, y0, w, h)
	p10 := grayAt(img, x0+1, y0, w, h)
	p01 := grayAt(img, x0, y0+1, w, h)
	p11 := grayAt(img, x0+1, y0+1, w, h)

	top := p00 + (p10-p00)*fx
	bottom := p01 + (p11-p01)*fx
	return top + (bottom-top)*fy
}

func grayAt(img *image.Gray, x, y, w, h int) float64 {
	x = clampInt(x, 0, w-1)
	y = clampInt(y, 0, h-1)
	return float64(img.Pix[y*img.Stride+x])
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
