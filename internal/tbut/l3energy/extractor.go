package l3energy

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/tearfilm.report/internal/tbut/l2polar"
)

// Epsilon keeps the energy ratio finite for flat profiles.
const Epsilon = 1e-6

// Params configures sector energy extraction.
type Params struct {
	Sectors     int
	BandLow     float64 // fraction of the radius axis where the band starts
	BandHigh    float64 // fraction of the radius axis where the band ends
	SigmaFine   float64 // narrow Gaussian width, in radius bins
	SigmaCoarse float64 // wide Gaussian width, in radius bins
}

// Validate checks the parameters against a polar raster shape.
func (p Params) Validate(angles, radii int) error {
	if p.Sectors < 1 || p.Sectors > angles {
		return fmt.Errorf("sectors must be in [1, %d], got %d", angles, p.Sectors)
	}
	if p.BandLow < 0 || p.BandHigh > 1 || p.BandLow >= p.BandHigh {
		return fmt.Errorf("radial band must satisfy 0 <= low < high <= 1, got [%f, %f]", p.BandLow, p.BandHigh)
	}
	if p.SigmaFine <= 0 || p.SigmaFine >= p.SigmaCoarse {
		return fmt.Errorf("sigmas must satisfy 0 < fine < coarse, got (%f, %f)", p.SigmaFine, p.SigmaCoarse)
	}
	if radii < 2 {
		return fmt.Errorf("need at least 2 radius bins, got %d", radii)
	}
	return nil
}

// Extractor reduces a polar raster to one contrast energy per sector.
// It holds scratch buffers and is not safe for concurrent use; create one
// per run.
type Extractor struct {
	params  Params
	spans   [][2]int // [start, end) angle rows per sector
	lo, hi  int      // [lo, hi) radius columns in the band
	fine    []float64
	coarse  []float64
	profile []float64
	lowFine []float64
	lowWide []float64
	band    []float64
	pad     []float64
}

// NewExtractor prepares sector spans, band limits and kernels for rasters
// of the given shape.
func NewExtractor(p Params, angles, radii int) (*Extractor, error) {
	if err := p.Validate(angles, radii); err != nil {
		return nil, err
	}
	lo, hi := bandColumns(p.BandLow, p.BandHigh, radii)
	n := hi - lo
	return &Extractor{
		params:  p,
		spans:   SectorSpans(angles, p.Sectors),
		lo:      lo,
		hi:      hi,
		fine:    gaussianKernel(p.SigmaFine),
		coarse:  gaussianKernel(p.SigmaCoarse),
		profile: make([]float64, n),
		lowFine: make([]float64, n),
		lowWide: make([]float64, n),
		band:    make([]float64, n),
	}, nil
}

// SectorSpans splits angles rows into equal contiguous buckets; the last
// bucket absorbs the remainder.
func SectorSpans(angles, sectors int) [][2]int {
	per := angles / sectors
	spans := make([][2]int, sectors)
	for s := 0; s < sectors; s++ {
		spans[s] = [2]int{s * per, (s + 1) * per}
	}
	spans[sectors-1][1] = angles
	return spans
}

func bandColumns(low, high float64, radii int) (int, int) {
	lo := int(low * float64(radii))
	hi := int(high * float64(radii))
	if hi > radii {
		hi = radii
	}
	if hi-lo < 2 {
		// Keep at least two samples so a deviation exists.
		hi = min(lo+2, radii)
		lo = hi - 2
	}
	return lo, hi
}

// Sectors returns the number of sectors produced per frame.
func (e *Extractor) Sectors() int { return e.params.Sectors }

// Band returns the [lo, hi) radius columns analysed.
func (e *Extractor) Band() (lo, hi int) { return e.lo, e.hi }

// Extract computes one energy per sector and appends them to dst.
func (e *Extractor) Extract(polar *l2polar.PolarImage, dst []float64) []float64 {
	for _, span := range e.spans {
		dst = append(dst, e.sectorEnergy(polar, span[0], span[1]))
	}
	return dst
}

func (e *Extractor) sectorEnergy(polar *l2polar.PolarImage, start, end int) float64 {
	// Angular mean over the sector collapses it to a radius profile.
	for i := range e.profile {
		e.profile[i] = 0
	}
	for a := start; a < end; a++ {
		floats.Add(e.profile, polar.Row(a)[e.lo:e.hi])
	}
	floats.Scale(1/float64(end-start), e.profile)

	floats.AddConst(-Median(e.profile), e.profile)

	e.pad = gaussianFilter(e.lowFine, e.profile, e.fine, e.pad)
	e.pad = gaussianFilter(e.lowWide, e.profile, e.coarse, e.pad)
	floats.SubTo(e.band, e.lowFine, e.lowWide)

	return ContrastEnergy(e.band, e.profile)
}

// ContrastEnergy is the ratio of band-pass to total profile deviation.
func ContrastEnergy(bandpass, profile []float64) float64 {
	return stat.PopStdDev(bandpass, nil) / (stat.PopStdDev(profile, nil) + Epsilon)
}
