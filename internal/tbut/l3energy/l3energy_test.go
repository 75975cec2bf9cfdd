package l3energy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/tearfilm.report/internal/tbut/l2polar"
)

func defaultParams() Params {
	return Params{Sectors: 12, BandLow: 0.25, BandHigh: 0.95, SigmaFine: 1.0, SigmaCoarse: 6.0}
}

func TestGaussianKernel(t *testing.T) {
	tests := []struct {
		sigma   float64
		wantLen int
	}{
		{1.0, 9},
		{6.0, 49},
		{0.5, 5},
	}
	for _, tt := range tests {
		k := gaussianKernel(tt.sigma)
		assert.Len(t, k, tt.wantLen, "sigma=%v", tt.sigma)
		assert.InDelta(t, 1.0, floats.Sum(k), 1e-12)
		// symmetric and peaked in the middle
		mid := len(k) / 2
		for i := 0; i < mid; i++ {
			assert.InDelta(t, k[i], k[len(k)-1-i], 1e-15)
			assert.Less(t, k[i], k[mid])
		}
	}
}

func TestReflectIndex(t *testing.T) {
	cases := map[int]int{-5: 3, -4: 3, -3: 2, -2: 1, -1: 0, 0: 0, 3: 3, 4: 3, 5: 2, 7: 0, 8: 0, 9: 1}
	for in, want := range cases {
		assert.Equal(t, want, reflectIndex(in, 4), "reflectIndex(%d, 4)", in)
	}
}

func TestGaussianFilterPreservesConstant(t *testing.T) {
	src := []float64{3, 3, 3, 3, 3}
	dst := make([]float64, len(src))
	// Kernel wider than the signal exercises repeated reflection.
	gaussianFilter(dst, src, gaussianKernel(6), nil)
	for _, v := range dst {
		assert.InDelta(t, 3.0, v, 1e-12)
	}
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.True(t, math.IsNaN(Median(nil)))

	in := []float64{5, 1, 4}
	Median(in)
	assert.Equal(t, []float64{5, 1, 4}, in, "input must not be reordered")
}

func TestSectorSpans(t *testing.T) {
	spans := SectorSpans(360, 12)
	require.Len(t, spans, 12)
	for s, span := range spans {
		assert.Equal(t, [2]int{30 * s, 30 * (s + 1)}, span)
	}

	spans = SectorSpans(100, 12)
	assert.Equal(t, [2]int{0, 8}, spans[0])
	assert.Equal(t, [2]int{80, 88}, spans[10])
	assert.Equal(t, [2]int{88, 100}, spans[11], "last sector absorbs the remainder")
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, defaultParams().Validate(360, 200))

	p := defaultParams()
	p.Sectors = 0
	assert.Error(t, p.Validate(360, 200))

	p = defaultParams()
	p.BandLow, p.BandHigh = 0.9, 0.1
	assert.Error(t, p.Validate(360, 200))

	p = defaultParams()
	p.SigmaFine = 8
	assert.Error(t, p.Validate(360, 200))

	_, err := NewExtractor(defaultParams(), 6, 200)
	assert.Error(t, err, "more sectors than angle rows")
}

// fillRows writes profile(r) into every angle row in [start, end).
func fillRows(p *l2polar.PolarImage, start, end int, profile func(r int) float64) {
	for a := start; a < end; a++ {
		row := p.Row(a)
		for r := range row {
			row[r] = profile(r)
		}
	}
}

func ringProfile(r int) float64 { return 100 + 50*math.Cos(2*math.Pi*float64(r)/8) }
func rampProfile(r int) float64 { return float64(r) }
func flatProfile(int) float64   { return 80 }

func TestExtract_RingTextureVersusSmoothProfiles(t *testing.T) {
	t.Parallel()

	e, err := NewExtractor(defaultParams(), 360, 200)
	require.NoError(t, err)
	lo, hi := e.Band()
	assert.Equal(t, 50, lo)
	assert.Equal(t, 190, hi)

	polar := l2polar.NewPolarImage(360, 200)
	fillRows(polar, 0, 360, ringProfile)
	ring := e.Extract(polar, nil)
	require.Len(t, ring, 12)

	fillRows(polar, 0, 360, rampProfile)
	ramp := e.Extract(polar, nil)

	fillRows(polar, 0, 360, flatProfile)
	flat := e.Extract(polar, nil)

	for s := 0; s < 12; s++ {
		assert.Greater(t, ring[s], 0.5, "ring texture sector %d", s)
		assert.Less(t, ring[s], 1.0, "ring texture sector %d", s)
		assert.Less(t, ramp[s], 0.2, "smooth ramp sector %d", s)
		assert.Equal(t, 0.0, flat[s], "flat sector %d", s)
	}
}

func TestExtract_SectorsAreIndependent(t *testing.T) {
	t.Parallel()

	e, err := NewExtractor(defaultParams(), 360, 200)
	require.NoError(t, err)

	polar := l2polar.NewPolarImage(360, 200)
	fillRows(polar, 0, 360, flatProfile)
	fillRows(polar, 90, 120, ringProfile) // sector 3 only

	got := e.Extract(polar, make([]float64, 0, 12))
	for s, v := range got {
		if s == 3 {
			assert.Greater(t, v, 0.5)
			continue
		}
		assert.Equal(t, 0.0, v, "sector %d", s)
	}
}

func TestContrastEnergyFlatIsZero(t *testing.T) {
	assert.Equal(t, 0.0, ContrastEnergy([]float64{0, 0, 0}, []float64{0, 0, 0}))
}

func TestMatrix(t *testing.T) {
	m := NewMatrix(3, 0)
	require.NoError(t, m.Append([]float64{1, 2, 3}))
	require.NoError(t, m.Append([]float64{4, 5, 6}))
	assert.Error(t, m.Append([]float64{1}))

	assert.Equal(t, 2, m.Frames())
	assert.Equal(t, 3, m.Sectors())
	assert.Equal(t, 5.0, m.At(1, 1))
	assert.Equal(t, []float64{4, 5, 6}, m.Row(1))
	assert.Equal(t, []float64{3, 6}, m.Column(2, 10))
	assert.Equal(t, []float64{1}, m.Column(0, 1))

	// Append copies: caller mutation must not leak in.
	row := []float64{7, 8, 9}
	require.NoError(t, m.Append(row))
	row[0] = -1
	assert.Equal(t, 7.0, m.At(2, 0))
}

func TestMatrixFromRows(t *testing.T) {
	m, err := MatrixFromRows([][]float64{{1, 1}, {2, 2}})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Frames())

	_, err = MatrixFromRows(nil)
	assert.Error(t, err)

	_, err = MatrixFromRows([][]float64{{1, 1}, {2}})
	assert.Error(t, err)
}
