package l3energy

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// gaussianTruncate is the kernel half-width in standard deviations.
const gaussianTruncate = 4.0

// gaussianKernel returns a normalised, symmetric 1-D Gaussian kernel of
// radius round(truncate*sigma).
func gaussianKernel(sigma float64) []float64 {
	radius := int(gaussianTruncate*sigma + 0.5)
	k := make([]float64, 2*radius+1)
	inv := -0.5 / (sigma * sigma)
	for i := -radius; i <= radius; i++ {
		k[i+radius] = math.Exp(inv * float64(i*i))
	}
	floats.Scale(1/floats.Sum(k), k)
	return k
}

// reflectIndex maps i into [0, n) with half-sample symmetric reflection
// (d c b a | a b c d | d c b a).
func reflectIndex(i, n int) int {
	period := 2 * n
	m := i % period
	if m < 0 {
		m += period
	}
	if m >= n {
		m = period - 1 - m
	}
	return m
}

// gaussianFilter writes the Gaussian-smoothed src into dst using the given
// kernel, reflecting at both ends. pad is scratch space and is returned,
// possibly grown, for reuse.
func gaussianFilter(dst, src, kernel, pad []float64) []float64 {
	n := len(src)
	radius := len(kernel) / 2
	need := n + 2*radius
	if cap(pad) < need {
		pad = make([]float64, need)
	}
	pad = pad[:need]
	for i := range pad {
		pad[i] = src[reflectIndex(i-radius, n)]
	}
	for i := 0; i < n; i++ {
		dst[i] = floats.Dot(kernel, pad[i:i+len(kernel)])
	}
	return pad
}

// Median returns the median of x, averaging the two middle values for even
// lengths. x is not modified. Median of an empty slice is NaN.
func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return math.NaN()
	}
	s := make([]float64, n)
	copy(s, x)
	sort.Float64s(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
