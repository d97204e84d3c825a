package transform

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Histogram bin count limits.
const (
	MinBins = 10
	MaxBins = 1000
)

// ClampBins forces a requested bin count into [MinBins, MaxBins].
func ClampBins(bins int) int {
	return clamp(bins, MinBins, MaxBins)
}

// Histogram bins the finite values of vs into the given number of
// uniform-width bins spanning their range. It returns the bin edges
// (len bins+1) and per-bin counts (len bins). Both are nil when vs has
// no finite values. The bin count is clamped to [MinBins, MaxBins].
func Histogram(vs []float64, bins int) (edges, counts []float64) {
	bins = ClampBins(bins)
	fin := Finite(vs)
	if len(fin) == 0 {
		return nil, nil
	}
	sort.Float64s(fin)
	lo, hi := fin[0], fin[len(fin)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	edges = make([]float64, bins+1)
	floats.Span(edges, lo, hi)
	// stat.Histogram drops values equal to the last divider; nudge it up
	// so the maximum lands in the final bin.
	dividers := make([]float64, len(edges))
	copy(dividers, edges)
	dividers[len(dividers)-1] = math.Nextafter(hi, math.Inf(1))
	counts = stat.Histogram(nil, dividers, fin, nil)
	return edges, counts
}
