// Package histogram rebuilds uniform histograms from pre-binned channel
// dumps and derives starting values for a Gaussian peak fit.
package histogram

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/project8/pmana/runningstat"
)

var (
	ErrTooFewSamples  = errors.New("histogram: at least two bin centers are required")
	ErrBadBinWidth    = errors.New("histogram: inferred bin width is not positive")
	ErrLengthMismatch = errors.New("histogram: centers and weights differ in length")
	ErrEmpty          = errors.New("histogram: no bins")
)

// WidthDecimals is the rounding applied to the inferred bin width, which
// absorbs the float noise of the oscilloscope's printed bin centers.
const WidthDecimals = 6

// Histogram holds bin edges and the weighted count of each bin.
type Histogram struct {
	Edges  []float64
	Counts []float64
}

// BinWidth infers the uniform bin width as the median of successive
// differences of the sorted centers, rounded to WidthDecimals.
func BinWidth(centers []float64) (float64, error) {
	if len(centers) < 2 {
		return 0, ErrTooFewSamples
	}
	sorted := append([]float64(nil), centers...)
	sort.Float64s(sorted)
	diffs := make([]float64, len(sorted)-1)
	for i := range diffs {
		diffs[i] = sorted[i+1] - sorted[i]
	}
	w := roundTo(median(diffs), WidthDecimals)
	if !(w > 0) {
		return 0, fmt.Errorf("%w: %v", ErrBadBinWidth, w)
	}
	return w, nil
}

// Edges places an edge half a width below every distinct center and one
// more half a width above the last center.  Centers must be sorted.  With
// rebin set, every other edge is kept, halving the resolution.
func Edges(centers []float64, width float64, rebin bool) []float64 {
	if len(centers) == 0 {
		return nil
	}
	edges := make([]float64, 0, len(centers)+1)
	for i, c := range centers {
		if i > 0 && c == centers[i-1] {
			continue
		}
		edges = append(edges, c-width/2)
	}
	edges = append(edges, centers[len(centers)-1]+width/2)
	if rebin {
		edges = Decimate(edges)
	}
	return edges
}

// Decimate keeps edges 0, 2, 4, ...  An even number of edges loses its
// trailing edge, so the last input bin drops out of range.
func Decimate(edges []float64) []float64 {
	out := make([]float64, 0, (len(edges)+1)/2)
	for i := 0; i < len(edges); i += 2 {
		out = append(out, edges[i])
	}
	return out
}

// Fill histograms xs weighted by ws onto non-decreasing edges.  Bins are
// half-open except the last one, which includes its upper edge; values
// outside [edges[0], edges[n]] are dropped and a bin between equal edges
// stays empty.
func Fill(xs, ws, edges []float64) (*Histogram, error) {
	if len(xs) != len(ws) {
		return nil, ErrLengthMismatch
	}
	if len(edges) < 2 {
		return nil, ErrEmpty
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] >= edges[i-1]) {
			return nil, fmt.Errorf("histogram: edges must not decrease (edge %d: %v < %v)", i, edges[i], edges[i-1])
		}
	}
	h := &Histogram{
		Edges:  append([]float64(nil), edges...),
		Counts: make([]float64, len(edges)-1),
	}
	last := len(edges) - 1
	for i, x := range xs {
		if x < edges[0] || x > edges[last] || math.IsNaN(x) {
			continue
		}
		// first edge strictly greater than x
		k := sort.Search(len(edges), func(j int) bool { return edges[j] > x })
		bin := k - 1
		if bin >= len(h.Counts) {
			bin = len(h.Counts) - 1
		}
		h.Counts[bin] += ws[i]
	}
	return h, nil
}

// Build runs the adaptive binning on one channel's raw samples.
func Build(centers, weights []float64, rebin bool) (*Histogram, error) {
	if len(centers) != len(weights) {
		return nil, ErrLengthMismatch
	}
	width, err := BinWidth(centers)
	if err != nil {
		return nil, err
	}
	xs, ws := sortedPairs(centers, weights)
	return Fill(xs, ws, Edges(xs, width, rebin))
}

func (h *Histogram) Len() int { return len(h.Counts) }

// Centers returns the bin midpoints.
func (h *Histogram) Centers() []float64 {
	x := make([]float64, h.Len())
	for i := range x {
		x[i] = (h.Edges[i] + h.Edges[i+1]) / 2
	}
	return x
}

// Width is the width of the first bin; bins are uniform by construction.
func (h *Histogram) Width() float64 {
	if h.Len() == 0 {
		return 0
	}
	return h.Edges[1] - h.Edges[0]
}

func (h *Histogram) Total() float64 {
	return floats.Sum(h.Counts)
}

// Moments returns the count-weighted mean and RMS of the bin midpoints.
func (h *Histogram) Moments() (mean, rms float64) {
	var r runningstat.StatRunner
	for i, x := range h.Centers() {
		r.UpdateWeighted(x, h.Counts[i])
	}
	return r.Mean(), r.RMS()
}

func sortedPairs(centers, weights []float64) ([]float64, []float64) {
	idx := make([]int, len(centers))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return centers[idx[a]] < centers[idx[b]] })
	xs := make([]float64, len(idx))
	ws := make([]float64, len(idx))
	for i, j := range idx {
		xs[i] = centers[j]
		ws[i] = weights[j]
	}
	return xs, ws
}

func median(values []float64) float64 {
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	n := len(s)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

func roundTo(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.RoundToEven(x*p) / p
}
