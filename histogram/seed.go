package histogram

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultThreshold is the fraction of the peak height a bin must
	// exceed to count towards the width estimate.
	DefaultThreshold = 0.1
	// FWHMFactor converts a full width at half maximum into a Gaussian sigma.
	FWHMFactor = 2.355
)

// Seed is a starting point for the Gaussian fit.
type Seed struct {
	Amplitude float64
	Mu        float64
	Sigma     float64
}

// SeedOptions tune the width heuristic; zero values select the defaults.
type SeedOptions struct {
	Threshold  float64
	FWHMFactor float64
}

func (o SeedOptions) withDefaults() SeedOptions {
	if !(o.Threshold > 0) {
		o.Threshold = DefaultThreshold
	}
	if !(o.FWHMFactor > 0) {
		o.FWHMFactor = FWHMFactor
	}
	return o
}

// EstimateSeed takes the amplitude and position from the highest bin
// (first on ties) and sigma from the span of bins above Threshold times
// the peak, divided by FWHMFactor.  A single bin above threshold seeds
// sigma with one bin width.
func (h *Histogram) EstimateSeed(opts SeedOptions) (Seed, error) {
	if h.Len() == 0 {
		return Seed{}, ErrEmpty
	}
	opts = opts.withDefaults()
	x := h.Centers()

	idxMax := floats.MaxIdx(h.Counts)
	seed := Seed{Amplitude: h.Counts[idxMax], Mu: x[idxMax]}

	cut := opts.Threshold * seed.Amplitude
	first, last := -1, -1
	for i, c := range h.Counts {
		if c > cut {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	width := 0.0
	if first >= 0 {
		width = x[last] - x[first]
	}
	if width > 0 {
		seed.Sigma = width / opts.FWHMFactor
	} else {
		seed.Sigma = h.Width()
	}
	if math.IsNaN(seed.Sigma) || seed.Sigma <= 0 {
		seed.Sigma = 1
	}
	return seed, nil
}
