package histogram

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaussianCounts(xs []float64, a, mu, sigma float64) []float64 {
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = a * math.Exp(-(x-mu)*(x-mu)/(2*sigma*sigma))
	}
	return ys
}

func TestEstimateSeedFromPeak(t *testing.T) {
	xs := ramp(41, 1)
	h, err := Build(xs, gaussianCounts(xs, 100, 20, 3), false)
	require.NoError(t, err)

	seed, err := h.EstimateSeed(SeedOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 100, seed.Amplitude, 1e-9)
	assert.InDelta(t, 20, seed.Mu, 1e-9)
	// bins above 10 span 14..26
	assert.InDelta(t, 12/FWHMFactor, seed.Sigma, 1e-9)
}

func TestEstimateSeedFirstMaxWins(t *testing.T) {
	h, err := Build([]float64{0, 1, 2, 3}, []float64{1, 5, 5, 1}, false)
	require.NoError(t, err)
	seed, err := h.EstimateSeed(SeedOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 1, seed.Mu, 1e-12)
}

func TestEstimateSeedSingleBinUsesWidth(t *testing.T) {
	h, err := Build([]float64{0, 0.5, 1, 1.5}, []float64{0, 9, 0, 0}, false)
	require.NoError(t, err)
	seed, err := h.EstimateSeed(SeedOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, seed.Sigma, 1e-12)
}

func TestEstimateSeedCustomThreshold(t *testing.T) {
	xs := ramp(41, 1)
	h, err := Build(xs, gaussianCounts(xs, 100, 20, 3), false)
	require.NoError(t, err)
	// half maximum: |x-20| < 3*sqrt(2 ln 2) = 3.53 -> 17..23
	seed, err := h.EstimateSeed(SeedOptions{Threshold: 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 6/FWHMFactor, seed.Sigma, 1e-9)
}

func TestEstimateSeedEmpty(t *testing.T) {
	_, err := (&Histogram{}).EstimateSeed(SeedOptions{})
	assert.ErrorIs(t, err, ErrEmpty)
}
