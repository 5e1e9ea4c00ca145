package histogram

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func ramp(n int, step float64) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i) * step
	}
	return xs
}

func TestBinWidthMedianIgnoresGaps(t *testing.T) {
	// one missing center and one unsorted pair must not move the median
	centers := []float64{0.1, 0.0, 0.2, 0.3, 0.6, 0.7, 0.8}
	w, err := BinWidth(centers)
	require.NoError(t, err)
	assert.Equal(t, 0.1, w)
}

func TestBinWidthRoundsPrintedNoise(t *testing.T) {
	w, err := BinWidth(ramp(50, 0.1))
	require.NoError(t, err)
	assert.Equal(t, 0.1, w)
}

func TestBinWidthEvenCountAveragesMiddle(t *testing.T) {
	// diffs 1, 1, 3, 3 -> median 2
	w, err := BinWidth([]float64{0, 1, 2, 5, 8})
	require.NoError(t, err)
	assert.Equal(t, 2.0, w)
}

func TestBinWidthErrors(t *testing.T) {
	_, err := BinWidth([]float64{1})
	assert.ErrorIs(t, err, ErrTooFewSamples)

	_, err = BinWidth([]float64{2, 2, 2, 3})
	assert.ErrorIs(t, err, ErrBadBinWidth)
}

func TestEdges(t *testing.T) {
	edges := Edges([]float64{1, 2, 3}, 1, false)
	if diff := cmp.Diff([]float64{0.5, 1.5, 2.5, 3.5}, edges, approx); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestDecimate(t *testing.T) {
	assert.Equal(t, []float64{0, 2, 4}, Decimate([]float64{0, 1, 2, 3, 4}))
	// even count drops the trailing edge
	assert.Equal(t, []float64{0, 2}, Decimate([]float64{0, 1, 2, 3}))
}

func TestFillHalfOpenBins(t *testing.T) {
	edges := []float64{0, 1, 2, 3}
	xs := []float64{0, 0.5, 1, 2.99, 3, 3.5, -0.1}
	ws := []float64{1, 1, 10, 100, 1000, 5, 5}
	h, err := Fill(xs, ws, edges)
	require.NoError(t, err)
	// 1 lands in bin 1, the closing edge 3 lands in the last bin, out of range dropped
	assert.Equal(t, []float64{2, 10, 1100}, h.Counts)
	assert.Equal(t, 1112.0, h.Total())
}

func TestFillRejectsDecreasingEdges(t *testing.T) {
	_, err := Fill([]float64{1}, []float64{1}, []float64{0, 2, 1})
	assert.Error(t, err)
	_, err = Fill([]float64{1}, []float64{1, 2}, []float64{0, 2})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestFillEqualEdgesLeaveEmptyBin(t *testing.T) {
	h, err := Fill([]float64{0.5, 1, 1.5, 2}, []float64{1, 2, 3, 4}, []float64{0, 1, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 9}, h.Counts)
}

func TestBuildMergesRepeatedCenter(t *testing.T) {
	h, err := Build([]float64{0, 1, 1, 2, 3}, []float64{1, 2, 5, 3, 4}, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 7, 3, 4}, h.Counts)
	if diff := cmp.Diff([]float64{0, 1, 2, 3}, h.Centers(), approx); diff != "" {
		t.Errorf("centers mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildReproducesInput(t *testing.T) {
	centers := ramp(10, 0.25)
	weights := make([]float64, len(centers))
	for i := range weights {
		weights[i] = float64(i * i)
	}
	h, err := Build(centers, weights, false)
	require.NoError(t, err)
	assert.Equal(t, weights, h.Counts)
	if diff := cmp.Diff(centers, h.Centers(), approx); diff != "" {
		t.Errorf("centers mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 0.25, h.Width(), 1e-12)
}

func TestBuildSortsUnorderedInput(t *testing.T) {
	h, err := Build([]float64{2, 0, 1}, []float64{3, 1, 2}, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, h.Counts)
}

func TestBuildRebin(t *testing.T) {
	centers := ramp(10, 1)
	weights := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	h, err := Build(centers, weights, true)
	require.NoError(t, err)
	assert.Equal(t, 5, h.Len())
	assert.Equal(t, []float64{2, 2, 2, 2, 2}, h.Counts)
	assert.InDelta(t, 2.0, h.Width(), 1e-12)
}

func TestBuildRebinOddDropsLastSample(t *testing.T) {
	centers := ramp(9, 1)
	weights := []float64{1, 1, 1, 1, 1, 1, 1, 1, 7}
	h, err := Build(centers, weights, true)
	require.NoError(t, err)
	assert.Equal(t, 4, h.Len())
	assert.Equal(t, 8.0, h.Total())
}

func TestMoments(t *testing.T) {
	h, err := Build([]float64{1, 2, 3}, []float64{1, 2, 1}, false)
	require.NoError(t, err)
	mean, rms := h.Moments()
	assert.InDelta(t, 2.0, mean, 1e-12)
	assert.InDelta(t, math.Sqrt(0.5), rms, 1e-12)
}
