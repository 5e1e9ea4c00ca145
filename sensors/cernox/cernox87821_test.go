package cernox

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s "github.com/project8/pmana/sensors"
)

func TestLN2RTRange(t *testing.T) {
	assert.InEpsilon(t, 276.33, Cernox87821.Calibrate(56.21), 1.0e-3)
}

func TestLHe2LNRange(t *testing.T) {
	assert.InEpsilon(t, 77.0, Cernox87821.Calibrate(133.62), 1.0e-3)
}

func TestLHeRange(t *testing.T) {
	assert.InEpsilon(t, 4.2, Cernox87821.Calibrate(1764.0), 1.0e-3)
}

func TestMonotonicBetweenPoints(t *testing.T) {
	warm := Cernox87821.Calibrate(100)
	cold := Cernox87821.Calibrate(500)
	assert.Greater(t, warm, 77.0)
	assert.Less(t, warm, 276.33)
	assert.Less(t, cold, 77.0)
	assert.Greater(t, cold, 4.2)
}

func TestNonPositiveResistance(t *testing.T) {
	assert.True(t, math.IsNaN(Cernox87821.Calibrate(0)))
}

func TestRegistered(t *testing.T) {
	c, err := s.Lookup("Cernox87821")
	require.NoError(t, err)
	assert.InEpsilon(t, 77.0, c.Calibrate(133.62), 1.0e-3)
}

func TestFirstSegmentInterpolates(t *testing.T) {
	frac := (math.Log(100) - math.Log(56.21)) / (math.Log(133.62) - math.Log(56.21))
	want := math.Exp(math.Log(276.33) + frac*(math.Log(77.0)-math.Log(276.33)))
	assert.InEpsilon(t, want, Cernox87821.Calibrate(100), 1e-9)
}
