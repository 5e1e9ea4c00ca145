package cernox

import (
	"math"

	s "github.com/project8/pmana/sensors"
)

// Cernox converts resistance in ohm to temperature in kelvin by linear
// interpolation of log(T) against log(R).
type Cernox struct {
	curve s.Curve
}

// New builds a calibrator from (log R, log T) points.
func New(points []s.Point2d) (*Cernox, error) {
	c, err := s.NewCurve(points)
	if err != nil {
		return nil, err
	}
	return &Cernox{curve: c}, nil
}

func (c *Cernox) Calibrate(Ω float64) (K float64) {
	if !(Ω > 0) {
		return math.NaN()
	}
	logT := c.curve.Extrapolate(math.Log(Ω))
	return math.Exp(logT)
}
