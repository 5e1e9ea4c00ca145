package cernox

import (
	"math"

	s "github.com/project8/pmana/sensors"
)

var Cernox87821Points = []s.Point2d{
	// log(R), log(T)
	{X: math.Log(56.21), Y: math.Log(276.33)},
	{X: math.Log(133.62), Y: math.Log(77.0)},
	{X: math.Log(1764.0), Y: math.Log(4.2)},
}

var Cernox87821 *Cernox

func init() {
	var err error
	if Cernox87821, err = New(Cernox87821Points); err != nil {
		panic(err)
	}
	s.Register("cernox87821", Cernox87821)
}
