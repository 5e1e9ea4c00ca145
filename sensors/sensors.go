package sensors

import (
	"fmt"
	"sort"
	"strings"
)

// Calibrator converts a raw sensor reading into a physical value.
type Calibrator interface {
	Calibrate(raw float64) float64
}

// Identity passes readings through unchanged; used when the monitor
// already logs temperatures.
type Identity struct{}

func (Identity) Calibrate(raw float64) float64 { return raw }

type Point2d struct {
	X, Y float64
}

// Curve is a set of calibration points sorted by X.
type Curve []Point2d

// NewCurve copies and sorts points by X.  At least two points with
// distinct X are required.
func NewCurve(points []Point2d) (Curve, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("a curve needs at least 2 points, got %d", len(points))
	}
	c := make(Curve, len(points))
	copy(c, points)
	sort.SliceStable(c, func(i, j int) bool { return c[i].X < c[j].X })
	if c[0].X == c[len(c)-1].X {
		return nil, fmt.Errorf("curve points share a single X value %v", c[0].X)
	}
	return c, nil
}

// Interval returns the pair of neighbouring points bracketing x.
// Outside the curve the first or last pair is returned, which makes
// Extrapolate continue the end segments.
func (c Curve) Interval(x float64) (Point2d, Point2d) {
	// first point strictly right of x
	i := sort.Search(len(c), func(i int) bool { return c[i].X > x })
	switch {
	case i <= 1:
		return c[0], c[1]
	case i >= len(c):
		return c[len(c)-2], c[len(c)-1]
	}
	return c[i-1], c[i]
}

// Extrapolate evaluates the piecewise-linear curve at x, continuing the
// end segments beyond the covered range.
func (c Curve) Extrapolate(x float64) float64 {
	pt1, pt2 := c.Interval(x)
	if pt1.X == pt2.X {
		return pt1.Y
	}
	slope, icept := linearFit(pt1, pt2)
	return slope*x + icept
}

// Interpolate evaluates the curve at x and reports false outside [first X, last X].
func (c Curve) Interpolate(x float64) (float64, bool) {
	if len(c) == 0 || x < c[0].X || x > c[len(c)-1].X {
		return 0, false
	}
	if len(c) == 1 {
		return c[0].Y, true
	}
	return c.Extrapolate(x), true
}

func linearFit(pt1, pt2 Point2d) (m, b float64) {
	m = (pt2.Y - pt1.Y) / (pt2.X - pt1.X)
	b = pt2.Y - m*pt2.X
	return
}

var registry = map[string]Calibrator{
	"":     Identity{},
	"none": Identity{},
}

// Register makes a calibrator available by name to configuration files.
func Register(name string, c Calibrator) {
	registry[strings.ToLower(name)] = c
}

// Lookup finds a registered calibrator by case-insensitive name.
func Lookup(name string) (Calibrator, error) {
	c, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown sensor calibration %q", name)
	}
	return c, nil
}
