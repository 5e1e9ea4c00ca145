package plotting

import (
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/project8/pmana/campaign"
)

// Quantity selects the fit parameter drawn by Trend.
type Quantity string

const (
	Mu    Quantity = "mu"
	Sigma Quantity = "sigma"
)

// Axis selects the abscissa of Trend.
type Axis string

const (
	ByTime        Axis = "time"
	ByTemperature Axis = "t1"
)

var ErrNoPoints = errors.New("plotting: no converged fits to draw")

type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

func channelIndex(t *campaign.Table, name string) int {
	for i, n := range t.Channels {
		if n == name {
			return i
		}
	}
	return -1
}

// trendPoints collects the converged fits of the named channel.  Rows
// without a time (or temperature, for ByTemperature) are left out.
func trendPoints(t *campaign.Table, channelName string, q Quantity, axis Axis) (errorPoints, error) {
	var pts errorPoints
	if t == nil {
		return pts, ErrNoPoints
	}
	if q != Mu && q != Sigma {
		return pts, fmt.Errorf("plotting: unknown quantity %q", q)
	}
	if axis != ByTime && axis != ByTemperature {
		return pts, fmt.Errorf("plotting: unknown axis %q", axis)
	}
	index := channelIndex(t, channelName)
	if index < 0 {
		return pts, fmt.Errorf("plotting: no channel %q in %v", channelName, t.Channels)
	}

	for _, row := range t.Rows {
		if index >= len(row.Channels) {
			continue
		}
		res := row.Channels[index]
		if !res.Converged {
			continue
		}
		var x float64
		switch axis {
		case ByTime:
			if row.Time.IsZero() {
				continue
			}
			x = float64(row.Time.Unix())
		case ByTemperature:
			if !row.HasTemperature {
				continue
			}
			x = row.T1
		}
		y, yerr := res.Peak()
		if q == Sigma {
			y, yerr = res.Width()
		}
		pts.XYs = append(pts.XYs, plotter.XY{X: x, Y: y})
		pts.YErrors = append(pts.YErrors, struct{ Low, High float64 }{yerr, yerr})
	}
	if len(pts.XYs) == 0 {
		return pts, ErrNoPoints
	}
	return pts, nil
}

// Trend draws one channel's fitted mu or sigma, with its error, against
// measurement time or temperature T1.
func Trend(t *campaign.Table, channelName string, q Quantity, axis Axis) (*plot.Plot, error) {
	pts, err := trendPoints(t, channelName, q, axis)
	if err != nil {
		return nil, err
	}
	c := Color(channelIndex(t, channelName))

	p := plot.New()
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	scatter.Color = c
	scatter.Shape = draw.CircleGlyph{}
	scatter.Radius = vg.Points(2.5)

	bars, err := plotter.NewYErrorBars(pts)
	if err != nil {
		return nil, err
	}
	bars.Color = c

	p.Add(bars, scatter)
	p.Legend.Add(channelName, scatter)

	xlabel := "Temperature T1"
	if axis == ByTime {
		p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02\n15:04"}
		xlabel = "Time"
	}
	Style(p, xlabel, string(q))
	p.Title.Text = fmt.Sprintf("%s %s", channelName, q)
	return p, nil
}
