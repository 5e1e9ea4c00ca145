// Package plotting draws channel histograms with their fitted peaks and the
// trend of fit results over a campaign.
package plotting

import (
	"errors"
	"fmt"
	"image/color"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/project8/pmana/Go/logging"
	"github.com/project8/pmana/channel"
	"github.com/project8/pmana/histogram"
	"github.com/project8/pmana/peak"
)

const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 6 * vg.Inch

	// fitSamples is the number of points drawn along a fitted curve.
	fitSamples = 400
)

var ErrNoHistogram = errors.New("plotting: channel could not be binned")

// palette is the tab10 cycle; channel i is drawn in palette[i%10].
var palette = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
	{R: 0xe3, G: 0x77, B: 0xc2, A: 0xff},
	{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff},
	{R: 0xbc, G: 0xbd, B: 0x22, A: 0xff},
	{R: 0x17, G: 0xbe, B: 0xcf, A: 0xff},
}

// Color returns the palette color of channel index i.
func Color(i int) color.RGBA {
	if i < 0 {
		i = -i
	}
	return palette[i%len(palette)]
}

// translucent returns c at half opacity.
func translucent(c color.RGBA) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0x80}
}

type Options struct {
	Peak   peak.Options
	XLabel string
	YLabel string
}

func (o Options) labels() (string, string) {
	x, y := o.XLabel, o.YLabel
	if x == "" {
		x = "Bin center"
	}
	if y == "" {
		y = "Population"
	}
	return x, y
}

// SingleChannel fits one channel and draws its histogram in the color of
// index, with the fitted Gaussian on top.
func SingleChannel(data channel.Data, index int, opts Options) (*plot.Plot, peak.Result, error) {
	p := plot.New()
	res, err := addChannel(p, data, index, opts.Peak)
	if err != nil {
		return nil, res, err
	}
	x, y := opts.labels()
	Style(p, x, y)
	p.Title.Text = data.Name
	return p, res, nil
}

// Measurement draws every channel of one measurement on a single plot.
// Channels that cannot be binned are logged and left out.
func Measurement(channels []channel.Data, opts Options) (*plot.Plot, []peak.Result, error) {
	p := plot.New()
	results := make([]peak.Result, 0, len(channels))
	drawn := 0
	for i, data := range channels {
		res, err := addChannel(p, data, i, opts.Peak)
		results = append(results, res)
		if err != nil {
			logging.Log.Warningf("Not drawing %s: %v", data.Name, err)
			continue
		}
		drawn++
	}
	if drawn == 0 {
		return nil, results, ErrNoHistogram
	}
	x, y := opts.labels()
	Style(p, x, y)
	return p, results, nil
}

func addChannel(p *plot.Plot, data channel.Data, index int, opts peak.Options) (peak.Result, error) {
	res, h := peak.Analyze(data.Name, data.BinCenter, data.Population, opts)
	if h == nil {
		return res, fmt.Errorf("%w: %s", ErrNoHistogram, res.Reason)
	}
	c := Color(index)
	hist := histogramPlotter(h, c)
	p.Add(hist)
	p.Legend.Add(data.Name, hist)

	if !res.Converged {
		return res, nil
	}
	fit := plotter.NewFunction(res.Params.Eval)
	fit.XMin = h.Edges[0]
	fit.XMax = h.Edges[len(h.Edges)-1]
	fit.Samples = fitSamples
	fit.Color = c
	fit.Width = vg.Points(1.5)
	p.Add(fit)
	return res, nil
}

// histogramPlotter draws h as filled steps.
func histogramPlotter(h *histogram.Histogram, c color.RGBA) *plotter.Histogram {
	bins := make([]plotter.HistogramBin, h.Len())
	for i := range bins {
		bins[i] = plotter.HistogramBin{Min: h.Edges[i], Max: h.Edges[i+1], Weight: h.Counts[i]}
	}
	hist := &plotter.Histogram{
		Bins:      bins,
		Width:     h.Width(),
		FillColor: translucent(c),
		LineStyle: plotter.DefaultLineStyle,
	}
	hist.LineStyle.Color = c
	return hist
}

// Style labels the axes, the x label flush right and the y label at the top.
func Style(p *plot.Plot, xlabel, ylabel string) {
	p.BackgroundColor = colornames.White

	p.X.Label.Text = xlabel
	p.X.Label.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Position = draw.PosRight
	p.Y.Label.Text = ylabel
	p.Y.Label.TextStyle.Font.Size = vg.Points(14)
	p.Y.Label.Position = draw.PosTop

	p.X.Tick.Label.Font.Size = vg.Points(12)
	p.Y.Tick.Label.Font.Size = vg.Points(12)

	p.Legend.Top = true
	p.Legend.TextStyle.Font.Size = vg.Points(12)
}

// Save writes p to path in the format given by its extension
// (png, svg, pdf, eps, jpg, tif).  Zero sizes select the defaults.
func Save(p *plot.Plot, path string, width, height vg.Length) error {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("plotting: %w", err)
	}
	logging.Log.Infof("Saved plot <%s>", path)
	return nil
}
