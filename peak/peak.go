// Package peak extracts the peak position and width of one channel
// histogram.  A channel that cannot be binned or fitted degrades to
// placeholder parameters so a campaign keeps going.
package peak

import (
	"errors"

	"github.com/project8/pmana/Go/logging"
	"github.com/project8/pmana/fitting"
	"github.com/project8/pmana/histogram"
)

var ErrNoEntries = errors.New("peak: histogram has no entries")

// Options for one channel analysis.
type Options struct {
	// Rebin halves the resolution by keeping every other bin edge.
	Rebin bool
	Seed  histogram.SeedOptions
	Fit   fitting.Settings
}

// Result of one channel.  When Converged is false, Params and Errors
// hold zero placeholders and Reason says why.
type Result struct {
	Channel   string         `json:"channel"`
	Params    fitting.Params `json:"params"`
	Errors    fitting.Params `json:"errors"`
	Converged bool           `json:"converged"`
	Reason    string         `json:"reason,omitempty"`
	Seed      histogram.Seed `json:"seed"`
	Mean      float64        `json:"mean"`
	RMS       float64        `json:"rms"`
	Bins      int            `json:"bins"`
	Entries   float64        `json:"entries"`
}

// Peak returns (mu, error on mu).
func (r Result) Peak() (float64, float64) { return r.Params.Mu, r.Errors.Mu }

// Width returns (sigma, error on sigma).
func (r Result) Width() (float64, float64) { return r.Params.Sigma, r.Errors.Sigma }

// Analyze bins one channel's (center, population) samples, seeds and fits
// the Gaussian.  It never fails: problems are logged and reported through
// Result.Converged and Result.Reason.  The histogram is returned for
// plotting and is nil when binning failed.
func Analyze(name string, centers, populations []float64, opts Options) (Result, *histogram.Histogram) {
	res := Result{Channel: name}

	h, err := histogram.Build(centers, populations, opts.Rebin)
	if err != nil {
		return fallback(res, err), nil
	}
	res.Bins = h.Len()
	res.Entries = h.Total()
	res.Mean, res.RMS = h.Moments()
	if !(res.Entries > 0) {
		return fallback(res, ErrNoEntries), h
	}

	seed, err := h.EstimateSeed(opts.Seed)
	if err != nil {
		return fallback(res, err), h
	}
	res.Seed = seed
	logging.Log.Debugf("channel %s: peak position %v, candidate std. deviation %v, amplitude %v",
		name, seed.Mu, seed.Sigma, seed.Amplitude)

	fit, err := fitting.Fit(h.Centers(), h.Counts,
		fitting.Params{Amplitude: seed.Amplitude, Mu: seed.Mu, Sigma: seed.Sigma}, opts.Fit)
	if err != nil {
		return fallback(res, err), h
	}
	if fit.Status == "covariance-singular" {
		logging.Log.Warningf("channel %s: covariance of the parameters could not be estimated", name)
	}
	res.Params = fit.Params
	res.Errors = fit.Errors
	res.Converged = true
	logging.Log.Debugf("channel %s: fit parameters %+v (%d evaluations, %s)", name, fit.Params, fit.Evaluations, fit.Status)
	return res, h
}

func fallback(res Result, err error) Result {
	logging.Log.Warningf("channel %s: %v; using placeholder parameters", res.Channel, err)
	res.Params = fitting.Params{}
	res.Errors = fitting.Params{}
	res.Converged = false
	res.Reason = err.Error()
	return res
}
