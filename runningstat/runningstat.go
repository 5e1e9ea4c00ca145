package runningstat

import (
	"math"
)

type StatRunner struct {
	n_upd uint64

	/*
	   Running weighted mean and variance after West '79, which
	   reduces to Welford '62 when every weight is one.  W is the
	   sum of weights, so histogram bins can be fed as (center, count).
	*/
	W, μ, σsq float64

	lo, hi float64
}

func (r *StatRunner) Reset() *StatRunner {
	*r = StatRunner{}
	return r
}

func (r *StatRunner) Update(x float64) *StatRunner {
	return r.UpdateWeighted(x, 1)
}

// UpdateWeighted adds x with weight w.  Non-positive weights are ignored.
func (r *StatRunner) UpdateWeighted(x, w float64) *StatRunner {
	if !(w > 0) {
		return r
	}
	r.n_upd++
	if r.n_upd == 1 {
		r.lo, r.hi = x, x
	} else {
		r.lo = math.Min(r.lo, x)
		r.hi = math.Max(r.hi, x)
	}
	r.W += w
	lastm := r.μ
	r.μ += (x - lastm) * w / r.W
	r.σsq += w * (x - lastm) * (x - r.μ)
	return r
}

// Count is the number of accepted updates, regardless of weight.
func (r *StatRunner) Count() uint64 {
	return r.n_upd
}

func (r *StatRunner) Mean() float64 {
	return r.μ
}

// Variance uses frequency-weight normalisation, W-1.
func (r *StatRunner) Variance() float64 {
	if r.n_upd > 1 && r.W > 1 {
		return r.σsq / (r.W - 1)
	}
	return 0
}

func (r *StatRunner) StdDev() float64 {
	return math.Sqrt(r.Variance())
}

// RMS is the population spread about the mean, normalised by W.
func (r *StatRunner) RMS() float64 {
	if r.W > 0 {
		return math.Sqrt(r.σsq / r.W)
	}
	return 0
}

func (r *StatRunner) Min() float64 {
	return r.lo
}

func (r *StatRunner) Max() float64 {
	return r.hi
}
