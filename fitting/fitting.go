// Package fitting performs bounded nonlinear least-squares fits of a
// Gaussian peak to histogram data.
package fitting

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

var (
	ErrNotConverged = errors.New("fitting: optimal parameters not found")
	ErrTooFewPoints = errors.New("fitting: fewer points than parameters")
)

// DefaultMaxEvaluations bounds the number of model evaluations per fit.
const DefaultMaxEvaluations = 1000

const nParams = 3

const (
	// stepTolerance bounds the relative parameter change of a converged
	// Levenberg-Marquardt step.
	stepTolerance = 1.49012e-8
	maxDamping    = 1e12
)

// Gaus is A * exp(-(x-mu)^2 / (2*sigma^2)).
func Gaus(x, a, mu, sigma float64) float64 {
	d := x - mu
	return a * math.Exp(-d*d/(2*sigma*sigma))
}

// Params are the three Gaussian parameters.
type Params struct {
	Amplitude float64 `json:"amplitude"`
	Mu        float64 `json:"mu"`
	Sigma     float64 `json:"sigma"`
}

func (p Params) vector() []float64 { return []float64{p.Amplitude, p.Mu, p.Sigma} }

func paramsOf(v []float64) Params { return Params{Amplitude: v[0], Mu: v[1], Sigma: v[2]} }

// Eval evaluates the model with these parameters.
func (p Params) Eval(x float64) float64 { return Gaus(x, p.Amplitude, p.Mu, p.Sigma) }

// Settings bound the solver.
type Settings struct {
	// MaxEvaluations caps model evaluations; zero selects DefaultMaxEvaluations.
	MaxEvaluations int
	// Tolerance is the relative change of the residual sum below which the
	// fit is considered converged; zero selects 1e-10.
	Tolerance float64
}

// Result of one fit.  Errors are one-sigma uncertainties from the
// covariance scaled by the reduced chi-square.
type Result struct {
	Params      Params  `json:"params"`
	Errors      Params  `json:"errors"`
	SSR         float64 `json:"ssr"`
	Evaluations int     `json:"evaluations"`
	Status      string  `json:"status"`
}

// Fit solves for the Gaussian through (x, y) starting from seed.  It
// returns an error wrapping ErrNotConverged when the solver gives up or
// hits its evaluation limit.
func Fit(x, y []float64, seed Params, s Settings) (Result, error) {
	if len(x) != len(y) {
		return Result{}, fmt.Errorf("fitting: %d x values but %d y values", len(x), len(y))
	}
	if len(x) < nParams {
		return Result{}, ErrTooFewPoints
	}
	if s.MaxEvaluations <= 0 {
		s.MaxEvaluations = DefaultMaxEvaluations
	}
	if s.Tolerance <= 0 {
		s.Tolerance = 1e-10
	}

	m := &model{x: x, y: y}
	problem := optimize.Problem{
		Func: m.ssr,
		Grad: m.grad,
		Hess: m.hess,
	}
	settings := &optimize.Settings{
		FuncEvaluations: s.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   s.Tolerance,
			Iterations: 5,
		},
	}

	res, err := optimize.Minimize(problem, seed.vector(), settings, &optimize.Newton{})
	if res == nil {
		return Result{Status: "failure"}, fmt.Errorf("%w: %v", ErrNotConverged, err)
	}
	p, ssr := res.X, res.F
	out := Result{
		Evaluations: res.Stats.FuncEvaluations,
		Status:      res.Status.String(),
	}
	if err != nil || !converged(res.Status) {
		if limited(res.Status) {
			out.Params, out.SSR = paramsOf(p), ssr
			return out, fmt.Errorf("%w: solver stopped with status %s after %d evaluations", ErrNotConverged, res.Status, out.Evaluations)
		}
		// the line search gives up once it cannot lower the residual sum
		// detectably; damped Gauss-Newton steps from there tell a minimum
		// from a stall
		lm := m.levenberg(p, s.MaxEvaluations-out.Evaluations, s.Tolerance)
		out.Evaluations += lm.evaluations
		if !lm.converged {
			out.Params, out.SSR = paramsOf(lm.x), lm.f
			if err == nil {
				err = fmt.Errorf("solver stopped with status %s", res.Status)
			}
			return out, fmt.Errorf("%w: %v after %d evaluations", ErrNotConverged, err, out.Evaluations)
		}
		p, ssr = lm.x, lm.f
		out.Status = "LevenbergMarquardt"
	}
	out.Params, out.SSR = paramsOf(p), ssr
	out.Params.Sigma = math.Abs(out.Params.Sigma)
	if !finite(p) || !finite([]float64{ssr}) || out.Params.Sigma == 0 || out.Params.Amplitude == 0 {
		return out, fmt.Errorf("%w: degenerate parameters %+v", ErrNotConverged, out.Params)
	}

	errs, ok := m.stdErrors(p, ssr)
	if !ok {
		out.Status = "covariance-singular"
	}
	out.Errors = paramsOf(errs)
	return out, nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionThreshold, optimize.FunctionConvergence,
		optimize.GradientThreshold, optimize.StepConvergence, optimize.MethodConverge:
		return true
	}
	return false
}

func limited(s optimize.Status) bool {
	switch s {
	case optimize.IterationLimit, optimize.RuntimeLimit, optimize.FunctionEvaluationLimit,
		optimize.GradientEvaluationLimit, optimize.HessianEvaluationLimit:
		return true
	}
	return false
}

func finite(v []float64) bool {
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

type model struct {
	x, y []float64
}

// residuals and Jacobian rows of r_i = f(x_i) - y_i
func (m *model) jacobianRow(xi float64, p []float64, row []float64) float64 {
	a, mu, sigma := p[0], p[1], p[2]
	d := xi - mu
	e := math.Exp(-d * d / (2 * sigma * sigma))
	row[0] = e
	row[1] = a * e * d / (sigma * sigma)
	row[2] = a * e * d * d / (sigma * sigma * sigma)
	return a * e
}

func (m *model) ssr(p []float64) float64 {
	var sum float64
	for i, xi := range m.x {
		r := Gaus(xi, p[0], p[1], p[2]) - m.y[i]
		sum += r * r
	}
	return sum
}

func (m *model) grad(grad, p []float64) {
	for j := range grad {
		grad[j] = 0
	}
	row := make([]float64, nParams)
	for i, xi := range m.x {
		r := m.jacobianRow(xi, p, row) - m.y[i]
		for j := 0; j < nParams; j++ {
			grad[j] += 2 * r * row[j]
		}
	}
}

// hess is the Gauss-Newton approximation 2 J^T J; optimize.Newton adds
// a multiple of the identity when it is not positive definite.
func (m *model) hess(h *mat.SymDense, p []float64) {
	jtj := m.normal(p)
	for i := 0; i < nParams; i++ {
		for j := i; j < nParams; j++ {
			h.SetSym(i, j, 2*jtj.At(i, j))
		}
	}
}

func (m *model) normal(p []float64) *mat.SymDense {
	jtj := mat.NewSymDense(nParams, nil)
	row := make([]float64, nParams)
	for _, xi := range m.x {
		m.jacobianRow(xi, p, row)
		for i := 0; i < nParams; i++ {
			for j := i; j < nParams; j++ {
				jtj.SetSym(i, j, jtj.At(i, j)+row[i]*row[j])
			}
		}
	}
	return jtj
}

// stdErrors returns sqrt(diag(s^2 (J^T J)^-1)) with s^2 = SSR/(n-p).
// Without spare degrees of freedom or with a singular J^T J the errors
// are zero and ok is false.
func (m *model) stdErrors(p []float64, ssr float64) ([]float64, bool) {
	errs := make([]float64, nParams)
	dof := len(m.x) - nParams
	if dof <= 0 {
		return errs, false
	}
	var chol mat.Cholesky
	if !chol.Factorize(m.normal(p)) {
		return errs, false
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return errs, false
	}
	s2 := ssr / float64(dof)
	for i := range errs {
		v := cov.At(i, i) * s2
		if v < 0 || math.IsNaN(v) {
			return make([]float64, nParams), false
		}
		errs[i] = math.Sqrt(v)
	}
	return errs, true
}

type lmResult struct {
	x           []float64
	f           float64
	evaluations int
	converged   bool
}

// levenberg runs Levenberg-Marquardt iterations from p0 within budget
// evaluations.  A step converges when it changes every parameter by less
// than stepTolerance relative to its value or lowers the residual sum by
// less than ftol relative to it.  When no step lowers the residual sum
// up to maxDamping, p is a minimum to working precision.
func (m *model) levenberg(p0 []float64, budget int, ftol float64) lmResult {
	out := lmResult{x: append([]float64(nil), p0...)}
	if budget <= 0 || !finite(p0) {
		return out
	}
	out.f = m.ssr(out.x)
	out.evaluations++
	if math.IsNaN(out.f) || math.IsInf(out.f, 0) {
		return out
	}

	grad := make([]float64, nParams)
	trial := make([]float64, nParams)
	rhs := mat.NewVecDense(nParams, nil)
	damped := mat.NewSymDense(nParams, nil)
	var step mat.VecDense
	lambda := 1e-3
	for {
		if out.f == 0 {
			out.converged = true
			return out
		}
		jtj := m.normal(out.x)
		m.grad(grad, out.x)
		for j, g := range grad {
			rhs.SetVec(j, -g/2)
		}

		accepted := false
		for !accepted {
			if lambda > maxDamping {
				out.converged = finite(out.x)
				return out
			}
			if out.evaluations >= budget {
				return out
			}
			damped.CopySym(jtj)
			for j := 0; j < nParams; j++ {
				d := jtj.At(j, j)
				if d == 0 {
					d = 1
				}
				damped.SetSym(j, j, jtj.At(j, j)+lambda*d)
			}
			var chol mat.Cholesky
			if !chol.Factorize(damped) || chol.SolveVecTo(&step, rhs) != nil {
				lambda *= 10
				continue
			}
			small := true
			for j := range trial {
				dj := step.AtVec(j)
				trial[j] = out.x[j] + dj
				if math.Abs(dj) > stepTolerance*(math.Abs(out.x[j])+stepTolerance) {
					small = false
				}
			}
			f := m.ssr(trial)
			out.evaluations++
			if !(f < out.f) {
				lambda *= 10
				continue
			}
			reduction := (out.f - f) / out.f
			copy(out.x, trial)
			out.f = f
			if lambda < 1 && (small || reduction <= ftol) {
				out.converged = true
				return out
			}
			lambda = math.Max(lambda/10, 1e-12)
			accepted = true
		}
	}
}
