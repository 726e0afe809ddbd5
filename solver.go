package govarcore

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/cwbudde/algo-vecmath"
	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Method selects the minimiser used by Solver.
type Method string

const (
	MethodLM         Method = "lm"
	MethodNelderMead Method = "nelder-mead"
	MethodLBFGS      Method = "lbfgs"
	MethodNewton     Method = "newton"
	MethodGD         Method = "gd"
)

// Methods lists every supported minimiser, Levenberg-Marquardt first.
var Methods = []Method{MethodLM, MethodNelderMead, MethodLBFGS, MethodNewton, MethodGD}

// ParseMethod accepts a method name case-insensitively. "nm" is an alias of
// nelder-mead and the empty string selects lm.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lm":
		return MethodLM, nil
	case "nm", "nelder-mead", "neldermead":
		return MethodNelderMead, nil
	case "lbfgs":
		return MethodLBFGS, nil
	case "newton":
		return MethodNewton, nil
	case "gd":
		return MethodGD, nil
	}
	return "", fmt.Errorf("unknown method %q: %w", s, ErrMalformedInput)
}

// Result of a single minimisation.
type Result struct {
	Params   []float64
	Min      float64
	MinUnit  string
	Method   Method
	Iters    int
	FuncEval int
	Runtime  time.Duration
}

// Default iteration caps of the minimisers.
const (
	DefaultLMIterations    = 10000
	DefaultMajorIterations = 20000
)

// Solver fits a Model to a light curve by minimising the error weighted
// residuals (mag - model)/err.
type Solver struct {
	Model      Model
	Curve      LightCurve
	InitValues []float64
	Method     Method
	// MaxIterations caps the minimiser, 0 selects DefaultLMIterations or
	// DefaultMajorIterations. Hitting the cap is a fitting failure.
	MaxIterations int
	Quiet         bool

	weights []float64
}

func NewSolver(model Model, lc LightCurve, init []float64) *Solver {
	return &Solver{Model: model, Curve: lc, InitValues: init, Method: MethodLM}
}

func (s *Solver) residuals(dst, x []float64) {
	for i, t := range s.Curve.Time {
		dst[i] = s.Curve.Mag[i] - s.Model.Eval(t, x)
	}
	vecmath.MulBlockInPlace(dst, s.weights)
}

func (s *Solver) problem(x []float64) float64 {
	r := make([]float64, s.Curve.Len())
	s.residuals(r, x)
	sum := 0.0
	for _, v := range r {
		sum += v * v
	}
	return sum / float64(len(r))
}

func (s *Solver) prepare() error {
	if s.Model == nil {
		return fmt.Errorf("solver has no model: %w", ErrMalformedInput)
	}
	if err := s.Curve.validateWeighted(); err != nil {
		return err
	}
	if len(s.InitValues) != s.Model.NumParams() {
		return fmt.Errorf("got %d initial values, model expects %d: %w",
			len(s.InitValues), s.Model.NumParams(), ErrMalformedInput)
	}
	if s.Curve.Len() < len(s.InitValues) {
		return fmt.Errorf("%d samples cannot constrain %d parameters: %w",
			s.Curve.Len(), len(s.InitValues), ErrFittingFailure)
	}
	s.weights = s.Curve.Weights()
	return nil
}

// Solve runs the configured minimiser. A diverged or non-finite solution is
// reported as ErrFittingFailure.
func (s *Solver) Solve() (Result, error) {
	if err := s.prepare(); err != nil {
		return Result{}, err
	}

	start := time.Now()
	var (
		res Result
		err error
	)
	switch s.Method {
	case MethodLM, "":
		res, err = s.lmSolve()
	case MethodNelderMead:
		res, err = s.minimize(&optimize.NelderMead{}, false, false)
	case MethodLBFGS:
		res, err = s.minimize(&optimize.LBFGS{}, true, false)
	case MethodNewton:
		res, err = s.minimize(&optimize.Newton{}, true, true)
	case MethodGD:
		res, err = s.minimize(&optimize.GradientDescent{}, true, false)
	default:
		return Result{}, fmt.Errorf("unknown method %q: %w", s.Method, ErrMalformedInput)
	}
	if err != nil {
		return Result{}, err
	}

	for i, v := range res.Params {
		if !finite(v) {
			return Result{}, fmt.Errorf("%s produced a non-finite parameter at %d: %w", s.Method, i, ErrFittingFailure)
		}
	}
	res.Min = s.problem(res.Params)
	if !finite(res.Min) {
		return Result{}, fmt.Errorf("%s produced a non-finite chi^2: %w", s.Method, ErrFittingFailure)
	}
	res.MinUnit = "ChiSq"
	res.Runtime = time.Since(start)
	return res, nil
}

func (s *Solver) logf(format string, args ...interface{}) {
	if !s.Quiet {
		log.Printf(format, args...)
	}
}

func (s *Solver) iterations(def int) int {
	if s.MaxIterations > 0 {
		return s.MaxIterations
	}
	return def
}

// converged reports whether a gonum termination status is a convergence.
func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.FunctionThreshold, optimize.FunctionConvergence,
		optimize.GradientThreshold, optimize.StepConvergence, optimize.MethodConverge:
		return true
	}
	return false
}

// limited reports whether the minimiser stopped on a budget or failed.
func limited(status optimize.Status) bool {
	switch status {
	case optimize.Failure, optimize.IterationLimit, optimize.RuntimeLimit,
		optimize.FunctionEvaluationLimit, optimize.GradientEvaluationLimit,
		optimize.HessianEvaluationLimit:
		return true
	}
	return false
}

func (s *Solver) lmSolve() (res Result, err error) {
	s.logf("LM Solve Mode")

	jac := lm.NumJac{Func: s.residuals}

	problem := lm.LMProblem{
		Dim:        len(s.InitValues),
		Size:       s.Curve.Len(),
		Func:       s.residuals,
		Jac:        jac.Jac,
		InitParams: cloneFloats(s.InitValues),
		Tau:        1e-13,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	// Recover from LM panics (e.g., singular matrix)
	defer func() {
		if r := recover(); r != nil {
			s.logf("LM optimization panicked: %v", r)
			res, err = Result{}, fmt.Errorf("levenberg-marquardt panicked: %v: %w", r, ErrFittingFailure)
		}
	}()

	out, lmErr := lm.LM(problem, &lm.Settings{Iterations: s.iterations(DefaultLMIterations), ObjectiveTol: 1e-16})
	if lmErr != nil {
		s.logf("LM optimization failed: %v", lmErr)
		return Result{}, fmt.Errorf("levenberg-marquardt: %v: %w", lmErr, ErrFittingFailure)
	}
	if limited(out.Status) {
		s.logf("LM optimization did not converge: %v", out.Status)
		return Result{}, fmt.Errorf("levenberg-marquardt stopped with %v: %w", out.Status, ErrFittingFailure)
	}
	return Result{Params: out.X, Method: MethodLM}, nil
}

func (s *Solver) minimize(method optimize.Method, withGrad, withHess bool) (Result, error) {
	s.logf("%s Solve Mode", s.Method)

	problem := optimize.Problem{Func: s.problem}
	if withGrad {
		problem.Grad = func(grad, x []float64) {
			fd.Gradient(grad, s.problem, x, nil)
		}
	}
	if withHess {
		problem.Hess = func(h *mat.SymDense, x []float64) {
			fd.Hessian(h, s.problem, x, nil)
		}
	}

	settings := &optimize.Settings{
		MajorIterations: s.iterations(DefaultMajorIterations),
	}

	out, err := optimize.Minimize(problem, cloneFloats(s.InitValues), settings, method)
	if err != nil {
		s.logf("%s optimization failed: %v", s.Method, err)
		return Result{}, fmt.Errorf("%s: %v: %w", s.Method, err, ErrFittingFailure)
	}
	if !converged(out.Status) {
		s.logf("%s optimization did not converge: %v", s.Method, out.Status)
		return Result{}, fmt.Errorf("%s stopped with %v after %d iterations: %w",
			s.Method, out.Status, out.MajorIterations, ErrFittingFailure)
	}

	return Result{
		Params:   out.X,
		Method:   s.Method,
		Iters:    out.MajorIterations,
		FuncEval: out.FuncEvaluations,
	}, nil
}

// ChiSq is the mean squared error weighted residual of model p over lc.
func ChiSq(lc LightCurve, model Model, p []float64) float64 {
	if lc.Len() == 0 {
		return math.NaN()
	}
	s := &Solver{Model: model, Curve: lc, weights: lc.Weights()}
	return s.problem(p)
}

func (s *Solver) Clone() *Solver {
	newS := *s
	newS.Curve = s.Curve.Clone()
	newS.InitValues = cloneFloats(s.InitValues)
	newS.weights = cloneFloats(s.weights)
	return &newS
}

func cloneFloats(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
