package govarcore

import (
	"fmt"
	"log"
	"time"
)

// FitOptions configures FitFinalCurve and FitIndependent.
type FitOptions struct {
	Bounds Bounds
	Method Method
	// MaxIterations caps the minimiser, 0 keeps the method default.
	MaxIterations int
	Quiet         bool
}

func (o FitOptions) logf(format string, args ...interface{}) {
	if !o.Quiet {
		log.Printf(format, args...)
	}
}

func (o FitOptions) solver(model Model, lc LightCurve, init []float64) *Solver {
	s := NewSolver(model, lc, init)
	if o.Method != "" {
		s.Method = o.Method
	}
	s.MaxIterations = o.MaxIterations
	s.Quiet = o.Quiet
	return s
}

func DefaultFitOptions() FitOptions {
	return FitOptions{Bounds: DefaultBounds(), Method: MethodLM}
}

// Fit is the outcome of a complete fit.
type Fit struct {
	Params Params
	// Basis and Matrix are empty for the independent path.
	Basis   []float64
	Matrix  CombinationMatrix
	ChiSq   float64
	Method  Method
	Iters   int
	Runtime time.Duration
}

// Residuals returns a copy of lc with the fitted model subtracted.
func (f *Fit) Residuals(lc LightCurve) LightCurve {
	return Residuals(lc, f.Params)
}

// FitFinalCurve fits a sum of sines in which every frequency that is a linear
// combination of smaller ones stays locked to that combination. Only the
// basis frequencies, the amplitudes, the phases and a single offset are free.
func FitFinalCurve(lc LightCurve, frequencies []float64, opts FitOptions) (*Fit, error) {
	start := time.Now()
	if err := lc.validateWeighted(); err != nil {
		return nil, err
	}

	basis, matrix, err := FrequenciesCombination(frequencies, opts.Bounds)
	if err != nil {
		return nil, err
	}
	opts.logf("basis: %v, %d dependent frequencies", basis, matrix.Rows()-len(basis))

	approx, err := ApproximateParameters(lc, matrix.Frequencies(basis))
	if err != nil {
		return nil, fmt.Errorf("linear pre-fit: %w", err)
	}

	solver := opts.solver(CombinationModel{Matrix: matrix}, lc, SeedParameters(approx, basis))
	res, err := solver.Solve()
	if err != nil {
		return nil, fmt.Errorf("final fit: %w", err)
	}

	params, err := FinalParameters(res.Params, matrix)
	if err != nil {
		return nil, err
	}
	opts.logf("final fit done: method=%s chi2=%.6g in %s", res.Method, res.Min, time.Since(start))

	return &Fit{
		Params:  params,
		Basis:   basis,
		Matrix:  matrix,
		ChiSq:   res.Min,
		Method:  res.Method,
		Iters:   res.Iters,
		Runtime: time.Since(start),
	}, nil
}

// FitIndependent treats every frequency as free. Each one is first fitted alone
// to a prewhitened copy of the data, in input order, and the collected sines
// seed one fit of the whole sum. Amplitudes are made non-negative afterwards.
func FitIndependent(lc LightCurve, frequencies []float64, method Method) (*Fit, error) {
	opts := DefaultFitOptions()
	opts.Method = method
	return FitIndependentWithOptions(lc, frequencies, opts)
}

// FitIndependentWithOptions is FitIndependent with the solver settings of
// opts. Bounds are not used on this path.
func FitIndependentWithOptions(lc LightCurve, frequencies []float64, opts FitOptions) (*Fit, error) {
	start := time.Now()
	if err := lc.validateWeighted(); err != nil {
		return nil, err
	}
	if err := validateFrequencies(frequencies); err != nil {
		return nil, err
	}

	work := lc.Clone()
	seed := Params{Sines: make([]Sine, 0, len(frequencies))}
	for _, f := range frequencies {
		approx, err := ApproximateParameters(work, []float64{f})
		if err != nil {
			return nil, fmt.Errorf("single sine pre-fit at %v: %w", f, err)
		}
		a := approx[0]
		term := Params{
			YIntercept: a.YIntercept,
			Sines:      []Sine{{Amplitude: a.Amplitude, Frequency: f, Phase: a.Phase}},
		}
		SubtractModelInPlace(work, term)

		seed.YIntercept += a.YIntercept
		seed.Sines = append(seed.Sines, term.Sines[0])
	}

	solver := opts.solver(SinesSumModel{Terms: len(frequencies)}, lc, seed.Vector())
	res, err := solver.Solve()
	if err != nil {
		return nil, fmt.Errorf("independent fit: %w", err)
	}

	params, err := ParamsFromVector(res.Params)
	if err != nil {
		return nil, err
	}
	for i, s := range params.Sines {
		params.Sines[i] = NormalizeAmplitude(s)
	}
	opts.logf("independent fit done: method=%s chi2=%.6g in %s", res.Method, res.Min, time.Since(start))

	return &Fit{
		Params:  params,
		ChiSq:   res.Min,
		Method:  res.Method,
		Iters:   res.Iters,
		Runtime: time.Since(start),
	}, nil
}
