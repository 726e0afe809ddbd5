package govarcore

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/mat"
)

// rcond is the relative singular value cut-off of the linear pre-fit.
const rcond = 1e-12

// ApproximateModel is the linearized sum of sines
// sum_i A_i*sin(2*pi*f_i*t) + B_i*cos(2*pi*f_i*t) + C_i
// with parameters laid out as [A1, B1, C1, A2, B2, C2, ...].
type ApproximateModel struct {
	Frequencies []float64
}

func (m ApproximateModel) NumParams() int {
	return 3 * len(m.Frequencies)
}

func (m ApproximateModel) Eval(t float64, p []float64) float64 {
	y := 0.0
	for i, f := range m.Frequencies {
		j := 3 * i
		x := twoPi * f * t
		y += p[j]*math.Sin(x) + p[j+1]*math.Cos(x) + p[j+2]
	}
	return y
}

// ApproximateSine is one term of the linear pre-fit in polar form.
type ApproximateSine struct {
	Amplitude  float64
	Frequency  float64
	Phase      float64
	YIntercept float64
}

// FitApproximateCurve solves the weighted linear least squares problem of the
// ApproximateModel. The per-frequency offsets are collinear, so the minimum
// norm solution is returned; their sum is the offset of the data.
func FitApproximateCurve(lc LightCurve, frequencies []float64) ([]float64, error) {
	if len(frequencies) == 0 {
		return nil, fmt.Errorf("no frequencies to fit: %w", ErrMalformedInput)
	}
	if err := lc.validateWeighted(); err != nil {
		return nil, err
	}

	n, nf := lc.Len(), len(frequencies)
	cols := 3 * nf
	if n < 2*nf+1 {
		return nil, fmt.Errorf("%d samples cannot constrain %d frequencies: %w", n, nf, ErrFittingFailure)
	}

	w := lc.Weights()
	wy := make([]float64, n)
	vecmath.MulBlock(wy, lc.Mag, w)

	design := mat.NewDense(n, cols, nil)
	for i, t := range lc.Time {
		for k, f := range frequencies {
			x := twoPi * f * t
			design.Set(i, 3*k, w[i]*math.Sin(x))
			design.Set(i, 3*k+1, w[i]*math.Cos(x))
			design.Set(i, 3*k+2, w[i])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(design, mat.SVDThin); !ok {
		return nil, fmt.Errorf("SVD factorization failed: %w", ErrFittingFailure)
	}

	// One shared offset direction plus a sin and a cos column per frequency.
	rank := svd.Rank(rcond)
	if rank < 2*nf+1 {
		return nil, fmt.Errorf("singular linear system: rank %d < %d: %w", rank, 2*nf+1, ErrFittingFailure)
	}

	var x mat.VecDense
	svd.SolveVecTo(&x, mat.NewVecDense(n, wy), rank)

	params := make([]float64, cols)
	for i := range params {
		params[i] = x.AtVec(i)
		if !finite(params[i]) {
			return nil, fmt.Errorf("non-finite linear parameter at %d: %w", i, ErrFittingFailure)
		}
	}
	return params, nil
}

// ConvertLinearToPolar turns A*sin(x) + B*cos(x) into an amplitude and a
// phase of amplitude*sin(x + phase), the phase lying in [0, 2*pi).
func ConvertLinearToPolar(a, b float64) (amplitude, phase float64) {
	amplitude = math.Hypot(a, b)
	phase = math.Atan2(b, a)
	if phase < 0 {
		phase += twoPi
	}
	return amplitude, phase
}

// ConvertLinearParameters returns a copy of [A1, B1, C1, ...] with every
// (A, B) pair replaced by (amplitude, phase).
func ConvertLinearParameters(params []float64) ([]float64, error) {
	if len(params)%3 != 0 {
		return nil, fmt.Errorf("linear parameter vector of length %d is not 3n: %w", len(params), ErrMalformedInput)
	}

	n := len(params) / 3
	re := make([]float64, n)
	im := make([]float64, n)
	for i := 0; i < n; i++ {
		re[i] = params[3*i]
		im[i] = params[3*i+1]
	}
	amps := make([]float64, n)
	vecmath.Magnitude(amps, re, im)

	out := make([]float64, len(params))
	copy(out, params)
	for i := 0; i < n; i++ {
		_, ph := ConvertLinearToPolar(re[i], im[i])
		out[3*i] = amps[i]
		out[3*i+1] = ph
	}
	return out, nil
}

// ApproximateParameters runs the linear pre-fit and returns every term in
// polar form together with its frequency.
func ApproximateParameters(lc LightCurve, frequencies []float64) ([]ApproximateSine, error) {
	linear, err := FitApproximateCurve(lc, frequencies)
	if err != nil {
		return nil, err
	}
	polar, err := ConvertLinearParameters(linear)
	if err != nil {
		return nil, err
	}

	sines := make([]ApproximateSine, len(frequencies))
	for i, f := range frequencies {
		sines[i] = ApproximateSine{
			Amplitude:  polar[3*i],
			Frequency:  f,
			Phase:      polar[3*i+1],
			YIntercept: polar[3*i+2],
		}
	}
	return sines, nil
}
