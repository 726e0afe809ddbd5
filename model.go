package govarcore

import (
	"fmt"
	"math"
)

// Model is a parametric curve the solver can fit.
type Model interface {
	NumParams() int
	Eval(t float64, p []float64) float64
}

// CombinationModel is the final sum of sines in which only the basis
// frequencies are free. Parameters are
// [f_1..f_M, a_1, phi_1, ..., a_N, phi_N, y0] and every term frequency is the
// dot product of its matrix row with the fitted basis.
type CombinationModel struct {
	Matrix CombinationMatrix
}

func (m CombinationModel) NumParams() int {
	return m.Matrix.BasisSize() + 2*m.Matrix.Rows() + 1
}

// Frequencies returns the term frequencies for parameter vector p.
func (m CombinationModel) Frequencies(p []float64) []float64 {
	return m.Matrix.Frequencies(p[:m.Matrix.BasisSize()])
}

func (m CombinationModel) Eval(t float64, p []float64) float64 {
	size := m.Matrix.BasisSize()
	basis := p[:size]
	y := p[len(p)-1]
	for i, row := range m.Matrix {
		f := Coefficients(row).Dot(basis)
		j := size + 2*i
		y += p[j] * math.Sin(twoPi*f*t+p[j+1])
	}
	return y
}

// SeedParameters assembles the starting point of the final fit from the
// linear pre-fit: basis frequencies, (amplitude, phase) pairs and the sum of
// all per-term offsets as the single shared offset.
func SeedParameters(approx []ApproximateSine, basis []float64) []float64 {
	p := make([]float64, 0, len(basis)+2*len(approx)+1)
	p = append(p, basis...)

	offset := 0.0
	for _, s := range approx {
		p = append(p, s.Amplitude, s.Phase)
		offset += s.YIntercept
	}
	return append(p, offset)
}

// FinalParameters reshapes a fitted CombinationModel vector into Params,
// recomputing every frequency from the fitted basis and normalizing phases.
func FinalParameters(fit []float64, m CombinationMatrix) (Params, error) {
	model := CombinationModel{Matrix: m}
	if len(fit) != model.NumParams() {
		return Params{}, fmt.Errorf("fit has %d parameters, model expects %d: %w",
			len(fit), model.NumParams(), ErrMalformedInput)
	}

	size := m.BasisSize()
	freqs := model.Frequencies(fit)

	p := Params{YIntercept: fit[len(fit)-1], Sines: make([]Sine, m.Rows())}
	for i := range p.Sines {
		j := size + 2*i
		p.Sines[i] = Sine{
			Amplitude: fit[j],
			Frequency: freqs[i],
			Phase:     NormalizePhase(fit[j+1]),
		}
	}
	return p, nil
}
