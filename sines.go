package govarcore

import (
	"fmt"
	"math"
)

const twoPi = 2 * math.Pi

// Sine is a single term amplitude*sin(2*pi*frequency*t + phase).
type Sine struct {
	Amplitude float64 `json:"amplitude"`
	Frequency float64 `json:"frequency"`
	Phase     float64 `json:"phase"`
}

func (s Sine) Eval(t float64) float64 {
	return s.Amplitude * math.Sin(twoPi*s.Frequency*t+s.Phase)
}

// Params is the canonical fit result: one shared offset and a sine per
// resolved frequency.
type Params struct {
	YIntercept float64 `json:"y_intercept"`
	Sines      []Sine  `json:"sines"`
}

// Eval computes y0 plus the sum of all sines.
func (p Params) Eval(t float64) float64 {
	y := p.YIntercept
	for _, s := range p.Sines {
		y += s.Eval(t)
	}
	return y
}

func (p Params) Frequencies() []float64 {
	freqs := make([]float64, len(p.Sines))
	for i, s := range p.Sines {
		freqs[i] = s.Frequency
	}
	return freqs
}

// Vector flattens the parameters into [y0, a1, f1, p1, a2, f2, p2, ...].
func (p Params) Vector() []float64 {
	v := make([]float64, 0, 1+3*len(p.Sines))
	v = append(v, p.YIntercept)
	for _, s := range p.Sines {
		v = append(v, s.Amplitude, s.Frequency, s.Phase)
	}
	return v
}

// ParamsFromVector is the inverse of Params.Vector.
func ParamsFromVector(v []float64) (Params, error) {
	if len(v) == 0 || (len(v)-1)%3 != 0 {
		return Params{}, fmt.Errorf("parameter vector of length %d is not 1+3n: %w", len(v), ErrMalformedInput)
	}
	p := Params{YIntercept: v[0], Sines: make([]Sine, 0, (len(v)-1)/3)}
	for i := 1; i < len(v); i += 3 {
		p.Sines = append(p.Sines, Sine{Amplitude: v[i], Frequency: v[i+1], Phase: v[i+2]})
	}
	return p, nil
}

// NormalizePhase shifts a phase into [0, 2*pi) using a floor based modulo.
func NormalizePhase(phase float64) float64 {
	r := phase - twoPi*math.Floor(phase/twoPi)
	if r < 0 {
		r += twoPi
	}
	if r >= twoPi {
		r -= twoPi
	}
	return r
}

// NormalizeAmplitude makes the amplitude non-negative, compensating with a
// phase shift of pi, and normalizes the phase.
func NormalizeAmplitude(s Sine) Sine {
	if s.Amplitude < 0 {
		s.Amplitude = -s.Amplitude
		s.Phase += math.Pi
	}
	s.Phase = NormalizePhase(s.Phase)
	return s
}

// SinesSumModel is the unconstrained model over the flat Params layout, every
// frequency being a free parameter.
type SinesSumModel struct {
	Terms int
}

func (m SinesSumModel) NumParams() int {
	return 1 + 3*m.Terms
}

func (m SinesSumModel) Eval(t float64, p []float64) float64 {
	y := p[0]
	for i := 0; i < m.Terms; i++ {
		j := 1 + 3*i
		y += p[j] * math.Sin(twoPi*p[j+1]*t+p[j+2])
	}
	return y
}
