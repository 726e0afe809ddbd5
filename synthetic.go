package govarcore

import (
	"fmt"
	"math/rand"
)

// SyntheticLightCurve samples p at the given times. errs gives the error
// column and must match times in length.
func SyntheticLightCurve(p Params, times, errs []float64) (LightCurve, error) {
	if len(times) != len(errs) {
		return LightCurve{}, fmt.Errorf("times=%d errs=%d: %w", len(times), len(errs), ErrMalformedInput)
	}
	lc := LightCurve{
		Time: cloneFloats(times),
		Mag:  make([]float64, len(times)),
		Err:  cloneFloats(errs),
	}
	for i, t := range times {
		lc.Mag[i] = p.Eval(t)
	}
	return lc, lc.Validate()
}

// NoisyLightCurve is SyntheticLightCurve with uniform noise in
// [-noiseLevel, noiseLevel] added to every magnitude.
func NoisyLightCurve(p Params, times, errs []float64, noiseLevel float64, rng *rand.Rand) (LightCurve, error) {
	lc, err := SyntheticLightCurve(p, times, errs)
	if err != nil {
		return LightCurve{}, err
	}
	for i := range lc.Mag {
		lc.Mag[i] = noise(lc.Mag[i], noiseLevel, rng)
	}
	return lc, nil
}

// UniformTimes returns n instants spread evenly over [0, span).
func UniformTimes(n int, span float64) []float64 {
	times := make([]float64, n)
	for i := range times {
		times[i] = span * float64(i) / float64(n)
	}
	return times
}

// ConstantErrors returns n copies of e.
func ConstantErrors(n int, e float64) []float64 {
	errs := make([]float64, n)
	for i := range errs {
		errs[i] = e
	}
	return errs
}

func noise(v, nl float64, rng *rand.Rand) float64 {
	return v + (rng.Float64()*2-1)*nl
}
