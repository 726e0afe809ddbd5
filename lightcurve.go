package govarcore

import (
	"fmt"
	"math"
)

// LightCurve holds three parallel columns: time, magnitude and magnitude error.
type LightCurve struct {
	Time []float64
	Mag  []float64
	Err  []float64
}

// NewLightCurve validates the columns and returns a light curve that shares
// them. Use Clone when the caller keeps mutating the slices.
func NewLightCurve(time, mag, err []float64) (LightCurve, error) {
	lc := LightCurve{Time: time, Mag: mag, Err: err}
	if e := lc.Validate(); e != nil {
		return LightCurve{}, e
	}
	return lc, nil
}

func (lc LightCurve) Len() int {
	return len(lc.Time)
}

// Validate checks the column lengths and that every value is finite and every
// error non-negative.
func (lc LightCurve) Validate() error {
	n := len(lc.Time)
	if n == 0 {
		return fmt.Errorf("light curve is empty: %w", ErrMalformedInput)
	}
	if len(lc.Mag) != n || len(lc.Err) != n {
		return fmt.Errorf("column length mismatch: time=%d mag=%d err=%d: %w",
			n, len(lc.Mag), len(lc.Err), ErrMalformedInput)
	}
	for i := 0; i < n; i++ {
		if !finite(lc.Time[i]) || !finite(lc.Mag[i]) {
			return fmt.Errorf("non-finite sample at row %d: %w", i, ErrMalformedInput)
		}
		if !finite(lc.Err[i]) || lc.Err[i] < 0 {
			return fmt.Errorf("invalid error %v at row %d: %w", lc.Err[i], i, ErrMalformedInput)
		}
	}
	return nil
}

// validateWeighted additionally rejects zero errors, which cannot be used as
// inverse-variance weights.
func (lc LightCurve) validateWeighted() error {
	if err := lc.Validate(); err != nil {
		return err
	}
	for i, e := range lc.Err {
		if e == 0 {
			return fmt.Errorf("zero error at row %d cannot be used as a weight: %w", i, ErrMalformedInput)
		}
	}
	return nil
}

// Weights returns 1/err for every sample.
func (lc LightCurve) Weights() []float64 {
	w := make([]float64, len(lc.Err))
	for i, e := range lc.Err {
		w[i] = 1 / e
	}
	return w
}

func (lc LightCurve) Clone() LightCurve {
	out := LightCurve{
		Time: make([]float64, len(lc.Time)),
		Mag:  make([]float64, len(lc.Mag)),
		Err:  make([]float64, len(lc.Err)),
	}
	copy(out.Time, lc.Time)
	copy(out.Mag, lc.Mag)
	copy(out.Err, lc.Err)
	return out
}

// Curve is anything that can be evaluated at a point in time.
type Curve interface {
	Eval(t float64) float64
}

// Residuals returns a copy of lc with the model subtracted from the magnitude
// column. Time and error columns are copied unchanged.
func Residuals(lc LightCurve, model Curve) LightCurve {
	out := lc.Clone()
	SubtractModelInPlace(out, model)
	return out
}

// SubtractModelInPlace subtracts the model from lc.Mag, mutating it.
func SubtractModelInPlace(lc LightCurve, model Curve) {
	for i, t := range lc.Time {
		lc.Mag[i] -= model.Eval(t)
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
