package govarcore

import (
	"fmt"
	"math"
)

// Coefficients of a linear combination C1*f1 + C2*f2 + ...
type Coefficients []int

// Dot returns the combined frequency for the given basis.
func (c Coefficients) Dot(basis []float64) float64 {
	sum := 0.0
	for i, v := range c {
		sum += float64(v) * basis[i]
	}
	return sum
}

func (c Coefficients) nonZero() int {
	n := 0
	for _, v := range c {
		if v != 0 {
			n++
		}
	}
	return n
}

func (c Coefficients) squares() int {
	n := 0
	for _, v := range c {
		n += v * v
	}
	return n
}

func (c Coefficients) negatives() int {
	n := 0
	for _, v := range c {
		if v < 0 {
			n++
		}
	}
	return n
}

// Combination is the outcome of a combination search. Found is false when no
// bounded combination matched, which is different from a found all-zero vector.
type Combination struct {
	Coefficients Coefficients
	Found        bool
}

// Bounds of the coefficient search space.
type Bounds struct {
	Min         int
	Max         int
	MaxHarmonic int
	Epsilon     float64
}

// DefaultBounds returns the bounds used by the fitting pipeline.
func DefaultBounds() Bounds {
	return Bounds{Min: -5, Max: 5, MaxHarmonic: 10, Epsilon: 1e-5}
}

func (b Bounds) Validate() error {
	if b.Min >= b.Max {
		return fmt.Errorf("min %d must be less than max %d: %w", b.Min, b.Max, ErrInvalidBounds)
	}
	if !(b.Epsilon > 0) || math.IsInf(b.Epsilon, 0) {
		return fmt.Errorf("epsilon must be positive, got %v: %w", b.Epsilon, ErrMalformedInput)
	}
	return nil
}

// DefaultMaxSearchSize caps the number of coefficient vectors a single
// request may ask FindCombination to walk.
const DefaultMaxSearchSize = 1e8

// SearchSize returns the number of vectors a search over a basis of n
// frequencies walks. It is a float so that large spaces do not overflow.
func (b Bounds) SearchSize(n int) float64 {
	if n < 1 {
		return 0
	}
	harmonics := 0.0
	if b.MaxHarmonic > b.Max {
		harmonics = float64(n) * float64(b.MaxHarmonic-b.Max)
	}
	return harmonics + math.Pow(float64(b.Max-b.Min+1), float64(n))
}

// CheckSearchSize rejects searches over n basis frequencies that exceed
// limit. A non-positive limit disables the check.
func (b Bounds) CheckSearchSize(n int, limit float64) error {
	if limit <= 0 {
		return nil
	}
	if size := b.SearchSize(n); size > limit {
		return fmt.Errorf("search space of %.4g vectors over %d frequencies exceeds %.4g: %w",
			size, n, limit, ErrMalformedInput)
	}
	return nil
}

// CoefficientIterator lazily walks the coefficient search space. Pure
// harmonics h*e_i for h in (max, maxHarmonic] come first, then the Cartesian
// product of [min, max] over every axis with the last axis varying fastest.
type CoefficientIterator struct {
	size        int
	min         int
	max         int
	maxHarmonic int

	harmonic int
	axis     int
	odometer []int
	done     bool
}

// NewCoefficientIterator returns a fresh iterator over the search space.
func NewCoefficientIterator(size, min, max, maxHarmonic int) (*CoefficientIterator, error) {
	if min >= max {
		return nil, fmt.Errorf("min %d must be less than max %d: %w", min, max, ErrInvalidBounds)
	}
	if size < 1 {
		return nil, fmt.Errorf("basis size must be positive, got %d: %w", size, ErrMalformedInput)
	}

	odometer := make([]int, size)
	for i := range odometer {
		odometer[i] = min
	}

	return &CoefficientIterator{
		size:        size,
		min:         min,
		max:         max,
		maxHarmonic: maxHarmonic,
		harmonic:    max + 1,
		odometer:    odometer,
	}, nil
}

// Next returns the next coefficient vector. The returned slice is owned by
// the caller.
func (it *CoefficientIterator) Next() (Coefficients, bool) {
	if it.done {
		return nil, false
	}

	if it.harmonic <= it.maxHarmonic {
		c := make(Coefficients, it.size)
		c[it.axis] = it.harmonic
		it.axis++
		if it.axis == it.size {
			it.axis = 0
			it.harmonic++
		}
		return c, true
	}

	c := make(Coefficients, it.size)
	copy(c, it.odometer)
	it.advance()
	return c, true
}

func (it *CoefficientIterator) advance() {
	for i := it.size - 1; i >= 0; i-- {
		if it.odometer[i] < it.max {
			it.odometer[i]++
			return
		}
		it.odometer[i] = it.min
	}
	it.done = true
}

// FindCombination checks whether target is a bounded integer combination of
// basis within b.Epsilon and returns the most likely one.
func FindCombination(basis []float64, target float64, b Bounds) (Combination, error) {
	if err := b.Validate(); err != nil {
		return Combination{}, err
	}

	it, err := NewCoefficientIterator(len(basis), b.Min, b.Max, b.MaxHarmonic)
	if err != nil {
		return Combination{}, err
	}

	var best Coefficients
	for c, ok := it.Next(); ok; c, ok = it.Next() {
		if math.Abs(target-c.Dot(basis)) < b.Epsilon && (best == nil || c.better(best)) {
			best = c
		}
	}

	if best == nil {
		return Combination{}, nil
	}
	return Combination{Coefficients: best, Found: true}, nil
}

// SelectBestCombination keeps the candidates with the fewest non-zero
// coefficients, then the smallest sum of squares, and returns the first one
// with the fewest negative coefficients.
func SelectBestCombination(candidates []Coefficients) Coefficients {
	var best Coefficients
	for _, c := range candidates {
		if best == nil || c.better(best) {
			best = c
		}
	}
	return best
}

// better reports whether c strictly beats o. Equal scores keep o, so the
// first candidate seen wins a tie.
func (c Coefficients) better(o Coefficients) bool {
	if a, b := c.nonZero(), o.nonZero(); a != b {
		return a < b
	}
	if a, b := c.squares(), o.squares(); a != b {
		return a < b
	}
	return c.negatives() < o.negatives()
}
