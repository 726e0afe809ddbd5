package govarcore

import (
	"fmt"
	"slices"
)

// CombinationMatrix maps every resolved frequency (rows) to its coefficients
// over the basis (columns). The first rows form an identity block.
type CombinationMatrix [][]int

func (m CombinationMatrix) Rows() int {
	return len(m)
}

func (m CombinationMatrix) BasisSize() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Frequencies returns the value of every row for the given basis.
func (m CombinationMatrix) Frequencies(basis []float64) []float64 {
	freqs := make([]float64, len(m))
	for i, row := range m {
		freqs[i] = Coefficients(row).Dot(basis)
	}
	return freqs
}

func validateFrequencies(frequencies []float64) error {
	if len(frequencies) == 0 {
		return fmt.Errorf("empty frequency list: %w", ErrMalformedInput)
	}
	for i, f := range frequencies {
		if !finite(f) || f <= 0 {
			return fmt.Errorf("frequency %v at %d is not a positive number: %w", f, i, ErrMalformedInput)
		}
	}
	return nil
}

// SplitFrequencies sorts the frequencies ascending and splits them into a
// basis of independent frequencies and their combinations. A frequency joins
// the basis only when it is not a combination of the basis built so far.
func SplitFrequencies(frequencies []float64, b Bounds) (basis, dependents []float64, err error) {
	if err := validateFrequencies(frequencies); err != nil {
		return nil, nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, nil, err
	}

	sorted := slices.Clone(frequencies)
	slices.Sort(sorted)

	basis = []float64{sorted[0]}
	for _, f := range sorted[1:] {
		comb, err := FindCombination(basis, f, b)
		if err != nil {
			return nil, nil, err
		}
		if !comb.Found {
			basis = append(basis, f)
		}
	}

	dependents = make([]float64, 0, len(sorted)-len(basis))
	for _, f := range sorted {
		if !slices.Contains(basis, f) {
			dependents = append(dependents, f)
		}
	}
	return basis, dependents, nil
}

// BuildCombinationMatrix stacks the identity block of the basis on top of the
// resolved coefficients of every dependent frequency.
func BuildCombinationMatrix(basis, dependents []float64, b Bounds) (CombinationMatrix, error) {
	if len(basis) == 0 {
		return nil, fmt.Errorf("empty basis: %w", ErrMalformedInput)
	}

	m := make(CombinationMatrix, 0, len(basis)+len(dependents))
	for i := range basis {
		row := make([]int, len(basis))
		row[i] = 1
		m = append(m, row)
	}

	for _, f := range dependents {
		comb, err := FindCombination(basis, f, b)
		if err != nil {
			return nil, err
		}
		if !comb.Found {
			return nil, fmt.Errorf("frequency %v is not a combination of the basis %v: %w", f, basis, ErrFittingFailure)
		}
		m = append(m, []int(comb.Coefficients))
	}
	return m, nil
}

// FrequenciesCombination selects the basis and builds the combination matrix
// of all frequencies.
func FrequenciesCombination(frequencies []float64, b Bounds) ([]float64, CombinationMatrix, error) {
	basis, dependents, err := SplitFrequencies(frequencies, b)
	if err != nil {
		return nil, nil, err
	}
	m, err := BuildCombinationMatrix(basis, dependents, b)
	if err != nil {
		return nil, nil, err
	}
	return basis, m, nil
}
