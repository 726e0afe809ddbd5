package webhook

import (
	"fmt"
	"log"
	"math"

	"github.com/kacperjurak/govarcore"
	"github.com/kacperjurak/govarcore/pkg/models"
)

// Calculator samples every fitted sine on its own, so a plot can show the
// contribution of each frequency next to the data.
type Calculator struct{}

// NewCalculator creates a new component calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Components evaluates each sine of p at times. Combination frequencies are
// named after their coefficients over the basis, e.g. "2f1+f2".
func (c *Calculator) Components(times []float64, p govarcore.Params, m govarcore.CombinationMatrix) []models.SineComponent {
	result := make([]models.SineComponent, 0, len(p.Sines))

	for i, s := range p.Sines {
		values := make([]float64, len(times))
		for j, t := range times {
			values[j] = sanitizeComponent(s.Eval(t), i, t)
		}

		name := fmt.Sprintf("f%d", i+1)
		if i < len(m) {
			name = c.displayName(m[i])
		}

		result = append(result, models.SineComponent{
			Name:      name,
			Amplitude: s.Amplitude,
			Frequency: s.Frequency,
			Phase:     s.Phase,
			Values:    values,
		})
	}

	return result
}

// displayName renders a matrix row as a combination of f1, f2, ...
func (c *Calculator) displayName(row []int) string {
	name := ""
	for k, v := range row {
		if v == 0 {
			continue
		}
		switch {
		case v == 1 && name != "":
			name += "+"
		case v == -1:
			name += "-"
		case v > 0 && name != "":
			name += fmt.Sprintf("+%d", v)
		case v != 1:
			name += fmt.Sprintf("%d", v)
		}
		name += fmt.Sprintf("f%d", k+1)
	}
	if name == "" {
		return "0"
	}
	return name
}

func sanitizeComponent(v float64, i int, t float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		log.Printf("Warning: Invalid value (%v) for component %d at t=%.5f, setting to 0.0", v, i, t)
		return 0
	}
	return v
}
