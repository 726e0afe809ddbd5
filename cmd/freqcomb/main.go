package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/kacperjurak/govarcore"
	"github.com/kacperjurak/govarcore/pkg/config"
)

func main() {
	var basis config.ArrayFlags
	b := govarcore.DefaultBounds()

	flag.Var(&basis, "base", "Basis frequency (repeat for more)")
	target := flag.Float64("freq", 0, "Frequency to resolve")
	flag.IntVar(&b.Min, "min", b.Min, "Minimal coefficient of a combination")
	flag.IntVar(&b.Max, "max", b.Max, "Maximal coefficient of a combination")
	flag.IntVar(&b.MaxHarmonic, "max_harm", b.MaxHarmonic, "Highest harmonic to look for")
	flag.Float64Var(&b.Epsilon, "eps", b.Epsilon, "Tolerance of a combination match")
	flag.Parse()

	comb, err := govarcore.FindCombination(basis, *target, b)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if !comb.Found {
		return
	}

	parts := make([]string, len(comb.Coefficients))
	for i, c := range comb.Coefficients {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(os.Stdout, strings.Join(parts, " "))
}
