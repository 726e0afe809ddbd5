package govarcore

import (
	"errors"
	"testing"
)

func TestCombinationModel(t *testing.T) {
	m := CombinationModel{Matrix: CombinationMatrix{{1, 0}, {0, 1}, {2, -1}}}
	p := []float64{
		0.28586711, 0.07301911, 0.79940148, 0.54837315, 0.23782887,
		0.80846081, 0.06918676, 0.22500815, 0.96334566,
	}
	if m.NumParams() != len(p) {
		t.Fatalf("params: got=%d want=%d", m.NumParams(), len(p))
	}
	want := []float64{
		1.567513682748982, 1.7472277937423941, 0.5403788490096673,
		0.8725647092149394, 1.883750268101744, 0.8766700568767499,
	}
	for x, w := range want {
		assertClose(t, "model", m.Eval(float64(x), p), w, 1e-7)
	}
	assertAllClose(t, "frequencies", m.Frequencies(p), []float64{0.28586711, 0.07301911, 0.49871511}, 1e-12)
}

func TestFinalParameters(t *testing.T) {
	m := CombinationMatrix{{1, 0}, {0, 1}, {2, 0}}
	fit := []float64{
		1.52400005e01, 4.02899929e01, 2.50203690e-01, 3.21754473e00, 6.03817975e-02,
		2.76319565e00, 1.09771506e-01, 4.20315650e-01, 6.44061473e-05,
	}
	p, err := FinalParameters(fit, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{
		6.44061473e-05,
		2.50203690e-01, 1.52400005e01, 3.21754473e00,
		6.03817975e-02, 4.02899929e01, 2.76319565e00,
		1.09771506e-01, 3.04800010e01, 4.20315650e-01,
	}
	assertAllClose(t, "final", p.Vector(), want, 1e-7)

	if _, err := FinalParameters(fit[:4], m); !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("got=%v want=%v", err, ErrMalformedInput)
	}
}

func TestFinalParametersNormalizesPhase(t *testing.T) {
	m := CombinationMatrix{{1}}
	p, err := FinalParameters([]float64{2.5, 1.1, -1.0, 0.3}, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertClose(t, "phase", p.Sines[0].Phase, twoPi-1.0, 1e-12)
	assertClose(t, "offset", p.YIntercept, 0.3, 0)
}

func TestSeedParameters(t *testing.T) {
	approx := []ApproximateSine{
		{Amplitude: 1, Frequency: 0.5, Phase: 0.1, YIntercept: 2},
		{Amplitude: 3, Frequency: 0.7, Phase: 0.2, YIntercept: 4},
		{Amplitude: 5, Frequency: 1.2, Phase: 0.3, YIntercept: 6},
	}
	got := SeedParameters(approx, []float64{0.5, 0.7})
	assertAllClose(t, "seed", got, []float64{0.5, 0.7, 1, 0.1, 3, 0.2, 5, 0.3, 12}, 0)

	m := CombinationModel{Matrix: CombinationMatrix{{1, 0}, {0, 1}, {1, 1}}}
	if m.NumParams() != len(got) {
		t.Fatalf("params: got=%d want=%d", m.NumParams(), len(got))
	}
}
