package govarcore

import (
	"errors"
	"math"
	"testing"
)

func assertClose(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s: got=%v want=%v", name, got, want)
	}
}

func assertAllClose(t *testing.T, name string, got, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got=%v want=%v", name, got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("%s[%d]: got=%v want=%v", name, i, got[i], want[i])
		}
	}
}

func TestNormalizePhase(t *testing.T) {
	in := []float64{-7.23516, -3.27864, 1.25784, 6.93467, 12.57866}
	want := []float64{5.331210614359173, 3.004545307179586, 1.25784, 0.6514846928204134, 0.012289385640826822}
	for i, v := range in {
		got := NormalizePhase(v)
		assertClose(t, "phase", got, want[i], 1e-12)
		if again := NormalizePhase(got); again != got {
			t.Fatalf("not idempotent: got=%v want=%v", again, got)
		}
	}
}

func TestNormalizePhaseRange(t *testing.T) {
	for _, v := range []float64{0, twoPi, -twoPi, 4 * math.Pi, -1e-300, math.Nextafter(twoPi, 0), -1e6, 1e6} {
		got := NormalizePhase(v)
		if got < 0 || got >= twoPi {
			t.Fatalf("NormalizePhase(%v)=%v out of [0, 2pi)", v, got)
		}
	}
}

func TestNormalizeAmplitude(t *testing.T) {
	s := NormalizeAmplitude(Sine{Amplitude: -0.3, Frequency: 1.2, Phase: 4})
	assertClose(t, "amplitude", s.Amplitude, 0.3, 0)
	assertClose(t, "phase", s.Phase, 4+math.Pi-twoPi, 1e-12)

	for _, x := range []float64{0, 0.13, 0.77} {
		before := Sine{Amplitude: -0.3, Frequency: 1.2, Phase: 4}
		assertClose(t, "value", s.Eval(x), before.Eval(x), 1e-12)
	}
}

func TestParamsEval(t *testing.T) {
	p, err := ParamsFromVector([]float64{
		7.09037474, 0.69180504, 0.48045832, 0.91649189, 0.03522788,
		0.99134144, 0.1823759, 0.87827656, 0.07623589, 0.18287043,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{
		7.80540857239703, 7.141428500939401, 8.321419660720451,
		7.607768552801675, 8.133232982571016, 7.350358898603323,
	}
	for x, w := range want {
		assertClose(t, "sum", p.Eval(float64(x)), w, 1e-7)
	}

	model := SinesSumModel{Terms: len(p.Sines)}
	if model.NumParams() != 10 {
		t.Fatalf("params: got=%d want=%d", model.NumParams(), 10)
	}
	for x := range want {
		assertClose(t, "model", model.Eval(float64(x), p.Vector()), p.Eval(float64(x)), 1e-12)
	}
}

func TestParamsVector(t *testing.T) {
	p := Params{YIntercept: 1, Sines: []Sine{{2, 3, 4}, {5, 6, 7}}}
	assertFloats(t, "vector", p.Vector(), []float64{1, 2, 3, 4, 5, 6, 7})
	assertFloats(t, "frequencies", p.Frequencies(), []float64{3, 6})

	back, err := ParamsFromVector(p.Vector())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertFloats(t, "round trip", back.Vector(), p.Vector())

	if _, err := ParamsFromVector([]float64{1, 2}); !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("got=%v want=%v", err, ErrMalformedInput)
	}
}
