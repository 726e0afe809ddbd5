package dataio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kacperjurak/govarcore"
)

func TestReadLightCurve(t *testing.T) {
	in := `# time mag err
2450000.1  12.5  0.01

2450000.2  12.7  0.02  extra
`
	lc, err := ReadLightCurve(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lc.Len() != 2 || lc.Time[1] != 2450000.2 || lc.Mag[0] != 12.5 || lc.Err[1] != 0.02 {
		t.Fatalf("light curve: got=%+v", lc)
	}
}

func TestReadLightCurveErrors(t *testing.T) {
	tests := map[string]string{
		"too few columns": "1 2\n",
		"not a number":    "1 abc 0.1\n",
		"negative error":  "1 2 -0.1\n",
		"empty":           "# nothing\n",
	}

	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadLightCurve(strings.NewReader(in)); !errors.Is(err, govarcore.ErrMalformedInput) {
				t.Fatalf("error: got=%v want=%v", err, govarcore.ErrMalformedInput)
			}
		})
	}
}

func TestWriteParameters(t *testing.T) {
	p := govarcore.Params{
		YIntercept: 10.5,
		Sines:      []govarcore.Sine{{Amplitude: 0.25, Frequency: 1.5, Phase: 3}},
	}

	var buf bytes.Buffer
	if err := WriteParameters(&buf, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "   10.5000000000\n    0.2500000000     1.5000000000     3.0000000000\n"
	if got := buf.String(); got != want {
		t.Fatalf("parameters:\ngot=%q\nwant=%q", got, want)
	}
}

func TestResidualsFileRoundTrip(t *testing.T) {
	p := govarcore.Params{YIntercept: 2, Sines: []govarcore.Sine{{Amplitude: 1, Frequency: 0.5, Phase: 0}}}
	lc, err := govarcore.SyntheticLightCurve(p, []float64{0, 0.5, 1}, []float64{0.1, 0.1, 0.1})
	if err != nil {
		t.Fatalf("synthetic curve: %v", err)
	}
	lc.Mag[1] += 0.25

	path := filepath.Join(t.TempDir(), "res.txt")
	if err := WriteResidualsFile(path, lc, p); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line := strings.SplitN(string(raw), "\n", 2)[0]; line != "         0.0000000       0.0000000       0.1000000" {
		t.Fatalf("first line: got=%q", line)
	}

	back, err := ReadLightCurveFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := []float64{0, 0.25, 0}
	for i, v := range back.Mag {
		if d := v - want[i]; d > 1e-7 || d < -1e-7 {
			t.Fatalf("residual %d: got=%v want=%v", i, v, want[i])
		}
	}
}
