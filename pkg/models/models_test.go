package models

import (
	"encoding/json"
	"testing"

	"github.com/kacperjurak/govarcore"
)

func TestBoundsRequestApply(t *testing.T) {
	def := govarcore.DefaultBounds()
	if got := (*BoundsRequest)(nil).Apply(def); got != def {
		t.Fatalf("nil request: got=%+v want=%+v", got, def)
	}

	lo, eps := -2, 1e-3
	got := (&BoundsRequest{Min: &lo, Epsilon: &eps}).Apply(def)
	want := govarcore.Bounds{Min: -2, Max: def.Max, MaxHarmonic: def.MaxHarmonic, Epsilon: 1e-3}
	if got != want {
		t.Fatalf("bounds: got=%+v want=%+v", got, want)
	}
}

func TestFitRequestJSON(t *testing.T) {
	body := `{"time":[0,1,2],"mag":[1,2,3],"err":[0.1,0.1,0.1],"frequencies":[1.5],"bounds":{"max_harmonic":4},"method":"nm"}`

	var req FitRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Time) != 3 || req.Mag[2] != 3 || req.Frequencies[0] != 1.5 || req.Method != "nm" {
		t.Fatalf("request: got=%+v", req)
	}
	if req.Bounds == nil || req.Bounds.MaxHarmonic == nil || *req.Bounds.MaxHarmonic != 4 || req.Bounds.Min != nil {
		t.Fatalf("bounds: got=%+v", req.Bounds)
	}

	lc, err := req.LightCurve()
	if err != nil {
		t.Fatalf("light curve: %v", err)
	}
	if lc.Len() != 3 {
		t.Fatalf("len: got=%d want=3", lc.Len())
	}
}

func TestLightCurveDataInvalid(t *testing.T) {
	d := LightCurveData{Time: []float64{0, 1}, Mag: []float64{1}, Err: []float64{0.1, 0.1}}
	if _, err := d.LightCurve(); err == nil {
		t.Fatalf("expected error for mismatched columns")
	}
}
