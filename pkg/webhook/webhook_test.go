package webhook

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kacperjurak/govarcore"
	"github.com/kacperjurak/govarcore/pkg/models"
)

func testItem() models.WebhookItem {
	return models.WebhookItem{
		RequestID: "req-1",
		Result: &models.FitResult{
			ID: "req-1",
			Params: govarcore.Params{
				YIntercept: 10,
				Sines: []govarcore.Sine{
					{Amplitude: 0.5, Frequency: 1.3, Phase: 1.1},
					{Amplitude: 0.1, Frequency: 2.6, Phase: 0.3},
				},
			},
			Basis:     []float64{1.3},
			ChiSquare: 0.5,
			Method:    "lm",
		},
		Data: models.LightCurveData{Time: []float64{0, 1}, Mag: []float64{10, 10.2}, Err: []float64{0.01, 0.01}},
	}
}

func TestClientSend(t *testing.T) {
	var got models.WebhookResponse
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got=%s want=POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, true)
	if err := c.Send(context.Background(), testItem()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "req-1" || got.ChiSquare != 0.5 || got.Method != "lm" {
		t.Fatalf("payload: got=%+v", got)
	}
	if len(got.Frequencies) != 2 || got.Frequencies[1] != 2.6 {
		t.Fatalf("frequencies: got=%v", got.Frequencies)
	}
	if len(got.Parameters) != 7 || got.Parameters[0] != 10 {
		t.Fatalf("parameters: got=%v", got.Parameters)
	}
}

func TestClientSendStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, true).Send(context.Background(), testItem()); err == nil {
		t.Fatalf("expected error for status 502")
	}
}

func TestClientDisabled(t *testing.T) {
	if err := NewClient("", true).Send(context.Background(), testItem()); err != nil {
		t.Fatalf("disabled client: %v", err)
	}
}

func TestPayloadSanitizesNaN(t *testing.T) {
	item := testItem()
	item.Result.ChiSquare = math.NaN()
	item.Result.Params.Sines[0].Amplitude = math.Inf(1)

	p := Payload(item)
	if p.ChiSquare != 0 || p.Parameters[1] != 0 {
		t.Fatalf("payload: got chi2=%v params=%v", p.ChiSquare, p.Parameters)
	}
	if _, err := json.Marshal(p); err != nil {
		t.Fatalf("marshal: %v", err)
	}
}

func TestCalculatorComponents(t *testing.T) {
	item := testItem()
	m := govarcore.CombinationMatrix{{1}, {2}}
	comps := NewCalculator().Components([]float64{0, 0.25}, item.Result.Params, m)

	if len(comps) != 2 {
		t.Fatalf("components: got=%d want=2", len(comps))
	}
	if comps[0].Name != "f1" || comps[1].Name != "2f1" {
		t.Fatalf("names: got=%q,%q", comps[0].Name, comps[1].Name)
	}
	want := 0.5 * math.Sin(1.1)
	if math.Abs(comps[0].Values[0]-want) > 1e-12 {
		t.Fatalf("value: got=%v want=%v", comps[0].Values[0], want)
	}
}

func TestDisplayName(t *testing.T) {
	c := NewCalculator()
	tests := map[string][]int{
		"f1":      {1, 0},
		"2f1+f2":  {2, 1},
		"f1-f2":   {1, -1},
		"-2f1+f2": {-2, 1},
		"f1-3f2":  {1, -3},
		"3f2":     {0, 3},
		"0":       {0, 0},
	}
	for want, row := range tests {
		if got := c.displayName(row); got != want {
			t.Fatalf("displayName(%v): got=%q want=%q", row, got, want)
		}
	}
}
