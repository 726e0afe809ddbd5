package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/kacperjurak/govarcore"
	"github.com/kacperjurak/govarcore/internal/utils"
	"github.com/kacperjurak/govarcore/pkg/models"
	"github.com/kacperjurak/govarcore/pkg/store"
	"github.com/kacperjurak/govarcore/pkg/worker"
)

func fakeProcessor(_ context.Context, req models.FitRequest) (*models.FitResult, error) {
	switch {
	case len(req.Time) == 0:
		return nil, fmt.Errorf("empty: %w", govarcore.ErrMalformedInput)
	case req.Method == "diverge":
		return nil, fmt.Errorf("diverged: %w", govarcore.ErrFittingFailure)
	}
	return &models.FitResult{
		ID: utils.GenerateID(),
		Params: govarcore.Params{
			YIntercept: 1,
			Sines:      []govarcore.Sine{{Amplitude: 0.5, Frequency: req.Frequencies[0], Phase: 0}},
		},
		ChiSquare: 1,
		Method:    "lm",
	}, nil
}

func openStore(t *testing.T) *store.ResultStore {
	t.Helper()
	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

const fitBody = `{"time":[0,1,2],"mag":[1,2,3],"err":[0.1,0.1,0.1],"frequencies":[1.5]%s}`

func TestFitHandler(t *testing.T) {
	s := openStore(t)
	h := NewFitHandler(fakeProcessor, s, true)

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"ok", http.MethodPost, fmt.Sprintf(fitBody, ""), http.StatusOK},
		{"options", http.MethodOptions, "", http.StatusOK},
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "{", http.StatusBadRequest},
		{"malformed input", http.MethodPost, `{"frequencies":[1.5]}`, http.StatusBadRequest},
		{"fitting failure", http.MethodPost, fmt.Sprintf(fitBody, `,"method":"diverge"`), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/fit", strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Fatalf("status: got=%d want=%d body=%s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	ids, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("stored fits: got=%d want=1", len(ids))
	}
}

func TestCombinationHandler(t *testing.T) {
	h := NewCombinationHandler(govarcore.DefaultBounds(), govarcore.DefaultMaxSearchSize, nil)

	tests := []struct {
		name   string
		body   string
		status int
		found  bool
		coeffs []int
	}{
		{"sum", `{"basis":[1.3,2.9],"target":4.2}`, http.StatusOK, true, []int{1, 1}},
		{"harmonic", `{"basis":[1.3,2.9],"target":2.6}`, http.StatusOK, true, []int{2, 0}},
		{"none", `{"basis":[1.3,2.9],"target":3.14159}`, http.StatusOK, false, nil},
		{"invalid bounds", `{"basis":[1.3],"target":2.6,"bounds":{"min":3,"max":1}}`, http.StatusBadRequest, false, nil},
		{"empty basis", `{"basis":[],"target":2.6}`, http.StatusBadRequest, false, nil},
		{"search space too large", `{"basis":[1,2,3,4,5,6,7,8,9,10],"target":1e6,"bounds":{"min":-10,"max":10}}`, http.StatusBadRequest, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/combination", strings.NewReader(tt.body)))
			if rec.Code != tt.status {
				t.Fatalf("status: got=%d want=%d body=%s", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}

			var resp models.CombinationResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Found != tt.found || fmt.Sprint(resp.Coefficients) != fmt.Sprint(tt.coeffs) {
				t.Fatalf("response: got=%+v want found=%v coefficients=%v", resp, tt.found, tt.coeffs)
			}
		})
	}
}

func TestResultsHandler(t *testing.T) {
	s := openStore(t)
	if err := s.Put(&models.FitResult{ID: "abc", ChiSquare: 2}); err != nil {
		t.Fatalf("put: %v", err)
	}

	h := NewResultsHandler(s)
	router := mux.NewRouter()
	router.HandleFunc("/fits", h.List).Methods(http.MethodGet)
	router.HandleFunc("/fits/{id}", h.Get).Methods(http.MethodGet)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fits/abc", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusOK)
	}
	var got models.FitResult
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "abc" || got.ChiSquare != 2 {
		t.Fatalf("result: got=%+v", got)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fits/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusNotFound)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fits", nil))
	if !strings.Contains(rec.Body.String(), `"abc"`) {
		t.Fatalf("list: got=%s", rec.Body.String())
	}
}

func TestBatchHandler(t *testing.T) {
	s := openStore(t)
	pool := worker.New(worker.Options{Workers: 2, Processor: fakeProcessor})
	defer pool.Shutdown()

	timing := filepath.Join(t.TempDir(), "timing.csv")
	h := NewBatchHandler(pool, s, BatchOptions{TimingFile: timing, Concurrency: 2, Quiet: true})

	curve := models.FitRequest{
		LightCurveData: models.LightCurveData{Time: []float64{0, 1}, Mag: []float64{1, 2}, Err: []float64{0.1, 0.1}},
		Frequencies:    []float64{1.5},
	}
	batch := models.FitBatch{BatchID: "b1", Curves: []models.BatchItem{
		{Request: curve, Iteration: 0},
		{Request: curve, Iteration: 1},
		{Request: models.FitRequest{Frequencies: []float64{1}}, Iteration: 2},
	}}
	body, err := json.Marshal(batch)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/fit/batch", strings.NewReader(string(body))))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusAccepted)
	}
	h.Wait()

	ids, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("stored fits: got=%d want=2", len(ids))
	}

	f, err := os.Open(timing)
	if err != nil {
		t.Fatalf("timing file: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read timing: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != "b1" || rows[1][2] != "3" {
		t.Fatalf("timing rows: got=%v", rows)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/fit/batch", strings.NewReader(`{"curves":[]}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty batch status: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
}
