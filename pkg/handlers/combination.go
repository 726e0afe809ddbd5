package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kacperjurak/govarcore"
	"github.com/kacperjurak/govarcore/pkg/models"
	"github.com/kacperjurak/govarcore/pkg/telemetry"
)

// CombinationHandler answers whether a frequency is a combination of a basis
type CombinationHandler struct {
	bounds        govarcore.Bounds
	maxSearchSize float64
	metrics       *telemetry.Metrics
}

// NewCombinationHandler rejects requests whose search space exceeds
// maxSearchSize vectors. Zero disables the cap.
func NewCombinationHandler(bounds govarcore.Bounds, maxSearchSize float64, metrics *telemetry.Metrics) *CombinationHandler {
	return &CombinationHandler{bounds: bounds, maxSearchSize: maxSearchSize, metrics: metrics}
}

// ServeHTTP implements the http.Handler interface
func (h *CombinationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setupCORS(w, "POST, OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.CombinationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	bounds := req.Bounds.Apply(h.bounds)
	if err := bounds.CheckSearchSize(len(req.Basis), h.maxSearchSize); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	comb, err := govarcore.FindCombination(req.Basis, req.Target, bounds)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	h.metrics.ObserveCombination(comb.Found)

	resp := models.CombinationResponse{Found: comb.Found}
	if comb.Found {
		resp.Coefficients = []int(comb.Coefficients)
		resp.Value = comb.Coefficients.Dot(req.Basis)
	}
	writeJSON(w, http.StatusOK, resp)
}
