package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/kacperjurak/govarcore/pkg/models"
	"github.com/kacperjurak/govarcore/pkg/worker"
)

// FitHandler handles single light curve fit requests
type FitHandler struct {
	processor worker.ProcessorFunc
	store     ResultStore
	quiet     bool
}

// NewFitHandler creates a new fit handler
func NewFitHandler(processor worker.ProcessorFunc, store ResultStore, quiet bool) *FitHandler {
	return &FitHandler{
		processor: processor,
		store:     store,
		quiet:     quiet,
	}
}

// ServeHTTP implements the http.Handler interface
func (h *FitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setupCORS(w, "POST, OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.FitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	if !h.quiet {
		log.Printf("HTTP fit request received - points: %d, frequencies: %d", len(req.Time), len(req.Frequencies))
	}

	result, err := h.processor(r.Context(), req)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	if h.store != nil {
		if err := h.store.Put(result); err != nil {
			log.Printf("❌ Failed to store fit %s: %v", result.ID, err)
			writeError(w, "Failed to store result", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, result)
}
