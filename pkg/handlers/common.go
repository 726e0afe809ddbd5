package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/kacperjurak/govarcore"
	"github.com/kacperjurak/govarcore/pkg/models"
	"github.com/kacperjurak/govarcore/pkg/store"
)

// ResultStore persists finished fits
type ResultStore interface {
	Put(r *models.FitResult) error
	Get(id string) (*models.FitResult, error)
	List() ([]string, error)
}

// setupCORS sets up CORS headers
func setupCORS(w http.ResponseWriter, methods string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// writeJSON writes v with the given status code
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("⚠️  Failed to encode response: %v", err)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// statusFor maps engine errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, govarcore.ErrMalformedInput), errors.Is(err, govarcore.ErrInvalidBounds):
		return http.StatusBadRequest
	case errors.Is(err, govarcore.ErrFittingFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
