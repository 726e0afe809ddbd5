package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// ResultsHandler serves stored fit results
type ResultsHandler struct {
	store ResultStore
}

func NewResultsHandler(store ResultStore) *ResultsHandler {
	return &ResultsHandler{store: store}
}

// Get serves GET /fits/{id}
func (h *ResultsHandler) Get(w http.ResponseWriter, r *http.Request) {
	setupCORS(w, "GET, OPTIONS")

	id := mux.Vars(r)["id"]
	result, err := h.store.Get(id)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// List serves GET /fits with the IDs of every stored fit
func (h *ResultsHandler) List(w http.ResponseWriter, r *http.Request) {
	setupCORS(w, "GET, OPTIONS")

	ids, err := h.store.List()
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ids": ids})
}
