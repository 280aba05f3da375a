package handler

import (
	"encoding/json"
	"net/http"
)

// Health reports that the process is up.
type Health struct{}

// NewHealth creates a new Health handler.
func NewHealth() *Health {
	return &Health{}
}

type healthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ServeHTTP writes the liveness response.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(healthResponse{Success: true, Message: "API is running"})
}
