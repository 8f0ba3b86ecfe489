package health

import (
	"encoding/json"
	"net/http"
)

// LivenessHandler answers 200 while the process can serve HTTP. It runs no
// checkers.
func (h *Health) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadinessHandler runs all checkers and answers 200 when every one passes,
// 503 otherwise. The body lists each component's result.
func (h *Health) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := h.Check(r.Context())

		status := http.StatusOK
		if result.Status != StatusHealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding errors mean the client is gone; nothing left to report to.
	_ = json.NewEncoder(w).Encode(body)
}
