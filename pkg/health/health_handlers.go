package health

import (
	"encoding/json"
	"net/http"
)

// LivenessHandler serves the liveness checks. Degraded still answers 200.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, c.CheckLiveness(r.Context()), StatusDegraded)
	}
}

// ReadinessHandler serves liveness and readiness checks. Anything short of
// healthy answers 503.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, c.CheckReadiness(r.Context()), StatusHealthy)
	}
}

// writeResponse answers 200 when the status is at least as good as worstOK
func writeResponse(w http.ResponseWriter, response Response, worstOK Status) {
	status := http.StatusOK
	switch {
	case response.Status == StatusUnhealthy:
		status = http.StatusServiceUnavailable
	case response.Status == StatusDegraded && worstOK == StatusHealthy:
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
