package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/storage"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}
	s.respondJSON(w, status, response)
}

// respondQueryError maps a failed query to a status. Store details are
// logged, not returned.
func (s *Server) respondQueryError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case storage.IsUnavailable(err), storage.IsClosed(err):
		status = http.StatusServiceUnavailable
	}

	s.logger.Error("request failed",
		logging.Operation(operation),
		logging.Path(r.URL.Path),
		logging.Int("status", status),
		logging.Error(err))
	s.respondError(w, status, operation+" failed")
}

// intParam parses an optional integer query parameter
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func boolParam(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
