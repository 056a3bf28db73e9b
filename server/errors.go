package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sambeau/tabula/pkg/loader"
	"github.com/sambeau/tabula/pkg/scope"
	"github.com/sambeau/tabula/pkg/session"
)

// errBadRequest marks errors in the request itself.
var errBadRequest = errors.New("bad request")

// apiError is the body of every error response.
type apiError struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// statusOf maps an error onto the HTTP status it is reported with.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, scope.ErrScopeNotFound), errors.Is(err, session.ErrNoEditor):
		return http.StatusNotFound
	case errors.Is(err, scope.ErrNotContainer):
		return http.StatusConflict
	case errors.Is(err, loader.ErrOutsideRoot):
		return http.StatusForbidden
	case errors.Is(err, loader.ErrLoadInProgress):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	s.writeJSON(w, status, apiError{Error: err.Error(), Status: status})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("failed to marshal JSON", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}
