package adapthttp

import (
	"errors"
	"net/http"
)

func (s *Server) handleSummaryDaily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	days := intQuery(r, "days", 7)
	points, err := s.summary.Daily(r.Context(), days)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": points})
}

func (s *Server) handleExports(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusNotFound, errors.New("exports disabled"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		keys, err := s.exporter.List(r.Context())
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": keys})

	case http.MethodPost:
		key, err := s.exporter.Run(r.Context())
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"key": key})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
