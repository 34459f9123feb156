package adapthttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"weighbridge/internal/app"
	"weighbridge/internal/domain"
	"weighbridge/internal/export"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// writeAppError maps service errors onto status codes.
func writeAppError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrFormIncomplete),
		errors.Is(err, app.ErrMissingRecordID),
		errors.Is(err, domain.ErrUnknownFleetType):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrConfirmationNotFound),
		errors.Is(err, export.ErrRunning):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func parseJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func intQuery(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// sortQuery reads ?sort=&order=. ok is false when no sort was requested.
func sortQuery(r *http.Request) (param domain.SortParam, ok bool, err error) {
	q := r.URL.Query()
	raw := q.Get("sort")
	if raw == "" {
		return domain.DefaultSortParam(), false, nil
	}
	option, err := domain.ParseSortingOption(raw)
	if err != nil {
		return domain.SortParam{}, false, err
	}
	param = domain.SortParam{Option: option}
	switch strings.ToLower(q.Get("order")) {
	case "", "asc":
		param.Ascending = true
	case "desc":
		param.Ascending = false
	default:
		return domain.SortParam{}, false, fmt.Errorf("order must be asc or desc")
	}
	return param, true, nil
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func spaFromDisk(dir string) http.Handler {
	fileServer := http.FileServer(http.Dir(dir))
	indexPath := path.Join(dir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqPath := path.Clean(r.URL.Path)
		if reqPath == "/" {
			http.ServeFile(w, r, indexPath)
			return
		}

		staticPath := path.Join(dir, reqPath)
		if _, err := os.Stat(staticPath); err == nil {
			fileServer.ServeHTTP(w, r)
			return
		}

		http.ServeFile(w, r, indexPath)
	})
}
