package adapthttp

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"weighbridge/internal/app"
	"weighbridge/internal/domain"
)

type contextKey string

const operatorContextKey contextKey = "operator"

// OperatorFromContext returns the authenticated operator, if any.
func OperatorFromContext(ctx context.Context) (*domain.Operator, bool) {
	op, ok := ctx.Value(operatorContextKey).(*domain.Operator)
	return op, ok
}

// authMiddleware validates session tokens and forward auth headers.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.disableAuth {
			next.ServeHTTP(w, r)
			return
		}

		// Reverse proxy forward auth first, when configured.
		if remoteUser := s.forwardedUser(r); remoteUser != "" {
			op, err := s.authSvc.ValidateForwardAuth(r.Context(), remoteUser)
			if err == nil && op != nil {
				ctx := context.WithValue(r.Context(), operatorContextKey, op)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		op, err := s.authSvc.ValidateSession(r.Context(), cookie.Value, r.UserAgent())
		if errors.Is(err, app.ErrSessionNotFound) || errors.Is(err, app.ErrSessionExpired) || errors.Is(err, app.ErrOperatorNotFound) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), operatorContextKey, op)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) forwardedUser(r *http.Request) string {
	if s.forwardAuthHeader == "" {
		return ""
	}
	return strings.TrimSpace(r.Header.Get(s.forwardAuthHeader))
}

// statusRecorder captures the response code for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter { return rec.ResponseWriter }

// loggingMiddleware logs one line per request and feeds the request metrics.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		d := time.Since(start)

		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, d.Round(time.Microsecond))
		if s.metrics != nil {
			s.metrics.ObserveHTTP(r.Method, routeLabel(r.URL.Path), rec.status, d)
		}
	})
}

// routeLabel collapses record ids so metric label cardinality stays bounded.
func routeLabel(p string) string {
	const prefix = "/api/records/"
	if !strings.HasPrefix(p, "/api/") && p != "/metrics" {
		return "/static"
	}
	if !strings.HasPrefix(p, prefix) {
		return p
	}
	rest := strings.Split(strings.TrimPrefix(p, prefix), "/")
	switch rest[0] {
	case "watch", "delete":
		return p
	}
	rest[0] = "{id}"
	return prefix + strings.Join(rest, "/")
}
