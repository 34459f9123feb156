package adapthttp

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggingMiddleware(t *testing.T) {
	s := &Server{}
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("OK"))
	})

	handler := s.loggingMiddleware(nextHandler)

	// Capture log output
	var buf bytes.Buffer
	originalOutput := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(originalOutput)

	req := httptest.NewRequest("GET", "/test-path", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Errorf("Expected status %d, got %d", http.StatusTeapot, w.Code)
	}

	logOutput := buf.String()
	if !strings.Contains(logOutput, "GET") || !strings.Contains(logOutput, "/test-path") || !strings.Contains(logOutput, "418") {
		t.Errorf("Log output missing expected fields. Got: %s", logOutput)
	}
}

func TestLoggingMiddleware_ForwardsFlush(t *testing.T) {
	s := &Server{}
	flushed := false
	handler := s.loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("wrapped writer is not a Flusher")
		}
		f.Flush()
		flushed = true
	}))

	originalOutput := log.Writer()
	log.SetOutput(&bytes.Buffer{})
	defer log.SetOutput(originalOutput)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/records/watch", nil))
	if !flushed || !w.Flushed {
		t.Errorf("flush not forwarded")
	}
}

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/api/records":                "/api/records",
		"/api/records/abc-123":        "/api/records/{id}",
		"/api/records/abc-123/delete": "/api/records/{id}/delete",
		"/api/records/watch":          "/api/records/watch",
		"/api/records/delete/confirm": "/api/records/delete/confirm",
		"/metrics":                    "/metrics",
		"/assets/app.js":              "/static",
	}
	for in, want := range tests {
		if got := routeLabel(in); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
