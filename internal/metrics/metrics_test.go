package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTicketOp(t *testing.T) {
	m := New()
	m.ObserveTicketOp("save", nil)
	m.ObserveTicketOp("save", nil)
	m.ObserveTicketOp("save", errors.New("boom"))

	if got := testutil.ToFloat64(m.ticketOps.WithLabelValues("save", "ok")); got != 2 {
		t.Errorf("ok count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ticketOps.WithLabelValues("save", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveExport(nil)
	m.ObserveHTTP("GET", "/api/records", 200, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`weighbridge_export_runs_total{result="ok"} 1`,
		`weighbridge_http_requests_total{code="200",method="GET",route="/api/records"} 1`,
		"weighbridge_http_request_duration_seconds_bucket",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
