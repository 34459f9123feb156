package adapthttp

import (
	"net/http"
	"strings"

	"weighbridge/internal/app"
	"weighbridge/internal/domain"
	"weighbridge/internal/export"
	"weighbridge/internal/metrics"
)

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	repo     domain.RecordRepository
	tickets  *app.TicketService
	summary  *app.SummaryService
	authSvc  *app.AuthService
	exporter *export.Exporter
	metrics  *metrics.Metrics

	oidcConfig  OIDCConfig
	disableAuth bool
	// forwardAuthHeader names the header a trusted proxy sets to the
	// authenticated username. Empty ignores proxy headers.
	forwardAuthHeader string
	webDir            string
}

// New creates a Server wired to the given application services. repo backs
// the live record feed.
func New(repo domain.RecordRepository, ts *app.TicketService, ss *app.SummaryService, as *app.AuthService, webDir string) *Server {
	return &Server{repo: repo, tickets: ts, summary: ss, authSvc: as, webDir: webDir}
}

// WithExporter enables the export endpoints.
func (s *Server) WithExporter(e *export.Exporter) *Server {
	s.exporter = e
	return s
}

// WithMetrics enables /metrics and per-request instrumentation.
func (s *Server) WithMetrics(m *metrics.Metrics) *Server {
	s.metrics = m
	return s
}

// WithOIDC enables SSO login.
func (s *Server) WithOIDC(cfg OIDCConfig) *Server {
	s.oidcConfig = cfg
	return s
}

// WithForwardAuth trusts header, as set by an authenticating reverse proxy,
// to name the operator. Only enable this when clients cannot reach the
// server except through that proxy.
func (s *Server) WithForwardAuth(header string) *Server {
	s.forwardAuthHeader = http.CanonicalHeaderKey(strings.TrimSpace(header))
	return s
}

// WithoutAuth turns off authentication (tests and trusted networks).
func (s *Server) WithoutAuth() *Server {
	s.disableAuth = true
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	protected := http.NewServeMux()
	protected.HandleFunc("/records", s.handleRecords)
	protected.HandleFunc("/records/watch", s.handleRecordsWatch)
	protected.HandleFunc("/records/delete/confirm", s.handleDeleteConfirm)
	protected.HandleFunc("/records/delete/cancel", s.handleDeleteCancel)
	protected.HandleFunc("/records/{id}", s.handleRecord)
	protected.HandleFunc("/records/{id}/delete", s.handleDeleteRequest)
	protected.HandleFunc("/summary/daily", s.handleSummaryDaily)
	protected.HandleFunc("/exports", s.handleExports)

	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	api.HandleFunc("/auth/login", s.handleLogin)
	api.HandleFunc("/auth/logout", s.handleLogout)
	api.HandleFunc("/auth/setup", s.handleSetupOperator)
	api.HandleFunc("/auth/config", s.handleConfig)
	api.HandleFunc("/auth/sso/login", s.handleSSOLogin)
	api.HandleFunc("/auth/sso/callback", s.handleSSOCallback)
	api.Handle("/", s.authMiddleware(protected))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	if s.metrics != nil {
		root.Handle("/metrics", s.metrics.Handler())
	}
	if s.webDir != "" {
		root.Handle("/", spaFromDisk(s.webDir))
	}

	return withNoCache(s.loggingMiddleware(root))
}
