package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weighbridge/internal/adapter/blob/fs"
	"weighbridge/internal/adapter/blob/s3"
	adapthttp "weighbridge/internal/adapter/http"
	"weighbridge/internal/adapter/memory"
	"weighbridge/internal/adapter/postgres"
	"weighbridge/internal/adapter/sqlite"
	"weighbridge/internal/app"
	"weighbridge/internal/config"
	"weighbridge/internal/domain"
	"weighbridge/internal/export"
	"weighbridge/internal/metrics"
)

type store interface {
	domain.RecordRepository
	domain.OperatorRepository
	domain.SessionRepository
	io.Closer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(cfg)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer func() { _ = db.Close() }()

	m := metrics.New()
	tickets := app.NewTicketService(db, m)
	summary := app.NewSummaryService(db)
	authSvc := app.NewAuthService(db, db)

	if cfg.InitialOperator != "" {
		err := authSvc.CreateInitialOperator(ctx, cfg.InitialOperator, cfg.InitialOperatorPassword)
		switch {
		case err == nil:
			log.Printf("created initial operator %q", cfg.InitialOperator)
		case errors.Is(err, app.ErrOperatorsExist):
		default:
			log.Fatalf("initial operator: %v", err)
		}
	}

	srv := adapthttp.New(db, tickets, summary, authSvc, cfg.WebDir).WithMetrics(m)
	if cfg.DisableAuth {
		log.Printf("authentication disabled")
		srv = srv.WithoutAuth()
	}
	if cfg.ForwardAuthHeader != "" {
		log.Printf("trusting forward auth header %s", cfg.ForwardAuthHeader)
		srv = srv.WithForwardAuth(cfg.ForwardAuthHeader)
	}
	if cfg.OIDCEnabled() {
		oidcCfg, err := adapthttp.NewOIDCConfig(ctx, cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, cfg.OIDCRedirectURL)
		if err != nil {
			log.Fatalf("%v", err)
		}
		srv = srv.WithOIDC(oidcCfg)
	}

	sink, err := openSink(ctx, cfg)
	if err != nil {
		log.Fatalf("export sink: %v", err)
	}
	if sink != nil {
		exporter := export.NewExporter(db, sink, m)
		srv = srv.WithExporter(exporter)
		if cfg.ExportSchedule != "" {
			sched, err := export.NewScheduler(ctx, cfg.ExportSchedule, exporter)
			if err != nil {
				log.Fatalf("%v", err)
			}
			sched.Start()
			defer sched.Stop()
			log.Printf("exports scheduled %q via %s", cfg.ExportSchedule, cfg.ExportDriver)
		}
	}

	go pruneSessions(ctx, authSvc)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	log.Printf("listening on %s (store %s)", ln.Addr(), cfg.StoreDriver)
	if err := serve(ctx, httpSrv, ln); err != nil {
		log.Fatal(err)
	}
}

// serve runs srv on ln until ctx is done, then returns once in-flight
// requests have drained or the shutdown timeout passes.
func serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownDone
	return nil
}

func openStore(cfg config.Config) (store, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		return postgres.Open(cfg.DatabaseURL)
	case config.StoreMemory:
		return memory.New(), nil
	default:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Printf("sqlite store at %s", db.Path())
		return db, nil
	}
}

func openSink(ctx context.Context, cfg config.Config) (export.Sink, error) {
	switch cfg.ExportDriver {
	case config.ExportFS:
		return fs.New(cfg.ExportDir)
	case config.ExportS3:
		return s3.New(ctx, s3.Config{
			Bucket:          cfg.ExportS3Bucket,
			Region:          cfg.ExportS3Region,
			Endpoint:        cfg.ExportS3Endpoint,
			PathStyle:       cfg.ExportS3PathStyle,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		})
	}
	return nil, nil
}

func pruneSessions(ctx context.Context, authSvc *app.AuthService) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := authSvc.PruneSessions(ctx); err != nil {
				log.Printf("prune sessions: %v", err)
			}
		}
	}
}
