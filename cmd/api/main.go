package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/carepulse/cmd/mainconfig"
	"github.com/wolfman30/carepulse/internal/api/router"
	"github.com/wolfman30/carepulse/internal/app/bootstrap"
	"github.com/wolfman30/carepulse/internal/appointments"
	"github.com/wolfman30/carepulse/internal/compliance"
	appconfig "github.com/wolfman30/carepulse/internal/config"
	"github.com/wolfman30/carepulse/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/carepulse/internal/http/middleware"
	"github.com/wolfman30/carepulse/internal/notify"
	"github.com/wolfman30/carepulse/internal/observability/metrics"
	"github.com/wolfman30/carepulse/internal/patients"
	"github.com/wolfman30/carepulse/pkg/logging"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting carepulse API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"store_backend", cfg.StoreBackend,
		"blob_backend", cfg.BlobBackend,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *appconfig.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loadAWS := bootstrap.AWSConfigFunc(sync.OnceValues(func() (aws.Config, error) {
		return mainconfig.LoadAWSConfig(ctx, cfg)
	}))

	backends, err := bootstrap.BuildBackends(ctx, cfg, loadAWS, logger)
	if err != nil {
		return err
	}
	defer backends.Close()

	metricsHandler, workflowMetrics := setupMetrics()

	auditDB, err := bootstrap.OpenAuditDB(cfg)
	if err != nil {
		return err
	}
	var audit *compliance.AuditService
	if auditDB != nil {
		defer func() { _ = auditDB.Close() }()
		audit = compliance.NewAuditService(auditDB)
	} else {
		logger.Warn("DATABASE_URL not set; audit trail disabled")
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	viewCache := bootstrap.BuildViewCache(redisClient, cfg, logger)

	publisher, err := bootstrap.BuildPublisher(cfg, loadAWS, logger)
	if err != nil {
		return err
	}

	emailDispatcher := notify.NewDispatcher(bootstrap.BuildEmailSender(cfg, loadAWS, logger), logger)
	go emailDispatcher.Run(ctx)
	notifier := notify.NewService(
		emailDispatcher,
		notify.IdentityDirectory{Identities: backends.Identities},
		notifyLocation(cfg.NotifyTimezone, logger),
		logger,
	)

	patientOpts := []patients.Option{patients.WithMetrics(workflowMetrics)}
	apptOpts := []appointments.Option{
		appointments.WithMetrics(workflowMetrics),
		appointments.WithObservers(
			appointments.NewEventObserver(publisher),
			appointments.NewNotifyObserver(notifier),
			appointments.NewMetricsObserver(workflowMetrics),
		),
	}
	if audit != nil {
		patientOpts = append(patientOpts, patients.WithAuditor(audit))
		apptOpts = append(apptOpts, appointments.WithAuditor(audit))
	}
	var dashboardCache appointments.DashboardCache
	if viewCache != nil {
		apptOpts = append(apptOpts, appointments.WithInvalidator(viewCache))
		dashboardCache = viewCache
	}

	patientService := patients.NewService(backends.Identities, backends.Documents, backends.Blobs, patients.Config{
		PatientCollection: cfg.PatientCollectionID,
		BucketID:          cfg.BucketID,
		ProjectID:         cfg.ProjectID,
		StorageEndpoint:   cfg.StoragePublicEndpoint,
	}, logger, patientOpts...)
	appointmentService := appointments.NewService(backends.Documents, appointments.Config{
		PatientCollection:     cfg.PatientCollectionID,
		AppointmentCollection: cfg.AppointmentCollectionID,
	}, logger, apptOpts...)

	limiter := httpmiddleware.NewRateLimiter(cfg.PublicRateLimit, cfg.PublicRateBurst)
	defer limiter.Close()

	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; admin routes will reject every request")
	}

	var auditHandler *handlers.AdminAuditHandler
	if audit != nil {
		auditHandler = handlers.NewAdminAuditHandler(audit, logger)
	}

	handler := router.New(&router.Config{
		Logger:              logger,
		PatientsHandler:     patients.NewHandler(patientService, cfg.MaxUploadBytes, logger),
		AppointmentsHandler: appointments.NewHandler(appointmentService, dashboardCache, workflowMetrics, logger),
		AuditHandler:        auditHandler,
		MetricsHandler:      metricsHandler,
		AdminAuthSecret:     cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		PublicRateLimiter:   limiter,
		RequestTimeout:      30 * time.Second,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// setupMetrics builds a private registry with runtime collectors and the
// workflow metrics, and the handler that exposes it.
func setupMetrics() (http.Handler, *metrics.WorkflowMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), metrics.NewWorkflowMetrics(reg)
}

func notifyLocation(zone string, logger *logging.Logger) *time.Location {
	location, err := time.LoadLocation(zone)
	if err != nil {
		logger.Warn("invalid NOTIFY_TIMEZONE; using UTC", "zone", zone, "error", err)
		return time.UTC
	}
	return location
}
