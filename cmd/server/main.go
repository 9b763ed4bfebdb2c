package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/wellca/internal/chart"
	"github.com/mamadbah2/wellca/internal/config"
	"github.com/mamadbah2/wellca/internal/dashboard"
	"github.com/mamadbah2/wellca/internal/notify"
	"github.com/mamadbah2/wellca/internal/repository/mongodb"
	"github.com/mamadbah2/wellca/internal/repository/sheets"
	"github.com/mamadbah2/wellca/internal/scheduler"
	"github.com/mamadbah2/wellca/internal/server/handlers"
	"github.com/mamadbah2/wellca/internal/server/router"
	"github.com/mamadbah2/wellca/internal/server/ws"
	metricssvc "github.com/mamadbah2/wellca/internal/service/metrics"
	reportingsvc "github.com/mamadbah2/wellca/internal/service/reporting"
	"github.com/mamadbah2/wellca/pkg/clients/wellca"
	"github.com/mamadbah2/wellca/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	location := cfg.Reporting.Location()

	backend := wellca.NewClient(cfg.Backend)
	if cfg.Backend.CSRFToken == "" && cfg.Backend.DiscoverCSRF {
		discoverCtx, cancel := context.WithTimeout(ctx, cfg.Backend.Timeout)
		if err := backend.DiscoverCSRF(discoverCtx); err != nil {
			baseLogger.Warn("anti-forgery token discovery failed, continuing without it", zap.Error(err))
		} else {
			header, _ := backend.CSRF()
			baseLogger.Info("anti-forgery token discovered", zap.String("header", header))
		}
		cancel()
	}

	var sheetsRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		repo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetsRepo = repo
	} else {
		baseLogger.Info("google sheets export disabled")
	}

	var snapshotRepo mongodb.Repository
	if cfg.MongoDB.Enabled() {
		mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		snapshotRepo = mongoRepo
	} else {
		baseLogger.Info("report history disabled")
	}

	presenter := notify.NewPresenter(notify.Options{
		Display: cfg.Notifications.Display,
		Fade:    cfg.Notifications.Fade,
	}, baseLogger.Named("notify"))

	hub := ws.NewHub(baseLogger.Named("ws"))
	go hub.Run(ctx)
	unsubscribe := presenter.Subscribe(hub.Publish)
	defer unsubscribe()

	renderer := chart.NewRenderer(cfg.Reporting.ChartWidth, cfg.Reporting.ChartHeight, baseLogger.Named("chart"))
	controller := dashboard.NewController(backend, metricssvc.NewService(location, baseLogger.Named("svc.metrics")), renderer, presenter, baseLogger.Named("dashboard"))
	defer controller.Dispose()

	reportingSvc := reportingsvc.NewService(backend, sheetsRepo, snapshotRepo, location, baseLogger.Named("svc.reporting"))

	dashboardHandler := handlers.NewDashboardHandler(controller, reportingSvc, baseLogger.Named("handlers.dashboard"))
	recordsHandler := handlers.NewRecordsHandler(backend, baseLogger.Named("handlers.records"))
	engine := router.New(dashboardHandler, recordsHandler, hub, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Reporting, reportingSvc, presenter, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	baseLogger.Info("weekly report scheduled", zap.Time("next_run", sched.Next()))
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
