package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/calftracker/internal/config"
	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/repository"
	"github.com/mamadbah2/calftracker/internal/repository/memory"
	"github.com/mamadbah2/calftracker/internal/repository/mongodb"
	"github.com/mamadbah2/calftracker/internal/repository/postgres"
	"github.com/mamadbah2/calftracker/internal/repository/sheets"
	"github.com/mamadbah2/calftracker/internal/repository/supabase"
	"github.com/mamadbah2/calftracker/internal/scheduler"
	"github.com/mamadbah2/calftracker/internal/server/handlers"
	"github.com/mamadbah2/calftracker/internal/server/router"
	adminsvc "github.com/mamadbah2/calftracker/internal/service/admin"
	commandsvc "github.com/mamadbah2/calftracker/internal/service/commands"
	exportsvc "github.com/mamadbah2/calftracker/internal/service/export"
	reportingsvc "github.com/mamadbah2/calftracker/internal/service/reporting"
	"github.com/mamadbah2/calftracker/internal/service/session"
	"github.com/mamadbah2/calftracker/internal/service/tracker"
	whatsappsvc "github.com/mamadbah2/calftracker/internal/service/whatsapp"
	supabaseclient "github.com/mamadbah2/calftracker/pkg/clients/supabase"
	whatsappclient "github.com/mamadbah2/calftracker/pkg/clients/whatsapp"
	"github.com/mamadbah2/calftracker/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	store, closeStore, err := openStore(cfg.Store, baseLogger.Named("repo.store"))
	if err != nil {
		baseLogger.Fatal("failed to init record store", zap.Error(err))
	}
	defer closeStore()

	loc := cfg.Reporting.Location()
	defaults := models.DefaultSettings()
	defaults.Thresholds = models.Thresholds{
		ConsecutiveCount:      cfg.Flagging.ConsecutiveCount,
		LowConsumptionPercent: cfg.Flagging.LowConsumptionPercent,
		MissedFeedingHours:    cfg.Flagging.MissedFeedingHours,
	}

	trackerSvc := tracker.NewService(store, defaults, loc, baseLogger.Named("svc.tracker"))
	if err := trackerSvc.Reload(context.Background()); err != nil {
		// The reload job retries; until then the screens show an empty herd.
		baseLogger.Error("initial load failed", zap.Error(err))
	}

	sessions := session.NewManager(trackerSvc, cfg.Session.TTL, baseLogger.Named("svc.session"))
	adminSvc := adminsvc.NewService(store, trackerSvc, baseLogger.Named("svc.admin"))

	var snapshots mongodb.Repository
	if cfg.MongoDB.Enabled() {
		mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		snapshots = mongoRepo
	} else {
		baseLogger.Warn("mongodb uri missing, herd snapshots disabled")
	}
	reportingSvc := reportingsvc.NewService(trackerSvc, snapshots, baseLogger.Named("svc.reporting"))

	var exporter scheduler.Exporter
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		exporter = exportsvc.NewService(trackerSvc, sheetsRepo, baseLogger.Named("svc.export"))
	} else {
		baseLogger.Warn("sheets credentials missing, feeding export disabled")
	}

	var messagingSvc whatsappsvc.MessagingService
	var webhookHandler *handlers.WebhookHandler
	if cfg.WhatsApp.Enabled() {
		commandDispatcher := commandsvc.NewService(trackerSvc, baseLogger.Named("svc.commands"))
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		metaSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, commandDispatcher, baseLogger.Named("svc.whatsapp"))
		messagingSvc = metaSvc
		webhookHandler = handlers.NewWebhookHandler(metaSvc, baseLogger.Named("handlers.whatsapp"))
	} else {
		baseLogger.Warn("whatsapp token missing, text commands and report delivery disabled")
	}

	sched := scheduler.NewScheduler(*cfg, trackerSvc, reportingSvc, exporter, messagingSvc, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	h := router.Handlers{
		Session: handlers.NewSessionHandler(trackerSvc, sessions, baseLogger.Named("handlers.session")),
		Tracker: handlers.NewTrackerHandler(trackerSvc, baseLogger.Named("handlers.tracker")),
		Admin:   handlers.NewAdminHandler(adminSvc, sched, baseLogger.Named("handlers.admin")),
		Webhook: webhookHandler,
	}
	if snapshots != nil {
		h.Reports = handlers.NewReportHandler(reportingSvc, baseLogger.Named("handlers.reports"))
	}
	engine := router.New(h, sessions, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("store", cfg.Store.Driver),
			zap.String("timezone", loc.String()))
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

// openStore builds the record store selected by cfg.Driver. The returned func
// releases its resources.
func openStore(cfg config.StoreConfig, logger *zap.Logger) (repository.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory store, records are lost on restart")
		return memory.NewStore(), func() {}, nil
	case config.DriverSupabase:
		c := supabaseclient.NewClient(supabaseclient.Config{
			URL:    cfg.SupabaseURL,
			APIKey: cfg.SupabaseKey,
		})
		return supabase.NewStore(c, logger), func() {}, nil
	case config.DriverPostgres:
		pg, err := postgres.Open(cfg.PostgresDSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() {
			if err := pg.Close(); err != nil {
				logger.Error("failed to close postgres connection", zap.Error(err))
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
