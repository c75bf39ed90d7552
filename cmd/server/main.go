package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmdiary/internal/config"
	"github.com/mamadbah2/farmdiary/internal/domain/models"
	"github.com/mamadbah2/farmdiary/internal/repository/localfile"
	"github.com/mamadbah2/farmdiary/internal/repository/mongodb"
	"github.com/mamadbah2/farmdiary/internal/repository/sheets"
	"github.com/mamadbah2/farmdiary/internal/scheduler"
	"github.com/mamadbah2/farmdiary/internal/server/handlers"
	"github.com/mamadbah2/farmdiary/internal/server/router"
	diarysvc "github.com/mamadbah2/farmdiary/internal/service/diary"
	reportingsvc "github.com/mamadbah2/farmdiary/internal/service/reporting"
	"github.com/mamadbah2/farmdiary/pkg/clients/anthropic"
	whatsappclient "github.com/mamadbah2/farmdiary/pkg/clients/whatsapp"
	"github.com/mamadbah2/farmdiary/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	lang, err := models.ParseLanguage(cfg.Server.Language)
	if err != nil {
		baseLogger.Fatal("invalid APP_LANGUAGE", zap.Error(err))
	}

	loc, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		baseLogger.Fatal("invalid TIMEZONE", zap.String("timezone", cfg.Reporting.Timezone), zap.Error(err))
	}

	// A store that cannot be opened is not fatal for the process: the server
	// keeps running and every page reports the configuration error.
	store, storeErr := openStore(context.Background(), cfg, lang, baseLogger)
	if storeErr != nil {
		baseLogger.Error("record store unavailable", zap.String("backend", cfg.Store.Backend), zap.Error(storeErr))
	} else {
		baseLogger.Info("record store connected", zap.String("backend", cfg.Store.Backend))
	}

	diarySvc := diarysvc.NewService(store, loc, baseLogger.Named("svc.diary"))
	reportingSvc := reportingsvc.NewService(store, baseLogger.Named("svc.reporting"))

	// Initialize AI Client
	var aiClient anthropic.Client
	if cfg.AI.AnthropicKey != "" {
		aiClient = anthropic.NewClient(cfg.AI.AnthropicKey)
		baseLogger.Info("anthropic ai client enabled")
	} else {
		baseLogger.Warn("anthropic api key missing, anomalies will be reported without analysis")
	}

	if storeErr == nil {
		var archive scheduler.Archive
		if cfg.MongoDB.Enabled() {
			mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
			if err != nil {
				baseLogger.Error("mongodb unavailable, monthly summaries will not be archived", zap.Error(err))
			} else {
				archive = mongoRepo
				defer func() {
					if err := mongoRepo.Close(context.Background()); err != nil {
						baseLogger.Error("failed to close mongodb connection", zap.Error(err))
					}
				}()
			}
		}

		var notifier scheduler.Notifier
		if cfg.WhatsApp.Enabled() {
			notifier = whatsappclient.NewClient(cfg.WhatsApp)
			baseLogger.Info("monthly summary notifications enabled", zap.String("recipient", cfg.WhatsApp.ReportRecipient))
		}

		sched := scheduler.NewScheduler(cfg.Reporting, loc, reportingSvc, archive, notifier, baseLogger.Named("scheduler"))
		if err := sched.Start(); err != nil {
			baseLogger.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	pages := handlers.NewDiaryHandler(diarySvc, reportingSvc, lang, storeErr, baseLogger.Named("handlers.pages"))
	api := handlers.NewAPIHandler(diarySvc, reportingSvc, aiClient, lang, storeErr, baseLogger.Named("handlers.api"))
	engine := router.New(pages, api, storeErr, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

// openStore connects the configured backend once for the life of the process.
func openStore(ctx context.Context, cfg *config.Config, lang models.Language, log *zap.Logger) (diarysvc.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendSheets:
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		repo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, log.Named("repo.sheets"))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", diarysvc.ErrStoreUnavailable, err)
		}
		store, err := sheets.NewRecordStore(ctx, repo, lang.Columns(), log.Named("repo.sheets"))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", diarysvc.ErrStoreUnavailable, err)
		}
		return store, nil
	default:
		store, err := localfile.NewStore(cfg.Store.LocalPath, lang.Columns(), log.Named("repo.localfile"))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", diarysvc.ErrStoreUnavailable, err)
		}
		return store, nil
	}
}
