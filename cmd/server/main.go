package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/planbeam/taskboard/api/handler"
	"github.com/planbeam/taskboard/board"
	"github.com/planbeam/taskboard/internal/config"
	"github.com/planbeam/taskboard/internal/infrastructure/monitor"
	pgInfra "github.com/planbeam/taskboard/internal/infrastructure/postgres"
	redisInfra "github.com/planbeam/taskboard/internal/infrastructure/redis"
	"github.com/planbeam/taskboard/internal/infrastructure/snapshot"
	"github.com/planbeam/taskboard/internal/middleware"
	"github.com/planbeam/taskboard/internal/router"
	"github.com/planbeam/taskboard/internal/services"
	"github.com/planbeam/taskboard/internal/services/lifecycle"
	"github.com/planbeam/taskboard/pkg/httpcontext"
	"github.com/planbeam/taskboard/pkg/logger"
	"github.com/planbeam/taskboard/repository/postgres"
	redisRepo "github.com/planbeam/taskboard/repository/redis"
	authUC "github.com/planbeam/taskboard/usecase/auth"
	importsUC "github.com/planbeam/taskboard/usecase/imports"
	syncUC "github.com/planbeam/taskboard/usecase/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	snapshotStore, err := snapshot.Open(cfg.Snapshot.Path)
	if err != nil {
		zapLogger.Fatal("failed to open snapshot store", zap.Error(err))
	}
	manager.Register("snapshots", func(ctx context.Context) error {
		return snapshotStore.Close()
	})

	mon := monitor.New(pool, redisClient, snapshotStore, cfg.Sync.MonitorInterval, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	recordRepo := postgres.NewRecordRepository(pool)
	membershipRepo := postgres.NewMembershipRepository(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, 24*time.Hour)

	bus := board.NewBus()
	store := board.NewStore(bus, zapLogger)
	history := board.NewHistory("default", snapshotStore, store, cfg.Snapshot.HistoryDepth, zapLogger)

	refresher := services.NewStatusRefresher(store, cfg.Sync.RefreshSchedule, zapLogger)
	refresher.Start()
	manager.Register("status_refresher", func(ctx context.Context) error {
		refresher.Stop()
		return nil
	})

	syncCoordinator := syncUC.New(recordRepo, membershipRepo, store, cfg.Sync.BatchSize, zapLogger)
	authUseCase := authUC.New(sessionRepo, membershipRepo, bus, zapLogger)
	importUseCase := importsUC.New(store, history, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:   apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger, cfg.JWT.Secret, cfg.JWT.Issuer, time.Hour),
		Board:  apiHandler.NewBoardHandler(store, history, syncCoordinator, authUseCase, ctxAdapter, zapLogger),
		Import: apiHandler.NewImportHandler(importUseCase, store, syncCoordinator, authUseCase, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
