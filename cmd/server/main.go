package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"material-service/config"
	"material-service/internal/api"
	"material-service/internal/broker"
	"material-service/internal/engine"
	"material-service/internal/redisclient"
	"material-service/internal/sequence"
	"material-service/internal/service"
	"material-service/internal/store"
	"material-service/internal/store/memory"
	"material-service/internal/util"
	"material-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting material service")

	tp, err := util.InitTracer(util.ServiceName, cfg.Server.Env, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := openStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close()
	logger.Info("Store ready", zap.String("driver", cfg.Database.Driver))

	var idempotency api.IdempotencyStore
	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("Redis unavailable, idempotency keys disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			idempotency = redisClient
			logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
		}
	}

	var sink broker.Sink = broker.NopSink{}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicInventoryEvents)
		defer producer.Close()
		sink = producer
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	}
	eventPublisher := broker.NewEventPublisher(sink)

	eng := engine.New(engine.Config{
		SafetyStockMultiplier: cfg.Procurement.SafetyStockMultiplier,
		Thresholds: engine.AlertThresholds{
			UrgentDays:          cfg.Procurement.AlertUrgentDays,
			WarningDays:         cfg.Procurement.AlertWarningDays,
			ImpendingWindowDays: cfg.Procurement.AlertImpendingDays,
		},
	})
	clock := service.SystemClock(cfg.Server.Timezone)

	alertService := service.NewAlertService(db, eng, clock)
	services := api.Services{
		Requirements: service.NewRequirementService(db, eng, clock),
		Inventory:    service.NewInventoryService(db, eventPublisher),
		Receipts:     service.NewReceiptService(db, eventPublisher, sequence.New(cfg.Procurement.OrderNoPrefix), clock),
		Plans:        service.NewPlanService(db, eng, eventPublisher),
		Alerts:       alertService,
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	alertWorker := worker.NewAlertWorker(alertService, cfg.Worker.AlertRefreshInterval)
	go func() {
		if err := alertWorker.Start(workerCtx); err != nil {
			logger.Error("Alert worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(services, db, idempotency, cfg.Redis.IdempotencyTTL)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	alertWorker.Stop()

	logger.Info("Server exited")
}

// openStore connects the configured store driver
func openStore(cfg *config.Config) (service.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		st := memory.NewStore()
		if err := seedDemo(st, time.Now().In(cfg.Server.Timezone)); err != nil {
			return nil, fmt.Errorf("failed to seed memory store: %w", err)
		}
		return st, nil

	case config.DriverPostgres:
		st, err := store.NewStore(cfg.Database.URL, store.Options{
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
		})
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Database.Driver)
}
