package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fulfillment-service/config"
	"fulfillment-service/internal/cache"
	"fulfillment-service/internal/consumer"
	"fulfillment-service/internal/directory"
	"fulfillment-service/internal/producer"
	"fulfillment-service/internal/repository"
	"fulfillment-service/internal/repository/memory"
	"fulfillment-service/internal/router"
	"fulfillment-service/internal/scheduler"
	"fulfillment-service/internal/service"
	gtransport "fulfillment-service/internal/transport/grpc"
	"fulfillment-service/pkg/database"
	"fulfillment-service/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)

	deps := map[string]gtransport.Pinger{}

	var repos *repository.Repository
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db := database.ConnectDB(&cfg.DB.Config, log)
		defer database.CloseDB(db, log)
		repos = repository.New(db)
		deps["postgres"] = database.Pinger{DB: db}
	default:
		log.Info("Using in-memory store")
		repos = memory.New()
	}

	// nil-интерфейсы важны: сервис проверяет cache/events на nil
	var summaryCache service.SummaryCache
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSeconds)*time.Second, log)
		if err != nil {
			log.Fatal("failed to create redis client", zap.Error(err))
		}
		defer redisClient.Close()
		summaryCache = redisClient
		deps["redis"] = redisClient
		log.Info("Redis cache enabled")
	} else {
		log.Info("Redis cache disabled")
	}

	var events service.EventBus
	if cfg.Kafka.Enabled {
		kp := producer.NewEventProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
		defer func() {
			if err := kp.Close(); err != nil {
				log.Warn("failed to close kafka producer", zap.Error(err))
			}
		}()
		events = kp
		log.Info("Kafka producer enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.TopicEvents))
	} else {
		log.Info("Kafka producer disabled")
	}

	inventorySvc := service.NewInventoryService(repos, events, summaryCache, log)
	fulfillmentSvc := service.NewFulfillmentService(repos, inventorySvc, events, log)

	if cfg.WarehousesFile != "" {
		dir, err := directory.LoadFile(cfg.WarehousesFile)
		if err != nil {
			log.Fatal("failed to load warehouses file", zap.String("path", cfg.WarehousesFile), zap.Error(err))
		}
		if err := directory.Seed(context.Background(), dir, inventorySvc, log); err != nil {
			log.Fatal("failed to seed directory", zap.Error(err))
		}
	}

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	sched := scheduler.NewScheduler(inventorySvc, cfg.ExpirySweep, log)
	sched.Start(sweepCtx)

	var pickRequests *consumer.KafkaPickRequestConsumer
	if cfg.Kafka.Enabled && cfg.Kafka.TopicPickRequests != "" {
		pickRequests = consumer.NewKafkaPickRequestConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID,
			cfg.Kafka.TopicPickRequests, fulfillmentSvc, log)
		go func() {
			if err := pickRequests.Run(sweepCtx); err != nil {
				log.Error("pick request consumer stopped", zap.Error(err))
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPPort,
		Handler:           router.Router(inventorySvc, fulfillmentSvc, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		log.Fatal("failed to listen", zap.Error(err))
	}
	grpcSrv := gtransport.NewServer(log, deps)
	go grpcSrv.WatchDependencies(sweepCtx, 30*time.Second)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting HTTP server", zap.String("addr", cfg.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		log.Info("Starting gRPC server", zap.String("addr", cfg.GRPCPort))
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down fulfillment service...")

	// Останавливаем планировщик
	sched.Stop()
	sweepCancel()
	if pickRequests != nil {
		_ = pickRequests.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	grpcSrv.GracefulStop()
	log.Info("Fulfillment service stopped gracefully")
}
