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

	"settlement-service/config"
	"settlement-service/internal/api"
	"settlement-service/internal/broker"
	"settlement-service/internal/gateway"
	"settlement-service/internal/notifier"
	"settlement-service/internal/redisclient"
	"settlement-service/internal/service"
	"settlement-service/internal/store"
	"settlement-service/internal/util"
	"settlement-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting settlement service")

	tp, err := util.InitTracer("settlement-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSettlement)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	configCache := service.NewConfigCache(db)
	if err := configCache.Load(context.Background()); err != nil {
		log.Fatalf("Failed to load commission config: %v", err)
	}

	gatewayClient := gateway.NewHTTPClient(
		cfg.Gateway.BaseURL,
		cfg.Gateway.APIKey,
		time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second,
	)

	pointLedger := service.NewPointLedger(db)
	cancellationService := service.NewCancellationService(
		db,
		redisClient,
		gatewayClient,
		pointLedger,
		eventPublisher,
		cfg.Business.StrictPersistence,
		time.Duration(cfg.Business.OrderLockTTLSecs)*time.Second,
	)
	settlementService := service.NewSettlementService(
		db,
		redisClient,
		configCache,
		eventPublisher,
		time.Duration(cfg.Business.SummaryCacheTTLSecs)*time.Second,
	)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	notifyClient := notifier.NewHTTPNotifier(
		cfg.Notify.BaseURL,
		time.Duration(cfg.Notify.TimeoutSeconds)*time.Second,
	)
	notifyConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSettlement, cfg.Kafka.NotifierGroup)
	notificationWorker := worker.NewNotificationWorker(notifyConsumer, notifyClient)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil {
			log.Printf("Notification worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(cancellationService, settlementService, configCache, db)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	notificationWorker.Stop()

	log.Println("Server exited")
}
