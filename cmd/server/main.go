package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abdelhakim-Baalla/El-Marketa/config"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/api"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/auth"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/broker"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/notifier"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/payment"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/redisclient"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/service"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/store"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/util"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	logger := util.GetLogger()
	defer logger.Sync()

	tp, err := util.InitTracer("el-marketa", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Warn("Failed to init tracer, continuing without tracing", zap.Error(err))
	}

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	rdb, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()
	logger.Info("Connected to Redis")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotification)
	defer producer.Close()

	dispatcher := notifier.NewDispatcher(producer)
	defer dispatcher.Close()

	catalogSvc := service.NewCatalogService(db)
	orderSvc := service.NewOrderService(db, db, db, dispatcher)
	inventorySvc := service.NewInventoryService(db, db, dispatcher)

	paymentSvc := payment.NewService(
		payment.Config{
			WebhookSecret: cfg.Payment.WebhookSecret,
			Currency:      cfg.Payment.Currency,
			SuccessURL:    cfg.Payment.SuccessURL,
			CancelURL:     cfg.Payment.CancelURL,
		},
		payment.NewClient(cfg.Payment.APIBase, cfg.Payment.SecretKey),
		db, db, db, rdb, orderSvc, dispatcher,
	)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotification, cfg.Kafka.ConsumerGroup)
	notificationWorker := worker.NewNotificationWorker(consumer, dispatcher)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil {
			logger.Error("Notification worker stopped", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handler := api.NewHandler(catalogSvc, orderSvc, inventorySvc, paymentSvc, dispatcher, verifier)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	stopWorker()
	if err := notificationWorker.Stop(); err != nil {
		logger.Error("Failed to stop notification worker", zap.Error(err))
	}

	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
