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

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/broker"
	"storefront/internal/pricing"
	"storefront/internal/redisclient"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"
	"storefront/internal/worker"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service")

	tp, err := util.InitTracer("storefront", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	st := store.Probe(cfg.Database.URL, logger)
	defer st.Close()

	var cache *redisclient.Client
	if cfg.Redis.Enabled {
		cache, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("Redis not available, stock cache disabled", zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
			logger.Info("Redis connected")
		}
	}

	var publisher *broker.EventPublisher
	var auditWorker *worker.AuditWorker
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized")

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
		defer consumer.Close()
		auditWorker = worker.NewAuditWorker(consumer, st)
	}

	pricingCfg := pricing.Config{
		TaxRate:               decimal.NewFromFloat(cfg.Business.TaxRate),
		FreeShippingThreshold: decimal.NewFromFloat(cfg.Business.FreeShippingThreshold),
		ShippingFee:           decimal.NewFromFloat(cfg.Business.ShippingFee),
	}

	orderService := service.NewOrderService(st, publisher, pricingCfg)
	catalogService := service.NewCatalogService(st, cache)
	authService, err := service.NewAuthService(service.AuthConfig{
		JWTSecret:     []byte(cfg.Auth.JWTSecret),
		TokenTTL:      cfg.Auth.TokenTTL,
		RefreshWindow: cfg.Auth.RefreshWindow,
		AdminEmail:    cfg.Auth.AdminEmail,
		AdminPassword: cfg.Auth.AdminPassword,
	})
	if err != nil {
		log.Fatalf("Failed to initialize auth service: %v", err)
	}

	ctx := context.Background()
	if err := catalogService.SeedDemoCatalog(ctx); err != nil {
		logger.Warn("Failed to seed demo catalog", zap.Error(err))
	}
	if err := catalogService.SyncStockToCache(ctx); err != nil {
		logger.Warn("Failed to sync stock to cache", zap.Error(err))
	}

	if auditWorker != nil {
		auditWorker.Start(context.Background())
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(api.Metrics())

	handler := api.NewHandler(orderService, catalogService, authService, st)
	handler.RegisterRoutes(e)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: e,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	if auditWorker != nil {
		auditWorker.Stop()
	}

	logger.Info("Server exited")
}
