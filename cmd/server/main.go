// Package main runs the collectives HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fundhub/backend/config"
	"github.com/fundhub/backend/internal/activities"
	"github.com/fundhub/backend/internal/auth"
	"github.com/fundhub/backend/internal/notifications"
	"github.com/fundhub/backend/internal/payments"
	"github.com/fundhub/backend/internal/store"
	"github.com/fundhub/backend/internal/store/memory"
	"github.com/fundhub/backend/internal/store/postgres"
	"github.com/fundhub/backend/pkg/database"
	"github.com/fundhub/backend/pkg/events"
	"github.com/fundhub/backend/pkg/queue"
	"github.com/fundhub/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	var st store.Store
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		st = memory.New()
	default:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		st = postgres.New(pool)
	}

	var enqueuer notifications.Enqueuer = notifications.NewLogEnqueuer(logger)
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		enqueuer = queue.NewQueue(rdb.Client, logger)
	} else {
		logger.Warn("REDIS_ADDR not set, notification emails are logged only")
	}

	var publisher activities.Publisher
	if cfg.Kafka.Enabled() {
		producer, err := events.NewProducer(events.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.ActivityTopic})
		if err != nil {
			logger.Fatal("kafka", zap.Error(err))
		}
		defer producer.Close()
		publisher = producer
		logger.Info("publishing activities", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.ActivityTopic))
	}

	if cfg.Stripe.SecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY not set, paid orders will fail")
	}

	router := newRouter(deps{
		store:              st,
		jwt:                auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours),
		gateway:            payments.NewStripeGateway(cfg.Stripe.SecretKey),
		enqueuer:           enqueuer,
		publisher:          publisher,
		platformName:       cfg.Platform.Name,
		nativeService:      cfg.Platform.NativePaymentService,
		platformFeePercent: cfg.Platform.FeePercent,
		corsOrigins:        cfg.Server.CORSAllowedOrigins,
		health: func(c *gin.Context) map[string]string {
			if rdb == nil {
				return nil
			}
			if err := rdb.Healthy(c.Request.Context()); err != nil {
				return map[string]string{"redis": "down"}
			}
			return map[string]string{"redis": "ok"}
		},
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
