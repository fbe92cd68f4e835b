package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/careops/queue-api/internal/config"
	healthHandler "github.com/careops/queue-api/internal/handler/health"
	queueHandler "github.com/careops/queue-api/internal/handler/queue"
	"github.com/careops/queue-api/internal/middleware"
	"github.com/careops/queue-api/internal/repository/postgres"
	"github.com/careops/queue-api/internal/router"
	queueService "github.com/careops/queue-api/internal/service/queue"
	"github.com/careops/queue-api/pkg/logger"
	"github.com/careops/queue-api/pkg/messaging/redis"
	"github.com/careops/queue-api/pkg/metrics"
	"github.com/careops/queue-api/pkg/worker"
)

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log.Zerolog())
	if err != nil {
		log.Fatal(err, "failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.New("queue_api")

	queueRepo := postgres.NewQueueRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	svc := queueService.NewService(queueRepo, outboxRepo, m, queueService.Config{
		EmergencyMarker: cfg.Queue.EmergencyMarker,
		WalkInNote:      cfg.Queue.WalkInNote,
	})

	queueH := queueHandler.NewHandler(svc)
	healthH := healthHandler.NewHandler(db)

	r := router.NewRouter(queueH, healthH, router.Config{
		RateLimit: middleware.RateLimiterConfig{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		},
		CORS:           middleware.DefaultCORSConfig(),
		RequestTimeout: cfg.Server.RequestTimeout,
	})
	r.Setup()

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		Channel:      cfg.Outbox.Channel,
		BatchSize:    cfg.Outbox.BatchSize,
		PollInterval: cfg.Outbox.PollInterval,
		MaxRetries:   cfg.Outbox.MaxRetries,
		RetryDelay:   cfg.Outbox.RetryDelay,
		RetainFor:    cfg.Outbox.RetainFor,
		CleanupEvery: cfg.Outbox.CleanupEvery,
	}, log, m)
	go processor.Start(workerCtx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err, "server forced to shutdown")
	}

	log.Info("server exited")
}
