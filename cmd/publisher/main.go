package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MarcoAS99/revolut-style-platform/pkg/config"
	"github.com/MarcoAS99/revolut-style-platform/pkg/db"
	"github.com/MarcoAS99/revolut-style-platform/pkg/kafka"
	"github.com/MarcoAS99/revolut-style-platform/pkg/metrics"
	"github.com/MarcoAS99/revolut-style-platform/pkg/mylogger"
	outboxRepository "github.com/MarcoAS99/revolut-style-platform/pkg/outbox/repository"
	"github.com/MarcoAS99/revolut-style-platform/pkg/outbox/worker"
	"github.com/MarcoAS99/revolut-style-platform/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	tp, err := utils.InitTracer(ctx, "outbox-publisher", cfg.Env)
	if err != nil {
		log.Fatalf("Failed to init tracer: %v", err)
	}

	logger, err := config.NewLogger(cfg.Env, cfg.Logger.Level)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			log.Printf("failed to sync logger: %v", err)
		}
	}()

	pool, err := db.NewPostgresDB(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("Error creating postgres DB: %v", err)
	}

	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("error creating kafka producer: %v", err)
	}
	producer := kafka.NewBreakerProducer(kafkaProducer, logger)

	outboxRepo := outboxRepository.NewOutboxRepository(pool, logger)

	outboxProcessor := worker.NewOutboxProcessor(
		pool,
		outboxRepo,
		producer,
		logger,
		worker.WithBatchSize(cfg.Outbox.BatchSize),
		worker.WithInterval(cfg.Outbox.Interval),
	)

	reg := metrics.NewRegistry()
	go func() {
		http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

		log.Println("Metrics listening on: " + cfg.Metrics.Port)
		if err := http.ListenAndServe(cfg.Metrics.Port, nil); err != nil {
			log.Printf("Error on metrics server: %v\n", err)
		}
	}()

	mylogger.Info(ctx, logger, "Outbox publisher started!")

	go outboxProcessor.Start(ctx)

	<-ctx.Done()

	shutdownCtx, exit := context.WithTimeout(context.Background(), 5*time.Second)
	defer exit()

	if err := producer.Close(); err != nil {
		log.Printf("Error closing kafka producer: %v\n", err)
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Error(
			shutdownCtx,
			logger,
			"Error shutting down telemetry",
		)
	} else {
		mylogger.Info(shutdownCtx, logger, "Telemetry down correctly")
	}

	pool.Close()
	mylogger.Info(shutdownCtx, logger, "Pool down correctly")
}
