package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MarcoAS99/revolut-style-platform/internal/repository"
	"github.com/MarcoAS99/revolut-style-platform/internal/service"
	transport "github.com/MarcoAS99/revolut-style-platform/internal/transport/http"
	"github.com/MarcoAS99/revolut-style-platform/internal/transport/http/handler"
	"github.com/MarcoAS99/revolut-style-platform/pkg/config"
	"github.com/MarcoAS99/revolut-style-platform/pkg/db"
	"github.com/MarcoAS99/revolut-style-platform/pkg/metrics"
	"github.com/MarcoAS99/revolut-style-platform/pkg/mylogger"
	outboxRepository "github.com/MarcoAS99/revolut-style-platform/pkg/outbox/repository"
	"github.com/MarcoAS99/revolut-style-platform/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	tp, err := utils.InitTracer(ctx, "transaction-api", cfg.Env)
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

	mylogger.Info(ctx, logger, "Transaction API started!")

	transactionRepo := repository.NewTransactionRepository(pool, logger)
	outboxRepo := outboxRepository.NewOutboxRepository(pool, logger)
	transactionService := service.NewTransactionService(pool, transactionRepo, outboxRepo, logger)

	app := fiber.New()

	app.Use(otelfiber.Middleware())

	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Limiter.Max,
		Expiration: cfg.Limiter.Expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Try again later.",
			})
		},
	}))

	handlers := &transport.Handlers{
		Transaction: handler.NewTransactionHandler(transactionService, logger),
		Account:     handler.NewAccountHandler(transactionService, logger),
	}

	transport.RegisterRoutes(app, handlers)

	reg := metrics.NewRegistry()
	go func() {
		http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

		log.Println("Metrics listening on: " + cfg.Metrics.Port)
		if err := http.ListenAndServe(cfg.Metrics.Port, nil); err != nil {
			log.Printf("Error on metrics server: %v\n", err)
		}
	}()

	go func() {
		log.Println("HTTP Service listening on: " + cfg.HTTP.Port)
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("Error listening on HTTP port %v: %v\n", cfg.HTTP.Port, err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP app: %v\n", err)
	} else {
		log.Println("HTTP App stopped gracefully")
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down telemetry: %v\n", err)
	} else {
		log.Println("Telemetry stopped correctly")
	}

	pool.Close()
	log.Println("Pool down correctly")
}
