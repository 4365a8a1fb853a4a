package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/openmeet-team/surveystudio/internal/api"
	"github.com/openmeet-team/surveystudio/internal/auth"
	"github.com/openmeet-team/surveystudio/internal/backend"
	"github.com/openmeet-team/surveystudio/internal/config"
	"github.com/openmeet-team/surveystudio/internal/generator"
	"github.com/openmeet-team/surveystudio/internal/jobs"
	"github.com/openmeet-team/surveystudio/internal/live"
	"github.com/openmeet-team/surveystudio/internal/telemetry"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer shutdownTracer(context.Background())

	b, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer b.Close()
	log.Printf("Connected to %s store", cfg.StoreBackend)

	var verifier *auth.Verifier
	if cfg.AuthPublicJWK != "" {
		verifier, err = auth.NewVerifier(cfg.AuthPublicJWK, cfg.AuthIssuer)
		if err != nil {
			log.Fatalf("Failed to load AUTH_PUBLIC_JWK: %v", err)
		}
	} else {
		log.Println("AUTH_PUBLIC_JWK not set; all requests are anonymous")
	}

	handlers := api.NewHandlers(b.Store, live.NewHub())
	checks := b.Checks

	// Generation quotas and the close scheduler are shared through Redis when
	// it is configured, otherwise quotas are kept per process.
	var limiter api.GenerationLimiter = generator.NewRateLimiter(generator.DefaultLimits())
	if cfg.RedisEnabled() {
		client := backend.NewRedisClient(cfg)
		defer client.Close()
		limiter = generator.NewRedisRateLimiter(client, generator.DefaultLimits())
		if _, ok := checks["redis"]; !ok {
			checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		}

		scheduler := jobs.NewAsynqScheduler(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer scheduler.Close()
		handlers.SetScheduler(scheduler)
	}

	if cfg.OpenAIAPIKey != "" {
		llm, err := openai.New(openai.WithToken(cfg.OpenAIAPIKey), openai.WithModel(cfg.OpenAIModel))
		if err != nil {
			log.Fatalf("Failed to create OpenAI client: %v", err)
		}
		gen := generator.New(llm, cfg.OpenAIModel, cfg.AIDailyBudget)
		handlers.SetGenerator(gen, limiter, generator.NewGenerationLogger(slog.Default()))
		log.Printf("AI generation enabled (model %s, daily budget $%.2f)", cfg.OpenAIModel, cfg.AIDailyBudget)
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(otelecho.Middleware(cfg.ServiceName))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	if cfg.AllowedOrigins != "" {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     strings.Split(cfg.AllowedOrigins, ","),
			AllowCredentials: true,
		}))
	}

	api.SetupRoutes(e, handlers, api.NewHealthHandlers(checks), verifier, api.NewRateLimiterConfig())

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Printf("Starting server on %s", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Fatal(err)
	}

	log.Println("Server shutdown complete")
}
