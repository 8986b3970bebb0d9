package main

// @title RivalScope API
// @version 1.0
// @description Competitive intelligence for online sellers. Research competitors, get AI-written reports.
// @termsOfService https://rivalscope.app/terms

// @contact.name API Support
// @contact.url https://rivalscope.app/support
// @contact.email support@rivalscope.app

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/jordanlanch/rivalscope/config"
	"github.com/jordanlanch/rivalscope/pkg/account"
	"github.com/jordanlanch/rivalscope/pkg/ai/agents"
	"github.com/jordanlanch/rivalscope/pkg/ai/llm"
	"github.com/jordanlanch/rivalscope/pkg/api/handlers"
	"github.com/jordanlanch/rivalscope/pkg/auth"
	"github.com/jordanlanch/rivalscope/pkg/billing"
	"github.com/jordanlanch/rivalscope/pkg/cache"
	"github.com/jordanlanch/rivalscope/pkg/email"
	"github.com/jordanlanch/rivalscope/pkg/jobs"
	"github.com/jordanlanch/rivalscope/pkg/logger"
	"github.com/jordanlanch/rivalscope/pkg/metrics"
	custommiddleware "github.com/jordanlanch/rivalscope/pkg/middleware"
	"github.com/jordanlanch/rivalscope/pkg/quota"
	"github.com/jordanlanch/rivalscope/pkg/report"
	"github.com/jordanlanch/rivalscope/pkg/research"
	"github.com/jordanlanch/rivalscope/pkg/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const (
	memoryQueueSize = 256
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "rivalscope: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Get()
	log.Info("Configuration loaded", zap.String("environment", cfg.APIEnvironment))

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.APIEnvironment,
			TracesSampleRate: 0.2,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Warn("Failed to initialize Sentry", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Background goroutines stop when this context ends
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.Open(ctx, cfg.StorageDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()
	log.Info("Storage ready", zap.String("driver", cfg.StorageDriver))

	var redisClient *cache.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewClient(cfg.RedisURL, log)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisClient.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	var queue jobs.Queue
	switch cfg.QueueDriver {
	case "redis":
		queue = jobs.NewRedisQueue(redisClient)
	default:
		queue = jobs.NewMemoryQueue(memoryQueueSize)
	}

	emailService := email.NewService(cfg.EmailFrom, cfg.EmailFromName, cfg.FrontendURL, cfg.SendGridAPIKey, log)

	analyst := agents.NewCompetitorAnalyst(newLLMClient(cfg, log), cfg.AITimeout, log).
		WithObserver(m.RecordLLMRequest)

	pipeline := jobs.NewPipeline(store, analyst, m, log).WithNotifier(emailService)
	if redisClient != nil {
		pipeline = pipeline.WithClaims(redisClient)
	}

	workers := jobs.NewWorkerPool(queue, pipeline, cfg.WorkerCount, cfg.AITimeout*2, m, log)
	workers.Start(ctx)

	sweeper := jobs.NewSweeper(store, queue, cfg.JobStaleAfter, log).WithInFlight(pipeline)
	if err := sweeper.Schedule(cfg.SweepSchedule); err != nil {
		return fmt.Errorf("invalid SWEEP_SCHEDULE: %w", err)
	}
	sweeper.Start()

	checker := quota.NewTierPolicy(store, cfg.EnforceTierQuotas)
	accounts := account.NewService(store, m, log).WithNotifier(emailService)
	researches := research.NewService(store, checker, queue, m, log)
	reports := report.NewService(store, m, log)

	var gateway billing.Gateway
	if cfg.BillingEnabled() {
		gateway = billing.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		log.Info("Billing disabled (no Stripe key configured)")
	}
	billingService := billing.NewService(store, gateway, billing.Config{
		PriceIntermediate: cfg.StripePriceIntermediate,
		PriceAdvanced:     cfg.StripePriceAdvanced,
		BaseURL:           cfg.FrontendURL,
	}, m, log)
	billingService.SetEmailSender(billing.NewEmailServiceAdapter(emailService))

	var blacklist *auth.TokenBlacklist
	if redisClient != nil {
		blacklist = auth.NewTokenBlacklist(redisClient)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogError:     true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.RequestID != "" {
				fields = append(fields, zap.String("request_id", v.RequestID))
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}
	e.Use(m.Middleware())
	e.Use(middleware.CORSWithConfig(custommiddleware.CORSConfig(cfg.CORSAllowedOrigins)))
	e.Use(middleware.Secure())
	e.Use(custommiddleware.SecurityHeaders(custommiddleware.DefaultSecurityHeadersConfig()))
	e.Use(custommiddleware.NewRateLimiter(ctx, cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst).RateLimitMiddleware())

	checks := map[string]handlers.Pinger{"storage": store}
	if redisClient != nil {
		checks["redis"] = redisClient
	}

	registerRoutes(ctx, e, routeDeps{
		cfg:        cfg,
		registry:   registry,
		checks:     checks,
		store:      store,
		blacklist:  blacklist,
		accounts:   accounts,
		checker:    checker,
		researches: researches,
		reports:    reports,
		billing:    billingService,
		logger:     log,
	})

	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("address", address))
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		log.Error("Server failed", zap.Error(err))
	}

	log.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	sweeper.Stop()
	cancel()
	workers.Stop()
	if err := queue.Close(); err != nil {
		log.Warn("Failed to close job queue", zap.Error(err))
	}

	log.Info("Server gracefully stopped")
	return nil
}

func newLLMClient(cfg *config.Config, log *zap.Logger) llm.LLMClient {
	if cfg.LLMProvider == "ollama" {
		return llm.NewOllamaClient(llm.OllamaConfig{
			BaseURL: cfg.OllamaBaseURL,
			Model:   cfg.OllamaModel,
		}, log)
	}
	return llm.NewOpenAIClient(llm.Config{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.OpenAIModel,
	}, log)
}
