package main

import (
	"context"

	"github.com/jordanlanch/rivalscope/config"
	"github.com/jordanlanch/rivalscope/pkg/account"
	"github.com/jordanlanch/rivalscope/pkg/api/handlers"
	custommw "github.com/jordanlanch/rivalscope/pkg/api/middleware"
	"github.com/jordanlanch/rivalscope/pkg/auth"
	"github.com/jordanlanch/rivalscope/pkg/billing"
	custommiddleware "github.com/jordanlanch/rivalscope/pkg/middleware"
	"github.com/jordanlanch/rivalscope/pkg/quota"
	"github.com/jordanlanch/rivalscope/pkg/report"
	"github.com/jordanlanch/rivalscope/pkg/research"
	"github.com/jordanlanch/rivalscope/pkg/storage"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type routeDeps struct {
	cfg        *config.Config
	registry   *prometheus.Registry
	checks     map[string]handlers.Pinger
	store      storage.Storage
	blacklist  *auth.TokenBlacklist
	accounts   *account.Service
	checker    quota.Checker
	researches *research.Service
	reports    *report.Service
	billing    *billing.Service
	logger     *zap.Logger
}

func registerRoutes(ctx context.Context, e *echo.Echo, d routeDeps) {
	authRateLimiter := custommiddleware.NewRateLimiter(ctx, 5, 2)
	registerRateLimiter := custommiddleware.NewRateLimiter(ctx, 3, 1)
	webhookRateLimiter := custommiddleware.NewRateLimiter(ctx, 100, 20)
	tierRateLimiter := custommiddleware.NewTierRateLimiter(ctx)

	healthHandler := handlers.NewHealthHandler(d.cfg.APIEnvironment, d.checks, d.logger)
	authHandler := handlers.NewAuthHandler(d.accounts, d.blacklist, d.cfg.JWTSecret, d.cfg.JWTExpirationHours, d.logger)
	userHandler := handlers.NewUserHandler(d.accounts, d.checker)
	researchHandler := handlers.NewResearchHandler(d.researches)
	reportHandler := handlers.NewReportHandler(d.reports)
	billingHandler := handlers.NewBillingHandler(d.billing, d.logger)

	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{})))

	api := e.Group("/api")

	// Public
	api.POST("/register", authHandler.Register, registerRateLimiter.RateLimitMiddleware())
	api.POST("/login", authHandler.Login, authRateLimiter.RateLimitMiddleware())
	api.GET("/pricing", billingHandler.Pricing)
	api.POST("/webhooks/stripe", billingHandler.Webhook, webhookRateLimiter.RateLimitMiddleware())

	// Authenticated
	protected := api.Group("")
	protected.Use(custommw.JWTMiddleware(d.cfg.JWTSecret, d.blacklist, d.store))
	protected.Use(tierRateLimiter.Middleware())

	protected.POST("/logout", authHandler.Logout)

	protected.GET("/user", userHandler.Me)
	protected.PATCH("/user", userHandler.UpdateProfile)
	protected.DELETE("/user", userHandler.Delete)
	protected.PATCH("/user/password", userHandler.ChangePassword)
	protected.GET("/user/stats", userHandler.Stats)
	protected.GET("/user/usage", userHandler.Usage)

	protected.GET("/researches", researchHandler.List)
	protected.POST("/researches", researchHandler.Create)
	protected.GET("/researches/:id", researchHandler.Get)
	protected.PUT("/researches/:id", researchHandler.Update)
	protected.DELETE("/researches/:id", researchHandler.Delete)
	protected.GET("/researches/:id/report", researchHandler.GetReport)

	protected.GET("/reports", reportHandler.List)
	protected.POST("/reports", reportHandler.Create)
	protected.GET("/reports/:id", reportHandler.Get)
	protected.GET("/reports/:id/export", reportHandler.Export)

	protected.POST("/create-subscription", billingHandler.CreateSubscription)
	protected.POST("/cancel-subscription", billingHandler.CancelSubscription)
}
