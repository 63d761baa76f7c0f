// Package main is the entry point for the mediaplan-api server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/aureon-one/mediaplan-api/internal/config"
	"github.com/aureon-one/mediaplan-api/internal/database"
	"github.com/aureon-one/mediaplan-api/internal/http/handlers"
	"github.com/aureon-one/mediaplan-api/internal/http/mw"
	"github.com/aureon-one/mediaplan-api/internal/logging"
	"github.com/aureon-one/mediaplan-api/internal/platform"
	"github.com/aureon-one/mediaplan-api/internal/repository"
	"github.com/aureon-one/mediaplan-api/internal/service"
	"github.com/aureon-one/mediaplan-api/internal/version"
)

func main() {
	// Initialize logger with TTY detection, source paths, and format control
	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting mediaplan-api",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.MigrateWithLogger(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(db)
	registry := platform.NewRegistry()

	services, err := service.NewServices(cfg, repos, registry, logger)
	if err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()

	// Base middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestIDToContext)
	router.Use(middleware.Recoverer)

	// Request timeout middleware; LLM-backed analysis gets an extended window
	router.Use(mw.Timeout(mw.TimeoutConfig{
		Default:          60 * time.Second,
		Extended:         3 * time.Minute,
		ExtendedPatterns: []string{"/geo/analyses"},
	}))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Request size limit (1MB)
	router.Use(middleware.RequestSize(1 * 1024 * 1024))

	// Global rate limit by IP
	router.Use(httprate.LimitByIP(100, time.Minute))

	// Global concurrency throttle
	router.Use(middleware.Throttle(100))

	humaConfig := huma.DefaultConfig("MediaPlan API", v.Version)
	humaConfig.Info.Description = "Credit-metered marketing API: ad platform connectors and AI search visibility analysis."
	humaConfig.Servers = []*huma.Server{
		{URL: cfg.BaseURL, Description: "API Server"},
	}
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearerAuth": {
			Type:        "http",
			Scheme:      "bearer",
			Description: "JWT bearer authentication.",
		},
	}

	// Public API with OpenAPI docs
	api := humachi.New(router, humaConfig)

	huma.Get(api, "/api/v1/health", handlers.HealthCheck)

	platformsHandler := handlers.NewPlatformsHandler(registry)
	huma.Get(api, "/api/v1/platforms", platformsHandler.ListPlatforms)
	huma.Get(api, "/api/v1/platforms/{platform}/capabilities", platformsHandler.GetPlatformCapabilities)

	// Stripe webhook (signature verified by handler, not user auth)
	if cfg.StripeWebhookSecret != "" {
		stripeWebhook := handlers.NewStripeWebhookHandler(cfg, services.Ledger, logger)
		router.Post("/api/v1/webhooks/stripe", stripeWebhook.HandleWebhook)
		logger.Info("stripe webhook endpoint enabled")
	}

	// Protected routes share the main docs but register on an auth-gated group
	protectedConfig := huma.DefaultConfig("MediaPlan API", v.Version)
	protectedConfig.Info.Description = humaConfig.Info.Description
	protectedConfig.Servers = humaConfig.Servers
	protectedConfig.DocsPath = ""
	protectedConfig.OpenAPIPath = ""
	protectedConfig.SchemasPath = ""

	router.Group(func(r chi.Router) {
		r.Use(mw.Auth(cfg.JWTSecret))

		protectedAPI := humachi.New(r, protectedConfig)

		creditsHandler := handlers.NewCreditsHandler(services.Ledger)
		huma.Get(protectedAPI, "/api/v1/credits", creditsHandler.GetBalance)
		huma.Get(protectedAPI, "/api/v1/credits/check", creditsHandler.CheckCredits)
		huma.Post(protectedAPI, "/api/v1/credits/purchases", creditsHandler.CreatePurchase)
		huma.Get(protectedAPI, "/api/v1/credits/purchases", creditsHandler.ListPurchases)

		usageHandler := handlers.NewUsageHandler(services.Ledger)
		huma.Get(protectedAPI, "/api/v1/usage", usageHandler.GetUsage)
		huma.Get(protectedAPI, "/api/v1/usage/summary", usageHandler.GetUsageSummary)

		geoHandler := handlers.NewGeoHandler(services.Geo)
		huma.Post(protectedAPI, "/api/v1/geo/analyses", geoHandler.Analyze)
		huma.Get(protectedAPI, "/api/v1/geo/analyses", geoHandler.ListAnalyses)
		huma.Get(protectedAPI, "/api/v1/geo/analyses/{id}", geoHandler.GetAnalysis)

		connectorsHandler := handlers.NewConnectorsHandler(services.Connector)
		huma.Post(protectedAPI, "/api/v1/connectors", connectorsHandler.ConnectPlatform)
		huma.Get(protectedAPI, "/api/v1/connectors", connectorsHandler.ListConnections)
		huma.Delete(protectedAPI, "/api/v1/connectors/{id}", connectorsHandler.Disconnect)
		huma.Get(protectedAPI, "/api/v1/connectors/{platform}/campaigns", connectorsHandler.FetchCampaigns)
		huma.Get(protectedAPI, "/api/v1/connectors/{platform}/campaigns/{campaignId}/metrics", connectorsHandler.FetchMetrics)
		huma.Get(protectedAPI, "/api/v1/connectors/{platform}/campaigns/{campaignId}/adsets", connectorsHandler.FetchAdSets)
		huma.Get(protectedAPI, "/api/v1/connectors/{platform}/adsets/{adSetId}/ads", connectorsHandler.FetchAds)
		huma.Patch(protectedAPI, "/api/v1/connectors/{platform}/campaigns/{campaignId}/budget", connectorsHandler.UpdateBudget)
		huma.Patch(protectedAPI, "/api/v1/connectors/{platform}/campaigns/{campaignId}/status", connectorsHandler.UpdateStatus)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan

		logger.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "port", cfg.Port, "base_url", cfg.BaseURL)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// requestIDToContext copies chi's request ID into the logging context so
// usage rows can carry it.
func requestIDToContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			r = r.WithContext(logging.WithRequestID(r.Context(), reqID))
		}
		next.ServeHTTP(w, r)
	})
}
