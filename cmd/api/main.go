// Package main is the entrypoint for the Toolvane API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/toolvane/toolvane/internal/analytics"
	"github.com/toolvane/toolvane/internal/automation"
	"github.com/toolvane/toolvane/internal/cache"
	"github.com/toolvane/toolvane/internal/config"
	"github.com/toolvane/toolvane/internal/discovery"
	"github.com/toolvane/toolvane/internal/handler"
	"github.com/toolvane/toolvane/internal/metrics"
	"github.com/toolvane/toolvane/internal/middleware"
	"github.com/toolvane/toolvane/internal/mockdata"
	"github.com/toolvane/toolvane/internal/model"
	"github.com/toolvane/toolvane/internal/scheduler"
	"github.com/toolvane/toolvane/internal/server"
	"github.com/toolvane/toolvane/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	// File-backed record store
	st, err := store.New(cfg.DataDir, logger)
	if err != nil {
		logger.Error("failed to open data directory", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	if err := st.Seed(ctx); err != nil {
		logger.Error("failed to seed store", "error", err)
		os.Exit(1)
	}
	logger.Info("store ready", "dir", cfg.DataDir)

	// Cache is optional: without REDIS_URL the server runs uncached and
	// unthrottled rather than refusing to start.
	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		defer cacheClient.Close()
		logger.Info("connected to Redis")
	} else {
		logger.Info("Redis not configured; cache and rate limiting disabled")
	}

	metricsRecorder := metrics.NewInMemory()
	agg := analytics.New(st, metricsRecorder, logger, cfg.DefaultCommissionRate)

	// One generator feeds every fabricated number (ratings, visitor and
	// pageview stats) so they stay clearly separated from real data.
	rater := mockdata.New()

	// Outbound collaborators
	httpClient := discovery.NewHTTPClient(cfg.UpstreamTimeout)
	crawler := discovery.NewCrawler(logger,
		discovery.NewProductHuntSource(httpClient, cfg.ProductHuntToken),
		discovery.NewGitHubSource(httpClient, cfg.GitHubToken),
	)
	posters := []discovery.Poster{
		discovery.NewLogPoster("twitter", logger),
		discovery.NewLogPoster("linkedin", logger),
	}

	engine := automation.New(automation.Config{
		Store:                 st,
		Aggregator:            agg,
		Rater:                 rater,
		Crawler:               crawler,
		Posters:               posters,
		Logger:                logger,
		RetentionDays:         cfg.RetentionDays,
		DefaultCommissionRate: cfg.DefaultCommissionRate,
	})

	sched := scheduler.New(logger, metricsRecorder)
	for _, job := range engine.Jobs() {
		if err := sched.Register(job); err != nil {
			logger.Error("failed to register job", "job", job.Name, "error", err)
			os.Exit(1)
		}
	}
	if cfg.AutomationEnabled {
		if err := sched.Start(ctx); err != nil {
			logger.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("automation disabled; jobs run only on explicit trigger")
	}

	settingsDefaults := model.Settings{
		SiteTitle:             "Toolvane",
		DefaultCommissionRate: cfg.DefaultCommissionRate,
		DataRetentionDays:     cfg.RetentionDays,
		AutomationEnabled:     cfg.AutomationEnabled,
	}

	// Handlers
	var cacheChecker handler.HealthChecker
	if cacheClient != nil {
		cacheChecker = cacheClient
	}
	healthHandler := handler.NewHealthHandler(cacheChecker)
	toolHandler := handler.NewToolHandler(st, cacheClient, metricsRecorder, logger)
	analyticsHandler := handler.NewAnalyticsHandler(agg, rater, logger)
	automationHandler := handler.NewAutomationHandler(st, sched, engine, settingsDefaults, logger)

	r := setupRouter(healthHandler, toolHandler, analyticsHandler, automationHandler, cacheClient, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)
	srv.OnShutdown("scheduler", sched.Shutdown)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	healthHandler *handler.HealthHandler,
	toolHandler *handler.ToolHandler,
	analyticsHandler *handler.AnalyticsHandler,
	automationHandler *handler.AutomationHandler,
	cacheClient *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	securityCfg := middleware.DefaultSecurityConfig()
	securityCfg.IsDevelopment = cfg.IsDevelopment()
	securityCfg.MaxRequestBodySize = cfg.MaxRequestBodySize
	r.Use(middleware.Security(securityCfg))

	if origins := cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg := middleware.DefaultCORSConfig()
		corsCfg.AllowedOrigins = origins
		r.Use(middleware.CORS(corsCfg))
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:  logger,
		Cache:   cacheClient,
		Enabled: cfg.RateLimitEnabled,
		RPS:     cfg.RateLimitRPS,
		Burst:   cfg.RateLimitBurst,
	}

	// Probes outside the rate limiter
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimitIP(rateLimitCfg))

		r.Get("/health", healthHandler.Health)

		r.Route("/tools", func(r chi.Router) {
			r.Get("/", toolHandler.List)
			r.Post("/", toolHandler.Create)
			r.Get("/trending", toolHandler.Trending)
			r.Get("/{id}", toolHandler.Get)
			r.Put("/{id}", toolHandler.Update)
			r.Delete("/{id}", toolHandler.Delete)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/", analyticsHandler.Summary)
			r.Post("/click", analyticsHandler.Click)
			r.Post("/conversion", analyticsHandler.Conversion)
			r.Get("/users", analyticsHandler.Users)
			r.Get("/pageviews", analyticsHandler.Pageviews)
		})
		r.Get("/commission", analyticsHandler.Commission)
		r.Get("/revenue", analyticsHandler.Revenue)
		r.Post("/recommendations", toolHandler.Recommend)
		r.Get("/user/{sessionId}/history", analyticsHandler.UserHistory)

		r.Route("/automation", func(r chi.Router) {
			r.Get("/rules", automationHandler.ListRules)
			r.Put("/rules/{id}", automationHandler.UpdateRule)
			r.Get("/jobs", automationHandler.JobStatus)
			r.Post("/execute/{taskName}", automationHandler.Execute)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", automationHandler.ListReports)
			r.Post("/generate", automationHandler.GenerateReport)
		})

		r.Get("/settings", automationHandler.GetSettings)
		r.Put("/settings", automationHandler.UpdateSettings)
	})

	// 404 and 405 handlers
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
