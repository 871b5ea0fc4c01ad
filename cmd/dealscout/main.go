package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dealscout/internal/cache"
	"github.com/kailas-cloud/dealscout/internal/config"
	dbRedis "github.com/kailas-cloud/dealscout/internal/db/redis"
	"github.com/kailas-cloud/dealscout/internal/domain"
	logpkg "github.com/kailas-cloud/dealscout/internal/logger"
	"github.com/kailas-cloud/dealscout/internal/metrics"
	"github.com/kailas-cloud/dealscout/internal/repository/embcache"
	"github.com/kailas-cloud/dealscout/internal/scrape"
	chiTransport "github.com/kailas-cloud/dealscout/internal/transport/chi"
	"github.com/kailas-cloud/dealscout/internal/transport/llm"
	openaiEmb "github.com/kailas-cloud/dealscout/internal/transport/openai"
	"github.com/kailas-cloud/dealscout/internal/transport/places"
	harvestuc "github.com/kailas-cloud/dealscout/internal/usecase/harvest"
	healthuc "github.com/kailas-cloud/dealscout/internal/usecase/health"
	matchuc "github.com/kailas-cloud/dealscout/internal/usecase/match"
	pipelineuc "github.com/kailas-cloud/dealscout/internal/usecase/pipeline"
	recommenduc "github.com/kailas-cloud/dealscout/internal/usecase/recommend"
	storesuc "github.com/kailas-cloud/dealscout/internal/usecase/stores"
	"github.com/kailas-cloud/dealscout/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting dealscout API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Bool("sandbox", cfg.Sandbox),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	jsonCache := cache.New(store)

	// Embedder chain: OpenAI -> cached. The cache also serves the query
	// embedder so repeated searches do not burn tokens.
	baseEmbedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	queryEmbedder := embcache.New(baseEmbedder, store, metrics.EmbeddingCacheTotal, logger)

	llmClient := llm.NewClient(&llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		MaxRetries:  cfg.LLM.MaxRetries,
		Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
	})

	provider := buildPlacesProvider(cfg, logger)

	// Scraping strategies share one per-domain rate limiter
	limiter := scrape.NewDomainLimiter(cfg.Scraper.RequestsPerDomain, cfg.Scraper.Burst)
	static := scrape.NewStaticStrategy(limiter, cfg.Scraper.UserAgent, 30*time.Second)
	browser := scrape.NewBrowserStrategy(limiter, cfg.Scraper.UserAgent, cfg.Scraper.Headless,
		time.Duration(cfg.Scraper.NavigateTimeoutSec)*time.Second)
	defer browser.Close()
	router := scrape.NewRouter(static, browser)

	storesSvc := storesuc.New(provider, jsonCache, storesuc.Config{
		RadiusKm:  cfg.Places.RadiusKm,
		MaxStores: cfg.Places.MaxStores,
		MinRating: cfg.Places.MinRating,
		CacheTTL:  time.Duration(cfg.Cache.StoresTTLSec) * time.Second,
	})
	harvestSvc := harvestuc.New(router, jsonCache, harvestuc.Config{
		MaxConcurrent: cfg.Scraper.MaxConcurrent,
		CacheTTL:      time.Duration(cfg.Cache.ProductsTTLSec) * time.Second,
	})
	matchSvc := matchuc.New(queryEmbedder, baseEmbedder, store, store, matchuc.Config{
		IndexName:     cfg.Search.IndexName,
		KeyPrefix:     cfg.Search.KeyPrefix,
		Dimensions:    cfg.Embedding.Dimensions,
		TopK:          cfg.Search.TopK,
		MinSimilarity: cfg.Search.MinSimilarity,
		BatchSize:     cfg.Embedding.BatchSize,
		ListingTTL:    time.Duration(cfg.Cache.ProductsTTLSec) * time.Second,
	})
	recommendSvc := recommenduc.New(llmClient)

	if err := matchSvc.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}
	logger.Info("Vector index ready", zap.String("index", cfg.Search.IndexName))

	orchestrator := pipelineuc.New(storesSvc, harvestSvc, matchSvc, recommendSvc, jsonCache, pipelineuc.Config{
		ResultTTL: time.Duration(cfg.Cache.SearchesTTLSec) * time.Second,
		Sandbox:   cfg.Sandbox,
	})

	healthSvc := healthuc.New(store).WithProvider("embedding", baseEmbedder)

	server := chiTransport.NewServer(orchestrator, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.HTTP.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildPlacesProvider returns the real Places client, or an empty provider
// when sandbox mode runs without an API key.
func buildPlacesProvider(cfg config.Config, logger *zap.Logger) storesuc.Provider {
	if cfg.Sandbox && cfg.Places.APIKey == "" {
		logger.Warn("Sandbox mode without a places API key, store discovery disabled")
		return noopProvider{}
	}

	client, err := places.NewClient(&places.Config{
		APIKey:         cfg.Places.APIKey,
		RequestsPerSec: cfg.Places.RequestsPerSec,
		PageDelay:      time.Duration(cfg.Places.PageDelaySec) * time.Second,
		Timeout:        time.Duration(cfg.Places.TimeoutSec) * time.Second,
		MaxResults:     cfg.Places.MaxStores,
	})
	if err != nil {
		logger.Fatal("Failed to create places client", zap.Error(err))
	}
	return client
}

// noopProvider discovers nothing; the pipeline's sandbox fixtures take over.
type noopProvider struct{}

func (noopProvider) Nearby(_ context.Context, _ domain.Location, _ float64, _ string) ([]domain.Store, error) {
	return nil, nil
}

func (noopProvider) Details(_ context.Context, store domain.Store) domain.Store {
	return store
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
