package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cookbookindex/internal/api"
	"cookbookindex/internal/config"
	"cookbookindex/internal/extract"
	"cookbookindex/internal/logging"
	"cookbookindex/internal/metrics"
	"cookbookindex/internal/platform/anthropic"
	"cookbookindex/internal/platform/gemini"
	"cookbookindex/internal/platform/localllm"
	"cookbookindex/internal/platform/openai"
	"cookbookindex/internal/recipe"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.json"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Errorf("failed to load config: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Errorf("invalid config: %w", err))
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		panic(fmt.Errorf("error creating logger: %w", err))
	}
	defer func() { _ = logger.Sync() }()

	provider, closeProvider, err := newProvider(ctx, cfg.LLM)
	if err != nil {
		panic(fmt.Errorf("error creating %s client: %w", cfg.LLM.Provider, err))
	}
	defer closeProvider()

	store, closeStore, err := newStore(ctx, cfg.DatabaseURL)
	if err != nil {
		panic(fmt.Errorf("error creating recipe store: %w", err))
	}
	defer closeStore()

	handler := api.NewHandler(extract.NewGateway(provider, logger.Named("extract")), store, logger)
	handler.ExtractTimeout = time.Duration(cfg.Server.ExtractTimeout)
	handler.Metrics = metrics.New()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(handler, logger, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("server starting",
		zap.String("addr", cfg.Server.Addr),
		zap.String("llm_provider", cfg.LLM.Provider),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

// newRouter builds the gin engine with logging, recovery and CORS in front of the handler.
func newRouter(handler *api.Handler, logger *zap.Logger, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(api.RequestLogger(logger), api.Recovery(logger), handler.Metrics.Middleware())

	// Configure CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handler.Register(r)
	if handler.Metrics != nil {
		r.GET("/metrics", gin.WrapH(handler.Metrics.Handler()))
	}
	return r
}

// newProvider picks the model backend named by cfg.Provider.
func newProvider(ctx context.Context, cfg config.LLMConfig) (extract.Provider, func(), error) {
	noop := func() {}
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewClient(anthropic.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: int64(cfg.MaxTokens),
			BaseURL:   cfg.BaseURL,
		}), noop, nil
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, cfg.APIKey, cfg.Model, int32(cfg.MaxTokens))
		if err != nil {
			return nil, noop, err
		}
		return client, func() { _ = client.Close() }, nil
	case config.ProviderOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: int64(cfg.MaxTokens),
			BaseURL:   cfg.BaseURL,
		}), noop, nil
	case config.ProviderLocal:
		return localllm.NewClient(cfg.BaseURL, cfg.Model, cfg.MaxTokens, nil), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

// newStore opens Postgres, or an in-process store for a memory:// URL.
func newStore(ctx context.Context, databaseURL string) (recipe.Store, func(), error) {
	if strings.HasPrefix(databaseURL, "memory://") {
		return recipe.NewMemoryStore(), func() {}, nil
	}
	store, err := recipe.NewPostgresStore(ctx, databaseURL)
	if err != nil {
		return nil, func() {}, err
	}
	return store, func() { _ = store.Close() }, nil
}
