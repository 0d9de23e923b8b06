// cmd/agribot-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"agribot/internal/auth"
	"agribot/internal/catalog"
	"agribot/internal/common/config"
	"agribot/internal/common/database"
	commonhttp "agribot/internal/common/http"
	"agribot/internal/common/logger"
	"agribot/internal/common/observability"
	"agribot/internal/conversation"
	"agribot/internal/extract"
	"agribot/internal/pipeline"
	"agribot/internal/server"
	"agribot/internal/sources/genai"
	"agribot/internal/sources/pricestore"
	"agribot/internal/sources/websearch"
	"agribot/internal/translate"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting agribot server...")

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Domain wiring ---
	cat := catalog.Load(cfg.Catalog.Path, cfg.Catalog.Denylist, log)

	extractor := extract.New(cat, log)
	priceStore := pricestore.New(pg.DB, log)

	webClient := websearch.New(
		websearch.Config{
			BaseURL:    cfg.APIs.WebSearch.BaseURL,
			APIKey:     cfg.APIs.WebSearch.APIKey,
			MaxResults: cfg.APIs.WebSearch.MaxResults,
		},
		commonhttp.NewClient(config.GetDuration(cfg.APIs.WebSearch.Timeout)),
		log,
	)

	genClient := genai.New(genai.Config{
		BaseURL:     cfg.APIs.GenAI.BaseURL,
		Model:       cfg.APIs.GenAI.Model,
		MaxTokens:   cfg.APIs.GenAI.MaxTokens,
		Temperature: cfg.APIs.GenAI.Temperature,
		TopP:        cfg.APIs.GenAI.TopP,
		Timeout:     config.GetDuration(cfg.APIs.GenAI.Timeout),
	}, log)

	translator := translate.New(
		translate.Config{
			BaseURL:  cfg.APIs.Translate.BaseURL,
			CacheTTL: time.Duration(cfg.APIs.Translate.CacheTTL) * time.Second,
		},
		redis.Client,
		commonhttp.NewClient(config.GetDuration(cfg.APIs.Translate.Timeout)),
		log,
	)

	convStore := conversation.New(esClient, cfg.Database.Elasticsearch.ConversationIndex, log)
	authService := auth.New(pg.DB, log)

	queryPipeline := pipeline.New(pipeline.Options{
		Extractor:     extractor,
		Price:         priceStore,
		Web:           webClient,
		Generative:    genClient,
		Translator:    translator,
		Sink:          convStore,
		CanonicalLang: cfg.Languages.Canonical,
		Observability: obs,
		Logger:        log,
	})

	api := server.New(
		queryPipeline,
		authService,
		convStore,
		cfg.Languages.Canonical,
		cfg.Languages.Supported,
		log,
	)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Server stopped")
}
