// Command refbase runs the hybrid search API server.
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

	"github.com/refbase-io/refbase/internal/config"
	dbRedis "github.com/refbase-io/refbase/internal/db/redis"
	"github.com/refbase-io/refbase/internal/db/sqlite"
	logpkg "github.com/refbase-io/refbase/internal/logger"
	"github.com/refbase-io/refbase/internal/metrics"
	"github.com/refbase-io/refbase/internal/repository/lexical"
	"github.com/refbase-io/refbase/internal/repository/vector"
	"github.com/refbase-io/refbase/internal/scheduler"
	chiTransport "github.com/refbase-io/refbase/internal/transport/chi"
	openaiTransport "github.com/refbase-io/refbase/internal/transport/openai"
	searchuc "github.com/refbase-io/refbase/internal/usecase/search"
	syncuc "github.com/refbase-io/refbase/internal/usecase/sync"
	"github.com/refbase-io/refbase/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting refbase API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("redis_addrs", cfg.Database.Addrs),
		zap.String("store_path", cfg.Store.Path),
	)

	// Document catalog and FTS index live in SQLite.
	docs, err := sqlite.NewStore(cfg.Store.Path)
	if err != nil {
		logger.Fatal("Failed to open document store", zap.Error(err))
	}
	defer docs.Close()

	// Vector index lives in Redis.
	vecStore, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create vector store", zap.Error(err))
	}
	defer vecStore.Close()

	ctx := context.Background()
	if err := vecStore.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Vector store not ready", zap.Error(err))
	}
	logger.Info("Connected to vector store")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSyncMetrics()

	embedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	keyPrefix := cfg.Database.KeyPrefix + "vec:"
	indexName := cfg.Database.KeyPrefix + "vec:idx"

	if err := vecStore.EnsureIndex(ctx, vector.IndexDefinition(
		indexName, keyPrefix,
		cfg.Embedding.Dimensions,
		cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct,
	)); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}

	// Create repositories (domain-native, no adapters)
	vecRepo := vector.New(vecStore, vector.Config{
		KeyPrefix:         keyPrefix,
		IndexName:         indexName,
		MaxTopK:           cfg.Index.MaxTopK,
		MetadataByteLimit: cfg.Index.MetadataByteLimit,
	})
	lexRepo := lexical.New(docs)

	// Create use case services
	searchSvc := searchuc.New(lexRepo, vecRepo, embedder, searchuc.Config{
		DefaultLimit: cfg.Search.DefaultLimit,
		DefaultTopK:  cfg.Search.DefaultTopK,
	}, logger)
	syncSvc := syncuc.New(docs, vecRepo, embedder, syncuc.Config{
		BatchSize:        cfg.Sync.BatchSize,
		MaxReindexPasses: cfg.Sync.MaxReindexPasses,
	}, logger)

	// Background embedding of pending documents
	sched := scheduler.New(syncSvc,
		time.Duration(cfg.Sync.IntervalSec)*time.Second,
		cfg.Sync.BatchSize, logger)
	sched.Start()
	defer sched.Stop()

	server := chiTransport.NewServer(searchSvc, syncSvc, docs, logger, docs, vecStore)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
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
