package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/config"
	"github.com/kailas-cloud/simdex/internal/db"
	"github.com/kailas-cloud/simdex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/simdex/internal/db/redis"
	"github.com/kailas-cloud/simdex/internal/domain/descriptor"
	logpkg "github.com/kailas-cloud/simdex/internal/logger"
	"github.com/kailas-cloud/simdex/internal/metrics"
	corpusrepo "github.com/kailas-cloud/simdex/internal/repository/corpus"
	"github.com/kailas-cloud/simdex/internal/repository/featcache"
	weightsrepo "github.com/kailas-cloud/simdex/internal/repository/weights"
	chiTransport "github.com/kailas-cloud/simdex/internal/transport/chi"
	"github.com/kailas-cloud/simdex/internal/transport/extractor"
	"github.com/kailas-cloud/simdex/internal/usecase/adaptation"
	corpusuc "github.com/kailas-cloud/simdex/internal/usecase/corpus"
	extractuc "github.com/kailas-cloud/simdex/internal/usecase/extract"
	healthuc "github.com/kailas-cloud/simdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/simdex/internal/usecase/search"
	weightsuc "github.com/kailas-cloud/simdex/internal/usecase/weights"
	"github.com/kailas-cloud/simdex/internal/version"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

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
	zap.ReplaceGlobals(logger)

	logger.Info("Starting simdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := openStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	ex := extractor.NewClient(&extractor.Config{
		ImageURL: cfg.Extractor.ImageURL,
		MeshURL:  cfg.Extractor.MeshURL,
		Timeout:  time.Duration(cfg.Extractor.TimeoutSec) * time.Second,
		Retries:  cfg.Extractor.Retries,
		Logger:   logger,
	})

	corpusRepo := corpusrepo.New(store, cfg.Storage.KeyPrefix)
	weightsRepo := weightsrepo.New(store, cfg.Storage.KeyPrefix)

	params := adaptation.Params{
		Alpha: *cfg.Adaptation.Alpha,
		Beta:  *cfg.Adaptation.Beta,
		Gamma: *cfg.Adaptation.Gamma,
	}
	policy := adaptation.Policy(cfg.Adaptation.Policy)

	var features extractuc.Extractor = ex
	if cfg.Extractor.Cache {
		features = featcache.New(ex, store, cfg.Storage.KeyPrefix, metrics.FeatureCacheTotal, logger)
		logger.Info("Feature cache enabled")
	}

	extractSvc := extractuc.New(features).WithMaxBatchSize(cfg.Search.MaxBatchSize)
	corpusSvc := corpusuc.New(corpusRepo, extractSvc)
	weightsSvc := weightsuc.New(weightsRepo)
	searchSvc := searchuc.New(extractSvc, corpusRepo, weightsRepo, params, policy).
		WithMaxCASAttempts(cfg.Search.MaxCASAttempts)
	healthSvc := healthuc.New(store, ex)

	logger.Info("Adaptation configured",
		zap.Float64("alpha", params.Alpha),
		zap.Float64("beta", params.Beta),
		zap.Float64("gamma", params.Gamma),
		zap.String("policy", string(policy)),
	)
	primeWeights(ctx, weightsSvc, logger)

	server := chiTransport.NewServer(searchSvc, extractSvc, corpusSvc, weightsSvc, healthSvc,
		chiTransport.Options{
			DefaultTopN:         cfg.Search.DefaultTopN,
			MaxTopN:             cfg.Search.MaxTopN,
			MaxUploadBytes:      int64(cfg.HTTP.MaxUploadMB) << 20,
			MaxBatchUploadBytes: int64(cfg.HTTP.MaxBatchMB) << 20,
			APIKeys:             cfg.Auth.APIKeys,
			SearchRPS:           cfg.HTTP.SearchRPS,
			SearchBurst:         cfg.HTTP.SearchBurst,
			Version:             version.String(),
		}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

func openStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Addrs,
			Username:  cfg.Username,
			Password:  cfg.Password,
			DB:        cfg.DB,
			BatchSize: cfg.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
		}
		return s, nil
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// primeWeights makes sure every kind has a stored weight record and exports
// the current values. Failures only delay this until the first search.
func primeWeights(ctx context.Context, svc *weightsuc.Service, logger *zap.Logger) {
	for _, kind := range []descriptor.Kind{descriptor.KindImage, descriptor.KindMesh} {
		st, err := svc.Get(ctx, kind)
		if err != nil {
			logger.Warn("Could not load weights", zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		metrics.ObserveWeights(st)
		logger.Info("Weights loaded", zap.String("kind", string(kind)), zap.Int64("revision", st.Revision()))
	}
}
