// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	commonaws "comps-workers/internal/common/aws"
	"comps-workers/internal/common/camunda"
	"comps-workers/internal/common/config"
	"comps-workers/internal/common/database"
	"comps-workers/internal/common/logger"
	"comps-workers/internal/common/observability"
	"comps-workers/internal/common/validation"
	"comps-workers/internal/comps"
	"comps-workers/internal/comps/archive"
	"comps-workers/internal/comps/history"
	"comps-workers/internal/comps/notify"
	"comps-workers/internal/marketplace"
	"comps-workers/internal/server"
	"comps-workers/pkg/registry"

	aps "comps-workers/internal/workers/pricing/aggregate-price-stats"
	ssl "comps-workers/internal/workers/pricing/search-sold-listings"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting comps worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx := context.Background()

	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}
	if err := reg.Validate(); err != nil {
		zapLog.Fatal("activity registry invalid", zap.Error(err))
	}
	validator, err := validation.NewValidator(reg)
	if err != nil {
		zapLog.Fatal("input schema compile failed", zap.Error(err))
	}

	var (
		checkers []server.Checker
		sinks    = []comps.Sink{obs}
		deps     = server.Deps{Validator: validator, Logger: log}
	)

	// --- Marketplace client, optionally behind the Redis listing cache ---
	var searcher marketplace.Searcher = marketplace.NewClient(&marketplace.Config{
		BaseURL:        cfg.Marketplace.BaseURL,
		AppID:          cfg.Marketplace.AppID,
		GlobalID:       cfg.Marketplace.GlobalID,
		ServiceVersion: cfg.Marketplace.ServiceVersion,
		Currency:       cfg.Marketplace.Currency,
		Timeout:        config.GetDuration(cfg.Marketplace.Timeout),
	}, log)

	if cfg.Database.Redis.Enabled {
		redis := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return redis.Ping(ctx)
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		zapLog.Info("Redis connected successfully")

		ttl := time.Duration(cfg.Database.Redis.CacheTTL) * time.Second
		searcher = marketplace.NewCachedClient(searcher, redis.Client, ttl, cfg.Database.Redis.Prefix, log)
		checkers = append(checkers, redis)
	}

	// --- Search history in PostgreSQL ---
	if cfg.Database.Postgres.Enabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, log, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")

		repo := history.NewRepository(pg.DB)
		if err := repo.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("history schema setup failed", zap.Error(err))
		}
		sinks = append(sinks, repo)
		deps.History = repo
		checkers = append(checkers, pg)
	}

	// --- Sold-listing archive in Elasticsearch ---
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")

		indexer, err := archive.NewIndexer(esClient.Client, cfg.Database.Elasticsearch.Index)
		if err != nil {
			zapLog.Fatal("archive indexer setup failed", zap.Error(err))
		}
		sinks = append(sinks, indexer)
		deps.Archive = indexer
		checkers = append(checkers, esClient)
	}

	// --- Completion notifications on SNS ---
	if cfg.Notifications.SNS.Enabled {
		snsClient, err := commonaws.NewSNSClient(ctx, cfg.Notifications.SNS.Region, cfg.Notifications.SNS.TopicARN)
		if err != nil {
			zapLog.Fatal("sns client setup failed", zap.Error(err))
		}
		sinks = append(sinks, notify.NewSink(snsClient))
		zapLog.Info("SNS notifications enabled", zap.String("topicArn", cfg.Notifications.SNS.TopicARN))
	}

	runner := comps.NewRunner(searcher, comps.NewScorer(nil), comps.RunnerConfigFrom(cfg.Search), log)
	service := comps.NewService(runner, cfg.Marketplace.MaxLimit, log, sinks...).
		WithDefaultLimit(cfg.Marketplace.DefaultLimit)
	deps.Search = service

	// --- Zeebe job workers ---
	var (
		zeebe   *camunda.Client
		workers *camunda.Workers
	)
	if cfg.Camunda.Enabled {
		zeebe, err = camunda.Connect(ctx, &camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		}, log)
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")
		checkers = append(checkers, zeebe)

		workers = camunda.NewWorkers(zeebe.GetClient(), log).WithRecorder(obs)

		searchCfg := config.GetWorkerConfig(cfg, ssl.TaskType)
		workers.Start(ssl.TaskType, searchCfg,
			ssl.NewHandler(ssl.ConfigFrom(searchCfg), service, validator, log))

		aggregateCfg := config.GetWorkerConfig(cfg, aps.TaskType)
		workers.Start(aps.TaskType, aggregateCfg,
			aps.NewHandler(aps.ConfigFrom(aggregateCfg), validator, log))

		zapLog.Info("Workers registered", zap.Strings("taskTypes", workers.Running()))
	}

	// --- HTTP API, health and metrics ---
	deps.Checkers = checkers
	srv := server.New(cfg.Server.Address, deps)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if workers != nil {
		workers.Close()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Worker manager stopped gracefully")
}
