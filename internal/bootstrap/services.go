package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/target/sensemaker/config"
	"github.com/target/sensemaker/internal/core"
	"github.com/target/sensemaker/internal/data"
	"github.com/target/sensemaker/internal/domain/artifact"
	"github.com/target/sensemaker/internal/observability/statsd"
	"github.com/target/sensemaker/internal/service"
)

// ServiceDeps are the connections the service container is built from.
type ServiceDeps struct {
	Config *config.AppConfig
	DB     *sql.DB
	// Redis is optional; without it contexts are compiled on every request.
	Redis   redis.UniversalClient
	Metrics statsd.Sink
	Logger  *slog.Logger
}

// ServiceContainer holds the wired services.
type ServiceContainer struct {
	Resolver  *artifact.Resolver
	Jobs      *service.JobService
	Context   *service.ContextService
	Input     *service.InputService
	Artifacts *service.ArtifactService
	Cache     core.CacheRepository
}

// NewServices wires repositories and services. Only construction happens here.
func NewServices(deps ServiceDeps) (*ServiceContainer, error) {
	if deps.Config == nil || deps.DB == nil {
		return nil, errors.New("config and database are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config.Sensemaker

	resolver := artifact.NewResolver(cfg.AppRoot, cfg.DataFolder)
	jobRepo := data.NewJobRepo(deps.DB, data.RepoConfig{Logger: logger})
	content := data.NewContentRepo(deps.DB, cfg.Locale)

	var cache core.CacheRepository
	if deps.Redis != nil {
		cache = data.NewRedisCacheRepo(deps.Redis, cfg.CachePrefix)
	}

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Repo:     jobRepo,
		Resolver: resolver,
		Logger:   logger,
		Metrics:  deps.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("job service: %w", err)
	}
	contexts, err := service.NewContextService(service.ContextServiceOptions{
		Source: content,
		Cache:  cache,
		TTL:    cfg.ContextCacheTTL,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("context service: %w", err)
	}
	input, err := service.NewInputService(service.InputServiceOptions{
		Context:  contexts,
		Resolver: resolver,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("input service: %w", err)
	}
	artifacts, err := service.NewArtifactService(service.ArtifactServiceOptions{Resolver: resolver})
	if err != nil {
		return nil, fmt.Errorf("artifact service: %w", err)
	}

	return &ServiceContainer{
		Resolver:  resolver,
		Jobs:      jobs,
		Context:   contexts,
		Input:     input,
		Artifacts: artifacts,
		Cache:     cache,
	}, nil
}

// NewMetricsSink returns a StatsD client when metrics are enabled, otherwise nil. Dial
// failures are logged and metrics stay off.
func NewMetricsSink(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) *statsd.Client {
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}

// OptionalRedis connects to Redis when enabled. Connection failures are logged and the
// cache is skipped.
//
//nolint:ireturn // mirrors ConnectRedis.
func OptionalRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) redis.UniversalClient {
	if !cfg.Enabled {
		return nil
	}
	client, err := ConnectRedis(ctx, cfg, logger)
	if err != nil {
		logger.WarnContext(ctx, "redis unavailable, context cache disabled", "error", err)
		return nil
	}
	return client
}
