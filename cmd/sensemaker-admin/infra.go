package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/target/sensemaker/internal/bootstrap"
)

// withServices connects Postgres, Redis when enabled, and StatsD when enabled, builds the
// service container and releases everything once fn returns.
func withServices(cmdCtx *commandContext, fn func(ctx context.Context, svc *bootstrap.ServiceContainer) error) (err error) {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, cmdCtx.Config.Postgres, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close db: %w", closeErr))
		}
	}()

	redisClient := bootstrap.OptionalRedis(ctx, cmdCtx.Config.Redis, cmdCtx.Logger)
	if redisClient != nil {
		defer func() {
			if closeErr := redisClient.Close(); closeErr != nil {
				cmdCtx.Logger.Warn("redis close failed", "error", closeErr)
			}
		}()
	}

	deps := bootstrap.ServiceDeps{
		Config: &cmdCtx.Config,
		DB:     db,
		Redis:  redisClient,
		Logger: cmdCtx.Logger,
	}
	if sink := bootstrap.NewMetricsSink(cmdCtx.Config.Observability.Metrics, cmdCtx.Logger); sink != nil {
		deps.Metrics = sink
		defer func() {
			if closeErr := sink.Close(); closeErr != nil {
				cmdCtx.Logger.Warn("statsd close failed", "error", closeErr)
			}
		}()
	}

	svc, err := bootstrap.NewServices(deps)
	if err != nil {
		return err
	}
	return fn(ctx, svc)
}
