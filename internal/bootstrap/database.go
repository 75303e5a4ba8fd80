package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	// Register the pgx database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/target/sensemaker/config"
	"github.com/target/sensemaker/internal/migrate"
)

const pingTimeout = 5 * time.Second

// ConnectDB opens and pings the PostgreSQL pool.
func ConnectDB(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	maxOpen := max(cfg.MaxOpenConns, 1)
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(min(maxOpen, 5))
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	logger.InfoContext(ctx, "database connected",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Name,
	)
	return db, nil
}

// RedisOptions translates the Redis config into universal client options. Cluster wins over
// sentinel; a redis:// or rediss:// URI is parsed for the direct case.
func RedisOptions(cfg config.RedisConfig) (*redis.UniversalOptions, error) {
	switch {
	case cfg.UseCluster:
		addrs := cfg.ClusterNodes
		if len(addrs) == 0 && cfg.URI != "" {
			addrs = []string{cfg.URI}
		}
		if len(addrs) == 0 {
			return nil, errors.New("redis cluster configuration requires at least one address")
		}
		return &redis.UniversalOptions{Addrs: addrs, Password: cfg.Password, IsClusterMode: true}, nil
	case cfg.UseSentinel:
		if len(cfg.SentinelNodes) == 0 {
			return nil, errors.New("redis sentinel configuration requires at least one sentinel node")
		}
		return &redis.UniversalOptions{
			Addrs:            cfg.SentinelNodes,
			MasterName:       cfg.SentinelMasterName,
			Password:         cfg.Password,
			SentinelPassword: cfg.SentinelPassword,
			DB:               cfg.DB,
		}, nil
	}

	if cfg.URI == "" {
		return nil, errors.New("redis direct configuration requires a URI")
	}
	if strings.HasPrefix(cfg.URI, "redis://") || strings.HasPrefix(cfg.URI, "rediss://") {
		opt, err := redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return &redis.UniversalOptions{
			Addrs:     []string{opt.Addr},
			Username:  opt.Username,
			Password:  opt.Password,
			DB:        opt.DB,
			TLSConfig: opt.TLSConfig,
		}, nil
	}
	return &redis.UniversalOptions{Addrs: []string{cfg.URI}, Password: cfg.Password, DB: cfg.DB}, nil
}

// ConnectRedis builds and pings a Redis client.
//
//nolint:ireturn // returning redis.UniversalClient lets us pick single, sentinel, or cluster clients at runtime.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	opts, err := RedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewUniversalClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	logger.InfoContext(ctx, "redis connected",
		"addrs", strings.Join(opts.Addrs, ","),
		"sentinel", opts.MasterName != "",
		"cluster", opts.IsClusterMode,
	)
	return client, nil
}

// RunMigrations applies pending schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) ([]string, error) {
	applied, err := migrate.Run(ctx, db)
	if err != nil {
		return applied, fmt.Errorf("run migrations: %w", err)
	}
	logger.InfoContext(ctx, "database migrations completed", "applied", len(applied))
	return applied, nil
}
