package container

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/john-rice/gitbutler/cmd/branches/service"
	"github.com/john-rice/gitbutler/common/config"
	"github.com/john-rice/gitbutler/common/kv"
	"github.com/john-rice/gitbutler/common/logger"
	"github.com/john-rice/gitbutler/common/repository"
)

// Container holds all initialized components (singleton pattern)
type Container struct {
	Config *config.Config
	Logger *logger.Logger
	Store  kv.Store

	BranchRepo    *repository.BranchRepository
	BranchService *service.BranchService
}

// NewContainer initializes all components once
func NewContainer(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	store, err := createStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	branchRepo := repository.NewBranchRepository(store, log)
	branchService := service.NewBranchService(branchRepo, log)

	return &Container{
		Config:        cfg,
		Logger:        log,
		Store:         store,
		BranchRepo:    branchRepo,
		BranchService: branchService,
	}, nil
}

// Shutdown releases held resources
func (c *Container) Shutdown() {
	if err := c.Store.Close(); err != nil {
		c.Logger.Error("failed to close store", "error", err)
	}
}

// createStore opens the configured storage backend
func createStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (kv.Store, error) {
	switch cfg.Storage.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		log.Info("redis connected", "addr", cfg.RedisAddr())
		return kv.NewRedisStore(client, cfg.Storage.Namespace, log), nil

	case "postgres":
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to parse database URL: %w", err)
		}
		poolConfig.MaxConns = int32(cfg.Database.MaxConns)
		poolConfig.MinConns = int32(cfg.Database.MinConns)
		poolConfig.MaxConnLifetime = cfg.Database.MaxLifetime
		poolConfig.MaxConnIdleTime = cfg.Database.MaxIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		log.Info("database connected", "host", cfg.Database.Host, "db", cfg.Database.Database)

		store := kv.NewPostgresStore(pool, cfg.Storage.Namespace, log)
		if err := store.InitSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
