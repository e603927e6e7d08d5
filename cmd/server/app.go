package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/lost-found/config"
	"github.com/rl1809/lost-found/internal/adapter/storage"
	"github.com/rl1809/lost-found/internal/logger"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Options{
		Development:       cfg.Server.IsDevelopment(),
		Level:             cfg.Logger.Level,
		Encoding:          cfg.Logger.Encoding,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
}

// openStore connects to the configured database and, when enabled, brings
// the schema up to date.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage.SQLAdapter, error) {
	db, err := storage.OpenDB(storage.SQLOptions{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN(false),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogQueries:      cfg.Database.LogQueries,
	}, log)
	if err != nil {
		return nil, err
	}

	adapter := storage.NewSQLAdapter(db)
	if err := adapter.Ping(ctx); err != nil {
		adapter.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info("connected to database", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.AutoMigrate {
		if err := adapter.AutoMigrate(); err != nil {
			adapter.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return adapter, nil
}

// openGuard returns nil when Redis is disabled or unreachable; claims then
// rely on the database constraints alone.
func openGuard(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage.RedisAdapter, func()) {
	if !cfg.Redis.Enabled {
		log.Info("redis claim guard disabled")
		return nil, func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis not reachable, claim guard disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		rdb.Close()
		return nil, func() {}
	}
	log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	return storage.NewRedisAdapter(rdb, cfg.Redis.GuardTTL), func() { rdb.Close() }
}
