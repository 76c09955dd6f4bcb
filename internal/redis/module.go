// Package redis provides the optional shared Redis client used by the
// wallet balance projection.
package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/uplinelabs/upline/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("redis",
	fx.Provide(NewClient),
)

// NewClient returns nil when Redis is disabled; consumers treat a nil client
// as cache-off and fall back to direct ledger folds.
func NewClient(cfg config.Config, log *zap.Logger) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	log.Named("redis").Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	return client, nil
}
