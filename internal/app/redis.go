package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/taoyao-code/cwc-bridge/internal/config"
	"github.com/taoyao-code/cwc-bridge/internal/health"
	redisstorage "github.com/taoyao-code/cwc-bridge/internal/storage/redis"
)

// NewRedisClient 创建 Redis 客户端；未配置地址时返回 nil
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redisstorage.Client, error) {
	if cfg.Addr == "" {
		logger.Info("redis is disabled, using memory presence store")
		return nil, nil
	}
	client, err := redisstorage.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("redis client initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("pool_size", cfg.PoolSize))
	return client, nil
}

// AddRedisChecker Redis 为可选组件
func AddRedisChecker(aggregator *health.Aggregator, redisClient *redisstorage.Client) {
	if redisClient != nil {
		aggregator.AddOptional(health.NewRedisChecker(redisClient))
	}
}
