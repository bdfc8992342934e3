package app

import (
	"go.uber.org/zap"

	"github.com/taoyao-code/cwc-bridge/internal/config"
	"github.com/taoyao-code/cwc-bridge/internal/session"
	redisstorage "github.com/taoyao-code/cwc-bridge/internal/storage/redis"
)

// NewPresenceStore Redis 可用时使用 Redis，否则使用内存
func NewPresenceStore(cfg config.SessionConfig, redisClient *redisstorage.Client, serverID string, logger *zap.Logger) session.Store {
	if redisClient != nil {
		logger.Info("using redis presence store",
			zap.String("server_id", serverID),
			zap.Duration("timeout", cfg.Timeout))
		return session.NewRedisManager(redisClient.Client, serverID, cfg.Timeout, logger)
	}
	logger.Info("using memory presence store", zap.Duration("timeout", cfg.Timeout))
	return session.New(cfg.Timeout)
}
