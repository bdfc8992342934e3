package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/taoyao-code/cwc-bridge/internal/config"
	"github.com/taoyao-code/cwc-bridge/internal/migrate"
	pgstorage "github.com/taoyao-code/cwc-bridge/internal/storage/pg"
)

// ConnectDBAndMigrate 建立数据库连接并执行帧日志迁移；DSN 为空时返回 nil
func ConnectDBAndMigrate(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		log.Info("database not configured, frame journal disabled")
		return nil, nil
	}
	dbpool, err := pgstorage.NewPool(ctx, cfg, log)
	if err != nil {
		log.Error("db connect error", zap.Error(err))
		return nil, err
	}
	applied, err := migrate.Runner{FS: pgstorage.Migrations, Log: log.Named("migrate")}.Up(ctx, dbpool)
	if err != nil {
		log.Error("db migrate error", zap.Error(err))
		dbpool.Close()
		return nil, err
	}
	log.Info("db migrations applied", zap.Int("count", len(applied)))
	return dbpool, nil
}

// NewJournal 基于连接池的帧日志
func NewJournal(dbpool *pgxpool.Pool, log *zap.Logger) *pgstorage.Journal {
	return pgstorage.NewJournal(dbpool, log.Named("journal"), pgstorage.JournalOptions{})
}
