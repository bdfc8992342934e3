package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/taoyao-code/cwc-bridge/internal/config"
)

const applicationName = "cwc-bridge"

// poolConfig 解析 DSN 并填充连接池默认值
func poolConfig(cfg config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	// 帧日志只有一个批量写入者，连接数不需要多
	pc.MaxConns = 4
	if cfg.MaxOpenConns > 0 {
		pc.MaxConns = int32(cfg.MaxOpenConns)
	}
	pc.MaxConnLifetime = time.Hour
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pc.MaxConnIdleTime = 30 * time.Minute
	pc.HealthCheckPeriod = time.Minute
	if _, ok := pc.ConnConfig.RuntimeParams["application_name"]; !ok {
		pc.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	if logger != nil {
		pc.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   traceLogger{log: logger.Named("pgx")},
			LogLevel: tracelog.LogLevelWarn,
		}
	}
	return pc, nil
}

// NewPool 创建连接池并探活
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	pc, err := poolConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// traceLogger pgx 日志转 zap
type traceLogger struct {
	log *zap.Logger
}

var traceLevels = map[tracelog.LogLevel]zapcore.Level{
	tracelog.LogLevelTrace: zapcore.DebugLevel,
	tracelog.LogLevelDebug: zapcore.DebugLevel,
	tracelog.LogLevelInfo:  zapcore.InfoLevel,
	tracelog.LogLevelWarn:  zapcore.WarnLevel,
	tracelog.LogLevelError: zapcore.ErrorLevel,
}

func (l traceLogger) Log(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	lvl, ok := traceLevels[level]
	if !ok {
		lvl = zapcore.InfoLevel
	}
	ce := l.log.Check(lvl, msg)
	if ce == nil {
		return
	}
	fields := make([]zap.Field, 0, len(data))
	for k, v := range data {
		fields = append(fields, zap.Any(k, v))
	}
	ce.Write(fields...)
}
