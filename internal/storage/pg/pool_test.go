package pg

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/taoyao-code/cwc-bridge/internal/config"
)

func TestPoolConfig(t *testing.T) {
	t.Run("默认值", func(t *testing.T) {
		pc, err := poolConfig(config.DatabaseConfig{DSN: "postgres://cwc:pw@localhost:5432/cwc"}, nil)
		require.NoError(t, err)
		assert.Equal(t, int32(4), pc.MaxConns)
		assert.Equal(t, time.Hour, pc.MaxConnLifetime)
		assert.Equal(t, applicationName, pc.ConnConfig.RuntimeParams["application_name"])
		assert.Nil(t, pc.ConnConfig.Tracer)
	})

	t.Run("配置覆盖", func(t *testing.T) {
		pc, err := poolConfig(config.DatabaseConfig{
			DSN:             "postgres://localhost/cwc?application_name=classroom",
			MaxOpenConns:    8,
			ConnMaxLifetime: 10 * time.Minute,
		}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, int32(8), pc.MaxConns)
		assert.Equal(t, 10*time.Minute, pc.MaxConnLifetime)
		assert.Equal(t, "classroom", pc.ConnConfig.RuntimeParams["application_name"])
		assert.NotNil(t, pc.ConnConfig.Tracer)
	})

	t.Run("DSN非法", func(t *testing.T) {
		_, err := poolConfig(config.DatabaseConfig{DSN: "postgres://%zz"}, nil)
		assert.Error(t, err)
	})
}

func TestTraceLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := traceLogger{log: zap.New(core)}

	l.Log(context.Background(), tracelog.LogLevelDebug, "Query", map[string]any{"sql": "select 1"})
	l.Log(context.Background(), tracelog.LogLevelError, "Query", map[string]any{"err": "timeout"})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "timeout", entries[0].ContextMap()["err"])
}
