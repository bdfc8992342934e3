package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taoyao-code/cwc-bridge/internal/config"
)

func TestNewClient(t *testing.T) {
	t.Run("未配置地址", func(t *testing.T) {
		_, err := NewClient(context.Background(), config.RedisConfig{})
		assert.ErrorIs(t, err, ErrDisabled)
	})

	t.Run("连接成功", func(t *testing.T) {
		mr := miniredis.RunT(t)
		c, err := NewClient(context.Background(), config.RedisConfig{Addr: mr.Addr(), PoolSize: 2})
		require.NoError(t, err)
		defer c.Close()
		assert.NoError(t, c.HealthCheck(context.Background()))
	})

	t.Run("地址不可达", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		_, err := NewClient(context.Background(), config.RedisConfig{Addr: addr})
		assert.Error(t, err)
	})
}
