package session

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisManager_Contract(t *testing.T) {
	client, _ := setupTestRedis(t)
	storeContract(t, NewRedisManager(client, "bridge-1", 30*time.Second, nil))
}

func TestRedisManager_SharedAcrossInstances(t *testing.T) {
	client, mr := setupTestRedis(t)
	a := NewRedisManager(client, "bridge-a", 30*time.Second, nil)
	b := NewRedisManager(client, "bridge-b", 30*time.Second, nil)

	now := time.Now()
	a.OnConnected("serial:/dev/ttyUSB0", "mbot", now)
	assert.True(t, b.IsOnline("serial:/dev/ttyUSB0", now))
	p, ok := b.Get("serial:/dev/ttyUSB0")
	require.True(t, ok)
	assert.Equal(t, "bridge-a", p.ServerID)

	members, err := mr.Members("cwc:server:bridge-a:devices")
	require.NoError(t, err)
	assert.Equal(t, []string{"serial:/dev/ttyUSB0"}, members)
	assert.Greater(t, mr.TTL("cwc:presence:serial:/dev/ttyUSB0"), time.Duration(0))

	t.Run("实例退出时清理", func(t *testing.T) {
		require.NoError(t, a.Cleanup())
		assert.False(t, b.IsOnline("serial:/dev/ttyUSB0", now))
		assert.False(t, mr.Exists("cwc:server:bridge-a:devices"))
	})
}

func TestRedisManager_DefaultServerID(t *testing.T) {
	client, _ := setupTestRedis(t)
	m := NewRedisManager(client, "", 0, nil)
	assert.NotEmpty(t, m.ServerID())
}

func TestRedisManager_FieldUpdates(t *testing.T) {
	client, mr := setupTestRedis(t)
	m := NewRedisManager(client, "bridge-1", 30*time.Second, nil)

	at := time.UnixMilli(1_700_000_000_123)
	m.OnConnected("ble:sphero", "sphero", at)
	m.OnSeen("ble:sphero", at.Add(time.Second))

	// 只更新 last_seen，连接字段保留
	assert.Equal(t, "1", mr.HGet("cwc:presence:ble:sphero", "connected"))
	assert.Equal(t, "1700000001123", mr.HGet("cwc:presence:ble:sphero", "last_seen"))

	p, ok := m.Get("ble:sphero")
	require.True(t, ok)
	assert.True(t, p.LastSeen.Equal(at.Add(time.Second)))
	assert.True(t, p.LastDisconnect.IsZero())
	assert.Equal(t, "sphero", p.Family)
}
