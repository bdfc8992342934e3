package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract 两种实现共用的行为检查
func storeContract(t *testing.T, s Store) {
	now := time.Now()

	t.Run("未知设备", func(t *testing.T) {
		_, ok := s.Get("nope")
		assert.False(t, ok)
		assert.False(t, s.IsOnline("nope", now))
	})

	t.Run("连接后在线", func(t *testing.T) {
		s.OnConnected("virtual:mbot", "mbot", now)
		assert.True(t, s.IsOnline("virtual:mbot", now.Add(10*time.Second)))
		assert.Equal(t, 1, s.OnlineCount(now))
		p, ok := s.Get("virtual:mbot")
		require.True(t, ok)
		assert.Equal(t, "mbot", p.Family)
		assert.True(t, p.Connected)
	})

	t.Run("超时未收到数据", func(t *testing.T) {
		assert.False(t, s.IsOnline("virtual:mbot", now.Add(time.Minute)))
		s.OnSeen("virtual:mbot", now.Add(50*time.Second))
		assert.True(t, s.IsOnline("virtual:mbot", now.Add(time.Minute)))
	})

	t.Run("断开后离线", func(t *testing.T) {
		s.OnDisconnected("virtual:mbot", now.Add(time.Minute))
		assert.False(t, s.IsOnline("virtual:mbot", now.Add(time.Minute)))
		p, _ := s.Get("virtual:mbot")
		assert.False(t, p.Connected)
		assert.False(t, p.LastDisconnect.IsZero())
		assert.Equal(t, 0, s.OnlineCount(now.Add(time.Minute)))
	})

	t.Run("未连接设备的断开为空操作", func(t *testing.T) {
		s.OnDisconnected("ghost", now)
		_, ok := s.Get("ghost")
		assert.False(t, ok)
	})
}

func TestManager_Contract(t *testing.T) {
	storeContract(t, New(30*time.Second))
}
