package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/cwc-bridge/internal/config"
	"github.com/taoyao-code/cwc-bridge/internal/device"
	"github.com/taoyao-code/cwc-bridge/internal/event"
	"github.com/taoyao-code/cwc-bridge/internal/metrics"
	"github.com/taoyao-code/cwc-bridge/internal/mode"
	"github.com/taoyao-code/cwc-bridge/internal/session"
)

func TestNewTransports(t *testing.T) {
	cfg := config.TransportsConfig{
		TCP: config.NetConfig{Devices: []config.StaticDevice{{Name: "mBot bridge", Address: "192.168.4.1:23"}}},
		WS:  config.NetConfig{Devices: []config.StaticDevice{{Name: "aiy", Address: "ws://192.168.1.20:8765/"}}},
		Virtual: config.VirtualConfig{Enable: true, Devices: []config.StaticDevice{
			{Name: "demo-sphero", Family: device.FamilySphero, Variant: "v1"},
		}},
	}
	tr := NewTransports(cfg, event.NewBus(), nil, zap.NewNop())
	defer tr.Registry.CloseAll()
	assert.Nil(t, tr.Bluetooth)
	assert.Nil(t, tr.Discovery)

	require.NoError(t, tr.Registry.Update(context.Background()))
	byID := map[string]device.Info{}
	for _, info := range tr.Registry.List() {
		byID[info.ID] = info
	}
	require.Len(t, byID, 3)

	t.Run("TCP静态设备按名称推断设备族", func(t *testing.T) {
		info := byID["tcp:192.168.4.1:23"]
		assert.Equal(t, device.KindTCP, info.Kind)
		assert.Equal(t, device.FamilyMBot, info.Family)
	})
	t.Run("WebSocket静态设备", func(t *testing.T) {
		info := byID["ws:ws://192.168.1.20:8765/"]
		assert.Equal(t, device.KindWS, info.Kind)
		assert.Equal(t, device.FamilyAIY, info.Family)
	})
	t.Run("虚拟设备可连接", func(t *testing.T) {
		d, err := tr.Registry.Get("virtual:demo-sphero")
		require.NoError(t, err)
		require.NoError(t, d.Connect(context.Background()))
		assert.True(t, d.IsConnected())
	})
}

func TestNewPresenceStore(t *testing.T) {
	t.Run("内存", func(t *testing.T) {
		s := NewPresenceStore(config.SessionConfig{Timeout: time.Minute}, nil, "s1", zap.NewNop())
		_, ok := s.(*session.Manager)
		assert.True(t, ok)
	})

	t.Run("Redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := NewRedisClient(context.Background(), config.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
		require.NoError(t, err)
		defer client.Close()

		s := NewPresenceStore(config.SessionConfig{Timeout: time.Minute}, client, "s1", zap.NewNop())
		rm, ok := s.(*session.RedisManager)
		require.True(t, ok)
		assert.Equal(t, "s1", rm.ServerID())
	})

	t.Run("未配置Redis", func(t *testing.T) {
		client, err := NewRedisClient(context.Background(), config.RedisConfig{}, zap.NewNop())
		assert.NoError(t, err)
		assert.Nil(t, client)
	})
}

func TestGenerateServerID(t *testing.T) {
	t.Setenv("CWC_SERVER_ID", "classroom-1")
	assert.Equal(t, "classroom-1", GenerateServerID())

	t.Setenv("CWC_SERVER_ID", "")
	assert.Contains(t, GenerateServerID(), "cwc-bridge-")
}

func TestConnectDB_Disabled(t *testing.T) {
	pool, err := ConnectDBAndMigrate(context.Background(), config.DatabaseConfig{}, zap.NewNop())
	assert.NoError(t, err)
	assert.Nil(t, pool)
}

func TestModeOptions_WatchActiveDevice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appm := func() *metrics.AppMetrics { _, m := NewMetrics(); return m }()
	reconnect := NewReconnectManager(config.ReconnectConfig{Enable: true, Interval: 10 * time.Millisecond}, appm, zap.NewNop())
	require.NotNil(t, reconnect)
	defer reconnect.Stop()

	bus := event.NewBus()
	tr := NewTransports(config.TransportsConfig{Virtual: config.VirtualConfig{Enable: true, Devices: []config.StaticDevice{
		{Name: "mbot", Family: device.FamilyMBot},
	}}}, bus, nil, zap.NewNop())
	defer tr.Registry.CloseAll()
	require.NoError(t, tr.Registry.Update(ctx))

	modes := mode.NewManager(tr.Registry, bus, NewModeOptions(ctx, config.ModeConfig{}, reconnect, appm), zap.NewNop())
	s, err := modes.Switch(ctx, "virtual:mbot")
	require.NoError(t, err)
	assert.True(t, reconnect.Watching("virtual:mbot"))

	// 链路意外断开后自动重连
	require.NoError(t, s.Device.Disconnect(true))
	assert.Eventually(t, s.Device.IsConnected, time.Second, 10*time.Millisecond)

	modes.CleanUp()
	assert.False(t, reconnect.Watching("virtual:mbot"))
	assert.False(t, s.Device.IsConnected())
}

func TestNewReconnectManager_Disabled(t *testing.T) {
	assert.Nil(t, NewReconnectManager(config.ReconnectConfig{}, nil, zap.NewNop()))
	opts := NewModeOptions(context.Background(), config.ModeConfig{AutoMonitor: true}, nil, nil)
	assert.True(t, opts.AutoMonitor)
	assert.Nil(t, opts.OnActivate)
}
