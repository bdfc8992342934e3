package mode

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/taoyao-code/cwc-bridge/internal/device"
	"github.com/taoyao-code/cwc-bridge/internal/event"
	"github.com/taoyao-code/cwc-bridge/internal/protocol/makeblock/mbot"
	"github.com/taoyao-code/cwc-bridge/internal/runner"
	"github.com/taoyao-code/cwc-bridge/internal/transport/virtual"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestManager(t *testing.T, opts Options) (*Manager, *device.Registry, *event.Bus) {
	t.Helper()
	bus := event.NewBus()
	reg := device.NewRegistry(bus, nil)
	reg.AddScanner(virtual.NewScanner(
		device.Info{Name: "mbot", Family: device.FamilyMBot},
		device.Info{Name: "sphero", Family: device.FamilySphero, Variant: "v1"},
		device.Info{Name: "ev3", Family: device.FamilyEV3},
		device.Info{Name: "pi", Family: device.FamilyAIY},
		device.Info{Name: "toaster"},
	))
	reg.RegisterTransport(device.KindVirtual, virtual.Factory)
	require.NoError(t, reg.Update(context.Background()))
	t.Cleanup(reg.CloseAll)
	return NewManager(reg, bus, opts, nil), reg, bus
}

func TestManager_SwitchAndCleanUp(t *testing.T) {
	m, _, bus := newTestManager(t, Options{})
	changes, cancel := bus.Subscribe(EventChanged)
	defer cancel()

	_, ok := m.Profile()
	assert.False(t, ok)
	assert.ErrorIs(t, m.StartMonitoring(context.Background()), ErrNoMode)

	s, err := m.Switch(context.Background(), "virtual:mbot")
	require.NoError(t, err)
	assert.Equal(t, device.FamilyMBot, s.Family)
	assert.True(t, s.Device.IsConnected())

	st := m.Status()
	assert.True(t, st.Active)
	assert.Equal(t, "connected", st.State)
	assert.False(t, st.Monitoring)
	ev := <-changes
	assert.Equal(t, EventChanged, ev.Type)

	t.Run("命令经档案发送到设备", func(t *testing.T) {
		p, ok := m.Profile()
		require.True(t, ok)
		cmd, err := p.ParseCommand("movePower", json.RawMessage(`{"power":100}`))
		require.NoError(t, err)
		require.NoError(t, p.Execute(context.Background(), cmd))
	})

	t.Run("轮询开关", func(t *testing.T) {
		require.NoError(t, m.StartMonitoring(context.Background()))
		assert.True(t, m.Status().Monitoring)
		require.NoError(t, m.StopMonitoring())
		assert.False(t, m.Status().Monitoring)
	})

	t.Run("切换设备时清理上一个", func(t *testing.T) {
		s2, err := m.Switch(context.Background(), "virtual:sphero")
		require.NoError(t, err)
		assert.False(t, s.Device.IsConnected())
		assert.Equal(t, device.FamilySphero, s2.Family)
	})

	m.CleanUp()
	m.CleanUp()
	assert.Equal(t, Status{}, m.Status())
	_, ok = m.Profile()
	assert.False(t, ok)
}

func TestManager_Families(t *testing.T) {
	m, _, _ := newTestManager(t, Options{})
	cases := []struct {
		id         string
		family     string
		monitoring bool
	}{
		{"virtual:ev3", device.FamilyEV3, true},
		{"virtual:pi", device.FamilyAIY, false},
	}
	for _, tc := range cases {
		t.Run(tc.family, func(t *testing.T) {
			s, err := m.Switch(context.Background(), tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.family, s.Profile.Family())
			assert.Equal(t, tc.monitoring, s.Monitor != nil)
		})
	}
	assert.ErrorIs(t, m.StartMonitoring(context.Background()), ErrNoMonitoring)
	m.CleanUp()

	_, err := m.Switch(context.Background(), "virtual:toaster")
	assert.ErrorIs(t, err, ErrUnsupportedFamily)
	_, err = m.Switch(context.Background(), "virtual:missing")
	assert.ErrorIs(t, err, device.ErrUnknownDevice)
}

func TestManager_AutoMonitorReportsPolls(t *testing.T) {
	polls := make(chan string, 16)
	m, _, bus := newTestManager(t, Options{
		AutoMonitor: true,
		OnPoll: func(family, channel string, err error) {
			select {
			case polls <- family + "/" + channel:
			default:
			}
		},
	})
	distances, cancel := bus.Subscribe(mbot.EventUltrasonic)
	defer cancel()

	_, err := m.Switch(context.Background(), "virtual:mbot")
	require.NoError(t, err)
	assert.True(t, m.Status().Monitoring)

	select {
	case <-distances:
	case <-time.After(2 * time.Second):
		t.Fatal("no telemetry from monitoring")
	}
	select {
	case p := <-polls:
		assert.Contains(t, p, "mbot/")
	case <-time.After(time.Second):
		t.Fatal("no poll callback")
	}
	m.CleanUp()
}

var _ runner.ProfileSource = (*Manager)(nil)

func TestManager_ActivationHooks(t *testing.T) {
	var log []string
	m, _, _ := newTestManager(t, Options{
		OnActivate:   func(d *device.Device) { log = append(log, "on:"+d.ID()) },
		OnDeactivate: func(d *device.Device) { log = append(log, "off:"+d.ID()+":"+d.State().String()) },
	})

	_, err := m.Switch(context.Background(), "virtual:mbot")
	require.NoError(t, err)
	_, err = m.Switch(context.Background(), "virtual:sphero")
	require.NoError(t, err)
	m.CleanUp()

	// 停用回调在断开之前执行
	assert.Equal(t, []string{
		"on:virtual:mbot",
		"off:virtual:mbot:connected",
		"on:virtual:sphero",
		"off:virtual:sphero:connected",
	}, log)
}
