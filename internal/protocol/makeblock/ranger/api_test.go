package ranger

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taoyao-code/cwc-bridge/internal/event"
	mb "github.com/taoyao-code/cwc-bridge/internal/protocol/makeblock"
	"github.com/taoyao-code/cwc-bridge/internal/runner"
	"go.uber.org/zap"
)

type recorder struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *recorder) Send(_ context.Context, frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, append([]byte(nil), frame...))
	return nil
}

func (r *recorder) all() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.frames...)
}

func TestAPI_Frames(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		call func(a *API) error
		want [][]byte
	}{
		{"第3颗LED", func(a *API) error { return a.SetRGB(ctx, 3, 0, 0, 255) },
			[][]byte{{0xFF, 0x55, 0x09, 0x00, 0x02, 0x08, 0x00, 0x02, 0x03, 0x00, 0x00, 0xFF}}},
		{"蜂鸣器", func(a *API) error { return a.PlayTone(ctx, 262, 250) },
			[][]byte{{0xFF, 0x55, 0x08, 0x00, 0x02, 0x22, 0x2D, 0x06, 0x01, 0xFA, 0x00}}},
		{"前进", func(a *API) error { return a.MovePower(ctx, 100) },
			[][]byte{
				{0xFF, 0x55, 0x07, 0x00, 0x02, 0x3D, 0x00, 0x01, 0x9C, 0xFF},
				{0xFF, 0x55, 0x07, 0x00, 0x02, 0x3D, 0x00, 0x02, 0x64, 0x00},
			}},
		{"超声波", func(a *API) error { return a.GetUltrasonic(ctx) },
			[][]byte{{0xFF, 0x55, 0x04, 0x02, 0x01, 0x01, 0x0A}}},
		{"光线2", func(a *API) error { return a.GetLightSensor(ctx, 2) },
			[][]byte{{0xFF, 0x55, 0x04, 0x04, 0x01, 0x03, 0x0B}}},
		{"温度", func(a *API) error { return a.GetTemperature(ctx) },
			[][]byte{{0xFF, 0x55, 0x04, 0x07, 0x01, 0x1B, 0x0D}}},
		{"陀螺仪Z轴", func(a *API) error { return a.GetGyro(ctx, AxisZ) },
			[][]byte{{0xFF, 0x55, 0x05, 0x0A, 0x01, 0x06, 0x01, 0x03}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			require.NoError(t, tt.call(NewAPI(rec, nil)))
			assert.Equal(t, tt.want, rec.all())
		})
	}
}

func TestAPI_ArgumentErrors(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	a := NewAPI(rec, nil)
	assert.Error(t, a.SetRGB(ctx, 13, 0, 0, 0))
	assert.Error(t, a.GetLightSensor(ctx, 3))
	assert.Error(t, a.GetGyro(ctx, 0))
	assert.Empty(t, rec.all())
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand("setEncoderMotor", json.RawMessage(`{"speed":50}`))
	require.NoError(t, err)
	assert.Equal(t, &SetEncoderMotorCmd{Slot: SlotMotorOne, Speed: 50}, cmd)

	_, err = ParseCommand("setJoystick", nil)
	assert.ErrorIs(t, err, runner.ErrUnknownCommand)
}

func TestProfile_Execute(t *testing.T) {
	rec := &recorder{}
	p := NewProfile(NewAPI(rec, nil), nil)
	cmd, err := p.ParseCommand("getGyro", json.RawMessage(`{"axis":2}`))
	require.NoError(t, err)
	require.NoError(t, p.Execute(context.Background(), cmd))
	assert.Equal(t, []byte{0xFF, 0x55, 0x05, 0x09, 0x01, 0x06, 0x01, 0x02}, rec.all()[0])
}

func TestRoutes(t *testing.T) {
	bus := event.NewBus()
	ch, cancel := bus.Subscribe(EventLight, EventGyro)
	defer cancel()

	h := mb.NewHandler(bus, "ranger-1", Routes(), nil)
	require.NoError(t, h.ProcessBytes([]byte{
		0xFF, 0x55, 0x04, 0x03, 0x20, 0x03, 0x0D, 0x0A, // 光线2 = 800
		0xFF, 0x55, 0x09, 0x02, 0x00, 0x00, 0x48, 0x41, 0x0D, 0x0A, // y = 12.5
	}))

	ev := <-ch
	l, ok := event.As[Light](ev)
	require.True(t, ok)
	assert.Equal(t, Light{Sensor: 2, Value: 800}, l)

	ev = <-ch
	g, ok := event.As[Gyro](ev)
	require.True(t, ok)
	assert.Equal(t, "y", g.Axis)
	assert.InDelta(t, 12.5, g.Angle, 0.0001)
}

func TestMonitoring(t *testing.T) {
	rec := &recorder{}
	m := NewMonitoring(NewAPI(rec, nil), zap.NewNop())
	assert.Equal(t, time.Second, m.Interval(ChannelTemperature))
	require.NoError(t, m.SetInterval(ChannelLight, 5*time.Millisecond))
	for _, c := range []string{ChannelLineFollower, ChannelUltrasonic, ChannelTemperature} {
		require.NoError(t, m.SetChannelEnabled(c, false))
	}

	m.Start(context.Background())
	assert.Eventually(t, func() bool { return len(rec.all()) >= 2 }, time.Second, 5*time.Millisecond)
	m.Stop()

	frames := rec.all()
	assert.Equal(t, PortLight1, frames[0][6])
	assert.Equal(t, PortLight2, frames[1][6])
}
