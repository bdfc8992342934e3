package mbot

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (r *recorder) Send(_ context.Context, frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.frames = append(r.frames, append([]byte(nil), frame...))
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *recorder) last() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

func TestAPI_Frames(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		call func(a *API) error
		want []byte
	}{
		{"左侧LED红色", func(a *API) error { return a.SetRGB(ctx, LEDLeft, 255, 0, 0) },
			[]byte{0xFF, 0x55, 0x09, 0x00, 0x02, 0x08, 0x07, 0x02, 0x02, 0xFF, 0x00, 0x00}},
		{"蜂鸣器", func(a *API) error { return a.PlayTone(ctx, 262, 500) },
			[]byte{0xFF, 0x55, 0x07, 0x00, 0x02, 0x22, 0x06, 0x01, 0xF4, 0x01}},
		{"前进", func(a *API) error { return a.MovePower(ctx, 100) },
			[]byte{0xFF, 0x55, 0x07, 0x00, 0x02, 0x05, 0x9C, 0xFF, 0x64, 0x00}},
		{"右转", func(a *API) error { return a.RotatePower(ctx, 100) },
			[]byte{0xFF, 0x55, 0x07, 0x00, 0x02, 0x05, 0x64, 0x00, 0x64, 0x00}},
		{"停止", func(a *API) error { return a.Stop(ctx) },
			[]byte{0xFF, 0x55, 0x07, 0x00, 0x02, 0x05, 0x00, 0x00, 0x00, 0x00}},
		{"M2电机", func(a *API) error { return a.SetMotorPower(ctx, PortMotorRight, -1) },
			[]byte{0xFF, 0x55, 0x06, 0x00, 0x02, 0x0A, 0x0A, 0xFF, 0xFF}},
		{"舵机", func(a *API) error { return a.SetServo(ctx, 0x01, 0x02, 90) },
			[]byte{0xFF, 0x55, 0x06, 0x00, 0x02, 0x0B, 0x01, 0x02, 0x5A}},
		{"复位", func(a *API) error { return a.Reset(ctx) },
			[]byte{0xFF, 0x55, 0x02, 0x00, 0x04}},
		{"版本", func(a *API) error { return a.GetVersion(ctx) },
			[]byte{0xFF, 0x55, 0x03, 0x01, 0x01, 0x00}},
		{"超声波", func(a *API) error { return a.GetUltrasonic(ctx) },
			[]byte{0xFF, 0x55, 0x04, 0x02, 0x01, 0x01, 0x03}},
		{"光线", func(a *API) error { return a.GetLightSensor(ctx) },
			[]byte{0xFF, 0x55, 0x04, 0x03, 0x01, 0x03, 0x06}},
		{"巡线", func(a *API) error { return a.GetLineFollower(ctx) },
			[]byte{0xFF, 0x55, 0x04, 0x05, 0x01, 0x11, 0x02}},
		{"按键", func(a *API) error { return a.GetButton(ctx) },
			[]byte{0xFF, 0x55, 0x05, 0x06, 0x01, 0x23, 0x07, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			require.NoError(t, tt.call(NewAPI(rec, nil)))
			assert.Equal(t, tt.want, rec.last())
			assert.Equal(t, len(tt.want)-3, int(tt.want[2]))
		})
	}
}

func TestAPI_SendError(t *testing.T) {
	boom := errors.New("not connected")
	err := NewAPI(&recorder{err: boom}, nil).Stop(context.Background())
	assert.ErrorIs(t, err, boom)
}
