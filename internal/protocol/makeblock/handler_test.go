package makeblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taoyao-code/cwc-bridge/internal/event"
)

func TestHandler_Routes(t *testing.T) {
	bus := event.NewBus()
	var got []event.Event
	bus.Listen("test.distance", func(ev event.Event) { got = append(got, ev) })

	routes := Routes{
		IndexUltrasonic: func(v Value, source string) (event.Event, bool) {
			return event.New("test.distance", v.Number, source), true
		},
	}
	h := NewHandler(bus, "mbot-1", routes, nil)
	require.True(t, h.Sniff([]byte{0xFF, 0x55}))

	require.NoError(t, h.ProcessBytes([]byte{0xFF, 0x55, 0x02, 0x02, 0x00, 0x00}))
	require.NoError(t, h.ProcessBytes([]byte{0x48, 0x41, 0x0D, 0x0A}))
	// 未注册序号忽略
	require.NoError(t, h.ProcessBytes([]byte{0xFF, 0x55, 0x09, 0x01, 0x01, 0x0D, 0x0A}))

	require.Len(t, got, 1)
	d, ok := event.As[float64](got[0])
	require.True(t, ok)
	assert.InDelta(t, 12.5, d, 0.0001)
	assert.Equal(t, "mbot-1", got[0].Source)
}

func TestHandler_ReportsDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{"未知数据类型", []byte{0xFF, 0x55, 0x02, 0x7F, 0x00, 0x0D, 0x0A}, ErrUnknownType},
		{"帧尾错误", []byte{0xFF, 0x55, 0x02, 0x01, 0x03, 0x0D, 0x0B}, ErrBadTail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := event.NewBus()
			var got []event.Event
			bus.Listen("test.distance", func(ev event.Event) { got = append(got, ev) })
			h := NewHandler(bus, "mbot-1", Routes{
				IndexUltrasonic: func(v Value, source string) (event.Event, bool) {
					return event.New("test.distance", v.Number, source), true
				},
			}, nil)

			assert.ErrorIs(t, h.ProcessBytes(tt.raw), tt.want)
			assert.Empty(t, got)

			// 后续合法应答不受影响
			require.NoError(t, h.ProcessBytes([]byte{0xFF, 0x55, 0x02, 0x01, 0x07, 0x0D, 0x0A}))
			require.Len(t, got, 1)
		})
	}
}
