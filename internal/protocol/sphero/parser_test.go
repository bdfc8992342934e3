package sphero

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncFrame 构造同步应答帧
func syncFrame(code byte, cb CallbackType, data ...byte) []byte {
	f := []byte{SOP1, SOP2Answer, code, byte(cb), byte(len(data) + 1)}
	f = append(f, data...)
	return append(f, Checksum(f[2:]))
}

// asyncFrame 构造异步消息帧
func asyncFrame(id byte, data ...byte) []byte {
	n := len(data) + 1
	f := []byte{SOP1, SOP2NoAnswer, id, byte(n >> 8), byte(n)}
	f = append(f, data...)
	return append(f, Checksum(f[2:]))
}

func TestParse(t *testing.T) {
	f, err := Parse(syncFrame(RespOK, CallbackRGB, 1, 2, 3))
	require.NoError(t, err)
	assert.False(t, f.Async)
	assert.True(t, f.OK())
	assert.Equal(t, CallbackRGB, f.Callback)
	assert.Equal(t, []byte{1, 2, 3}, f.Data)

	f, err = Parse(asyncFrame(AsyncPowerNotification, 0x02))
	require.NoError(t, err)
	assert.True(t, f.Async)
	assert.Equal(t, AsyncPowerNotification, f.Code)
}

func TestParse_Errors(t *testing.T) {
	good := syncFrame(RespOK, CallbackPing)
	bad := append([]byte(nil), good...)
	bad[len(bad)-1] ^= 0x01

	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{"过短", []byte{0xFF, 0xFF, 0x00}, ErrShortFrame},
		{"起始字节错误", []byte{0xAA, 0xFF, 0x00, 0x01, 0x01, 0xFD}, ErrInvalidStart},
		{"长度不符", append(append([]byte(nil), good...), 0x00), ErrBadLength},
		{"校验和错误", bad, ErrBadChecksum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStreamDecoder_SplitAndSticky(t *testing.T) {
	a := syncFrame(RespOK, CallbackPing)
	b := asyncFrame(AsyncPowerNotification, 0x03)
	stream := append(append([]byte{0x00, 0x13}, a...), b...)

	d := NewStreamDecoder(0)
	var got []*Frame
	for _, c := range stream {
		frames, err := d.Feed([]byte{c})
		require.NoError(t, err)
		got = append(got, frames...)
	}
	require.Len(t, got, 2)
	assert.Equal(t, CallbackPing, got[0].Callback)
	assert.True(t, got[1].Async)
	assert.Equal(t, 0, d.Buffered())
}

func TestStreamDecoder_Resync(t *testing.T) {
	bad := syncFrame(RespOK, CallbackRGB, 9, 9, 9)
	bad[len(bad)-1] ^= 0xFF
	good := syncFrame(RespOK, CallbackRGB, 1, 2, 3)

	d := NewStreamDecoder(0)
	frames, err := d.Feed(append(bad, good...))
	assert.ErrorIs(t, err, ErrBadChecksum)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte{1, 2, 3}, frames[0].Data)
}

func TestStreamDecoder_BadLength(t *testing.T) {
	// DLEN 为 0 的同步应答不可能合法
	d := NewStreamDecoder(0)
	frames, err := d.Feed(append([]byte{SOP1, SOP2Answer, RespOK, 0x01, 0x00}, syncFrame(RespOK, CallbackPing)...))
	assert.ErrorIs(t, err, ErrBadLength)
	require.Len(t, frames, 1)
	assert.Equal(t, CallbackPing, frames[0].Callback)
}

func TestStreamDecoder_KeepsTrailingSOP(t *testing.T) {
	d := NewStreamDecoder(0)
	frames, err := d.Feed([]byte{0x01, 0x02, SOP1})
	require.NoError(t, err)
	assert.Empty(t, frames)
	assert.Equal(t, 1, d.Buffered())
	d.Reset()
	assert.Equal(t, 0, d.Buffered())
}
