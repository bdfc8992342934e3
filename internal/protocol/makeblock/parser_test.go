package makeblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Values(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want Value
	}{
		{"字节", []byte{0xFF, 0x55, 0x05, 0x01, 0x03, 0x0D, 0x0A}, Value{Type: TypeByte, Number: 3}},
		{"短整型", []byte{0xFF, 0x55, 0x03, 0x03, 0xFE, 0xFF, 0x0D, 0x0A}, Value{Type: TypeShort, Number: -2}},
		// 12.5f = 0x41480000
		{"浮点", []byte{0xFF, 0x55, 0x02, 0x02, 0x00, 0x00, 0x48, 0x41, 0x0D, 0x0A}, Value{Type: TypeFloat, Number: 12.5}},
		{"双精度", []byte{0xFF, 0x55, 0x02, 0x05, 0x00, 0x00, 0x48, 0x41, 0x0D, 0x0A}, Value{Type: TypeDouble, Number: 12.5}},
		{"长整型", []byte{0xFF, 0x55, 0x02, 0x06, 0x10, 0x27, 0x00, 0x00, 0x0D, 0x0A}, Value{Type: TypeLong, Number: 10000}},
		{"字符串", []byte{0xFF, 0x55, 0x01, 0x04, 0x03, '1', '.', '2', 0x0D, 0x0A}, Value{Type: TypeString, Text: "1.2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.False(t, r.Ack)
			assert.Equal(t, tt.want, r.Value)
		})
	}
}

func TestParse_Ack(t *testing.T) {
	r, err := Parse([]byte{0xFF, 0x55, 0x0D, 0x0A})
	require.NoError(t, err)
	assert.True(t, r.Ack)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte{0xFF})
	assert.ErrorIs(t, err, ErrShortFrame)
	_, err = Parse([]byte{0xFF, 0x56, 0x0D, 0x0A})
	assert.ErrorIs(t, err, ErrInvalidStart)
	_, err = Parse([]byte{0xFF, 0x55, 0x05, 0x01, 0x03, 0x0D, 0x0B})
	assert.ErrorIs(t, err, ErrBadTail)
	_, err = Parse([]byte{0xFF, 0x55, 0x05, 0x09, 0x03, 0x0D, 0x0A})
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestStreamDecoder(t *testing.T) {
	stream := []byte{
		0x13, 0x37, // 噪声
		0xFF, 0x55, 0x0D, 0x0A,
		0xFF, 0x55, 0x02, 0x02, 0x00, 0x00, 0x48, 0x41, 0x0D, 0x0A,
		0xFF, 0x55, 0x05, 0x01, 0x03, 0x0D, 0x0B, // 帧尾错误
		0xFF, 0x55, 0x05, 0x01, 0x02, 0x0D, 0x0A,
	}
	d := NewStreamDecoder()
	var got []*Reply
	var errs []error
	for i := 0; i < len(stream); i += 3 {
		end := i + 3
		if end > len(stream) {
			end = len(stream)
		}
		replies, err := d.Feed(stream[i:end])
		got = append(got, replies...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	require.Len(t, got, 3)
	require.Len(t, errs, 1, "帧尾错误只报告一次")
	assert.ErrorIs(t, errs[0], ErrBadTail)
	assert.True(t, got[0].Ack)
	assert.Equal(t, IndexUltrasonic, got[1].Index)
	assert.InDelta(t, 12.5, got[1].Value.Number, 0.0001)
	assert.Equal(t, float64(2), got[2].Value.Number)
	assert.Equal(t, 0, d.Buffered())
}
