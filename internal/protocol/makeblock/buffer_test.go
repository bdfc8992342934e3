package makeblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taoyao-code/cwc-bridge/internal/bytearray"
)

func TestBuffer_RGB(t *testing.T) {
	frame, err := NewBuffer(IndexNone, ActionRun, DeviceRGBLed).
		PutPort(0x07).PutSlot(0x02).PutByte(0).PutByte(255).PutByte(0).PutByte(0).
		ReadSigned()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0x55, 0x09, 0x00, 0x02, 0x08, 0x07, 0x02, 0x00, 0xFF, 0x00, 0x00}, frame)
}

func TestBuffer_LittleEndianShort(t *testing.T) {
	frame, err := NewBuffer(IndexNone, ActionRun, DeviceJoystick).PutShort(-100).PutShort(100).ReadSigned()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0x55, 0x07, 0x00, 0x02, 0x05, 0x9C, 0xFF, 0x64, 0x00}, frame)
}

func TestBuffer_LengthInvariant(t *testing.T) {
	for n := 0; n < 16; n++ {
		b := NewBuffer(IndexNone, ActionRun, DeviceMotor)
		for i := 0; i < n; i++ {
			b.PutByte(i)
		}
		frame, err := b.ReadSigned()
		require.NoError(t, err)
		assert.Equal(t, len(frame)-3, int(frame[2]))
	}
}

func TestBuffer_Reset(t *testing.T) {
	frame, err := NewActionBuffer(IndexNone, ActionReset).ReadSigned()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0x55, 0x02, 0x00, 0x04}, frame)
}

func TestBuffer_RangeError(t *testing.T) {
	_, err := NewBuffer(IndexNone, ActionRun, DeviceJoystick).PutShort(70000).ReadSigned()
	assert.ErrorIs(t, err, bytearray.ErrValueRange)
}
