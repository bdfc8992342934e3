package makeblock

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/taoyao-code/cwc-bridge/internal/bytearray"
)

// ErrPayloadTooLarge 载荷超过单字节长度字段
var ErrPayloadTooLarge = errors.New("makeblock payload too large")

// Buffer 下行命令帧构造器
// 帧格式：FF 55 LEN IDX ACTION [DEVICE] ARGS...，LEN 为其后字节数，小端，无校验
type Buffer struct {
	data *bytearray.ByteArray
}

// NewBuffer 创建带设备字节的命令
func NewBuffer(index byte, action Action, device Device) *Buffer {
	b := NewActionBuffer(index, action)
	b.data.PutByte(int(device))
	return b
}

// NewActionBuffer 创建不带设备字节的命令（RESET/START）
func NewActionBuffer(index byte, action Action) *Buffer {
	b := &Buffer{data: bytearray.New(binary.LittleEndian)}
	b.data.PutByte(int(index))
	b.data.PutByte(int(action))
	return b
}

// PutPort 写入端口
func (b *Buffer) PutPort(port byte) *Buffer { b.data.PutByte(int(port)); return b }

// PutSlot 写入插槽
func (b *Buffer) PutSlot(slot byte) *Buffer { b.data.PutByte(int(slot)); return b }

// PutByte 写入一个字节
func (b *Buffer) PutByte(v int) *Buffer { b.data.PutByte(v); return b }

// PutShort 写入小端 16 位
func (b *Buffer) PutShort(v int) *Buffer { b.data.PutShort(v); return b }

// PutFloat 写入小端 float32
func (b *Buffer) PutFloat(v float32) *Buffer { b.data.PutFloat(v); return b }

// ReadSigned 生成完整帧
func (b *Buffer) ReadSigned() ([]byte, error) {
	payload, err := b.data.Bytes()
	if err != nil {
		return nil, fmt.Errorf("makeblock frame: %w", err)
	}
	if len(payload) > 0xFF {
		return nil, fmt.Errorf("makeblock frame: %w (%d bytes)", ErrPayloadTooLarge, len(payload))
	}
	frame := make([]byte, 0, len(payload)+3)
	frame = append(frame, Header1, Header2, byte(len(payload)))
	return append(frame, payload...), nil
}
