package sphero

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/taoyao-code/cwc-bridge/internal/bytearray"
)

// ErrPayloadTooLarge 载荷超过单字节长度字段
var ErrPayloadTooLarge = errors.New("sphero payload too large")

// maxPayload 长度字段为 payload+1，需要放进一个字节
const maxPayload = 0xFE

// Buffer 下行命令帧构造器
// 帧格式：SOP1(0xFF) SOP2 DID CID SEQ(callbackType) DLEN payload CHK
// DLEN = payload 长度 + 1（包含校验字节）
// CHK = (DID+CID+SEQ+DLEN+payload 之和 & 0xFF) ^ 0xFF
type Buffer struct {
	cmd      CommandID
	callback CallbackType
	data     *bytearray.ByteArray
}

// NewBuffer 创建命令帧，Sphero 多字节字段为大端
func NewBuffer(cmd CommandID, cb CallbackType) *Buffer {
	return &Buffer{cmd: cmd, callback: cb, data: bytearray.New(binary.BigEndian)}
}

// PutByte 写入一个字节
func (b *Buffer) PutByte(v int) *Buffer { b.data.PutByte(v); return b }

// PutShort 写入大端 16 位
func (b *Buffer) PutShort(v int) *Buffer { b.data.PutShort(v); return b }

// PutInt 写入大端 32 位
func (b *Buffer) PutInt(v int64) *Buffer { b.data.PutInt(v); return b }

// PutBool 写入 0x01/0x00
func (b *Buffer) PutBool(v bool) *Buffer {
	if v {
		return b.PutByte(0x01)
	}
	return b.PutByte(0x00)
}

// PutString 写入字符串字节
func (b *Buffer) PutString(s string) *Buffer { b.data.PutString(s); return b }

// CommandID 返回帧命令
func (b *Buffer) CommandID() CommandID { return b.cmd }

// ReadSigned 生成带校验和的完整帧
func (b *Buffer) ReadSigned() ([]byte, error) {
	payload, err := b.data.Bytes()
	if err != nil {
		return nil, fmt.Errorf("sphero %s: %w", b.cmd, err)
	}
	if len(payload) > maxPayload {
		return nil, fmt.Errorf("sphero %s: %w (%d bytes)", b.cmd, ErrPayloadTooLarge, len(payload))
	}
	sop2 := SOP2NoAnswer
	if b.callback != CallbackNone {
		sop2 = SOP2Answer
	}
	frame := make([]byte, 0, len(payload)+7)
	frame = append(frame, SOP1, sop2, b.cmd.DID, b.cmd.CID, byte(b.callback), byte(len(payload)+1))
	frame = append(frame, payload...)
	frame = append(frame, Checksum(frame[2:]))
	return frame, nil
}

// Checksum Orbotix 校验：累加取低8位后按位取反
func Checksum(data []byte) byte {
	var sum byte
	for _, v := range data {
		sum += v
	}
	return sum ^ 0xFF
}
