package bytearray

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrValueRange 写入值超出声明的位宽
var ErrValueRange = errors.New("value out of range")

// RangeError 记录第一个越界写入
type RangeError struct {
	Offset int   // 写入位置（字节偏移）
	Bits   int   // 声明位宽：8/16/32
	Value  int64 // 原始值
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("bytearray: value %d does not fit in %d bits at offset %d", e.Value, e.Bits, e.Offset)
}

// Unwrap 支持 errors.Is(err, ErrValueRange)
func (e *RangeError) Unwrap() error { return ErrValueRange }

// ByteArray 只追加的字节缓冲
// 所有写入都会校验位宽：8位接受 -128..255，16位接受 -32768..65535，32位接受 int32/uint32 范围。
// 负数按补码写入。第一次越界后错误被保留，后续写入全部忽略，由 Bytes 返回。
type ByteArray struct {
	data  []byte
	order binary.AppendByteOrder
	err   error
}

// New 创建字节缓冲，order 为 nil 时默认小端
func New(order binary.AppendByteOrder) *ByteArray {
	if order == nil {
		order = binary.LittleEndian
	}
	return &ByteArray{data: make([]byte, 0, 16), order: order}
}

func (b *ByteArray) fail(bits int, v int64) {
	if b.err == nil {
		b.err = &RangeError{Offset: len(b.data), Bits: bits, Value: v}
	}
}

// PutByte 写入一个字节
func (b *ByteArray) PutByte(v int) {
	if b.err != nil {
		return
	}
	if v < math.MinInt8 || v > math.MaxUint8 {
		b.fail(8, int64(v))
		return
	}
	b.data = append(b.data, byte(v))
}

// PutByteOr 写入一个字节，越界时写入 def
func (b *ByteArray) PutByteOr(v int, def byte) {
	if b.err != nil {
		return
	}
	if v < math.MinInt8 || v > math.MaxUint8 {
		b.data = append(b.data, def)
		return
	}
	b.data = append(b.data, byte(v))
}

// PutShort 按缓冲字节序写入 16 位整数
func (b *ByteArray) PutShort(v int) {
	if b.err != nil {
		return
	}
	if v < math.MinInt16 || v > math.MaxUint16 {
		b.fail(16, int64(v))
		return
	}
	b.data = b.order.AppendUint16(b.data, uint16(v))
}

// PutInt 按缓冲字节序写入 32 位整数
func (b *ByteArray) PutInt(v int64) {
	if b.err != nil {
		return
	}
	if v < math.MinInt32 || v > math.MaxUint32 {
		b.fail(32, v)
		return
	}
	b.data = b.order.AppendUint32(b.data, uint32(v))
}

// PutFloat 按缓冲字节序写入 IEEE754 单精度浮点
func (b *ByteArray) PutFloat(v float32) {
	if b.err != nil {
		return
	}
	b.data = b.order.AppendUint32(b.data, math.Float32bits(v))
}

// PutString 写入原始字符串字节（不含结束符）
func (b *ByteArray) PutString(s string) {
	if b.err != nil {
		return
	}
	b.data = append(b.data, s...)
}

// PutBytes 追加原始字节
func (b *ByteArray) PutBytes(p []byte) {
	if b.err != nil {
		return
	}
	b.data = append(b.data, p...)
}

// Len 已写入字节数
func (b *ByteArray) Len() int { return len(b.data) }

// Err 返回第一个写入错误
func (b *ByteArray) Err() error { return b.err }

// Bytes 返回写入内容的副本
func (b *ByteArray) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, nil
}
