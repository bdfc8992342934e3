package ev3

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/taoyao-code/cwc-bridge/internal/bytearray"
)

var (
	// ErrTooManyGlobals 全局变量区最多 1019 字节
	ErrTooManyGlobals = errors.New("ev3 global variable space exceeded")
	// ErrFrameTooLarge 帧长超过 16 位长度字段
	ErrFrameTooLarge = errors.New("ev3 frame too large")
)

const maxGlobals = 1019

// Buffer 直接命令构造器
// 帧格式：LEN(2) COUNTER(2) TYPE(1) VARS(2) OPCODES...
// LEN 为其后全部字节数，VARS 低 10 位为全局变量字节数，高 6 位为局部变量字节数
type Buffer struct {
	ops     *bytearray.ByteArray
	globals int
	err     error
}

// NewBuffer 创建直接命令
func NewBuffer() *Buffer {
	return &Buffer{ops: bytearray.New(binary.LittleEndian)}
}

// Op 写入操作码或子命令
func (b *Buffer) Op(code byte) *Buffer { b.ops.PutByte(int(code)); return b }

// LC0 短常量（-32..31），单字节
func (b *Buffer) LC0(v int) *Buffer {
	if v < -32 || v > 31 {
		return b.fail(fmt.Errorf("ev3 LC0 value %d out of range: %w", v, bytearray.ErrValueRange))
	}
	b.ops.PutByte(v & 0x3F)
	return b
}

// LC1 单字节常量
func (b *Buffer) LC1(v int) *Buffer {
	b.ops.PutByte(int(lc1))
	b.ops.PutByte(v)
	return b
}

// LC2 双字节常量
func (b *Buffer) LC2(v int) *Buffer {
	b.ops.PutByte(int(lc2))
	b.ops.PutShort(v)
	return b
}

// LC4 四字节常量
func (b *Buffer) LC4(v int64) *Buffer {
	b.ops.PutByte(int(lc4))
	b.ops.PutInt(v)
	return b
}

// LCS 零结尾字符串常量
func (b *Buffer) LCS(s string) *Buffer {
	b.ops.PutByte(int(lcs))
	b.ops.PutString(s)
	b.ops.PutByte(0)
	return b
}

// Value 按取值范围选择最短的常量编码
func (b *Buffer) Value(v int) *Buffer {
	switch {
	case v >= -31 && v <= 31:
		return b.LC0(v)
	case v >= -127 && v <= 127:
		return b.LC1(v)
	case v >= -32767 && v <= 32767:
		return b.LC2(v)
	}
	return b.LC4(int64(v))
}

// Global 分配 size 字节全局变量并写入其引用，返回偏移
func (b *Buffer) Global(size int) int {
	offset := b.globals
	b.globals += size
	if b.globals > maxGlobals {
		b.fail(ErrTooManyGlobals)
		return offset
	}
	b.GV(offset)
	return offset
}

// GV 写入全局变量引用
func (b *Buffer) GV(offset int) *Buffer {
	if offset < 32 {
		b.ops.PutByte(int(gv0) | offset)
		return b
	}
	b.ops.PutByte(int(gv1))
	b.ops.PutByte(offset)
	return b
}

// Globals 已分配的全局变量字节数（即应答数据长度）
func (b *Buffer) Globals() int { return b.globals }

func (b *Buffer) fail(err error) *Buffer {
	if b.err == nil {
		b.err = err
	}
	return b
}

// ReadSigned 生成带长度与序号的完整帧；存在全局变量时请求应答
func (b *Buffer) ReadSigned(counter uint16) ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	ops, err := b.ops.Bytes()
	if err != nil {
		return nil, fmt.Errorf("ev3 direct command: %w", err)
	}
	n := 2 + 1 + 2 + len(ops)
	if n > math.MaxUint16 {
		return nil, ErrFrameTooLarge
	}
	typ := DirectCommandNoReply
	if b.globals > 0 {
		typ = DirectCommandReply
	}
	// 不使用局部变量，高 6 位恒为 0
	vars := uint16(b.globals & 0x3FF)

	le := binary.LittleEndian
	frame := make([]byte, 0, n+2)
	frame = le.AppendUint16(frame, uint16(n))
	frame = le.AppendUint16(frame, counter)
	frame = append(frame, typ)
	frame = le.AppendUint16(frame, vars)
	return append(frame, ops...), nil
}

// NeedsReply 是否请求应答
func (b *Buffer) NeedsReply() bool { return b.globals > 0 }
