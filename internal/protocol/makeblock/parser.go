package makeblock

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrShortFrame   = errors.New("makeblock short frame")
	ErrInvalidStart = errors.New("makeblock invalid header")
	ErrBadTail      = errors.New("makeblock bad tail")
	ErrUnknownType  = errors.New("makeblock unknown value type")
)

// Value 应答数据
type Value struct {
	Type   ValueType `json:"type"`
	Number float64   `json:"number"`
	Text   string    `json:"text,omitempty"`
}

// Reply 上行应答帧
// 数据应答：FF 55 IDX TYPE VALUE 0D 0A
// 确认：FF 55 0D 0A
type Reply struct {
	Ack   bool
	Index byte
	Value Value
}

// valueLen 返回数据部分长度；字符串需要长度字节，不足返回 -1
func valueLen(t ValueType, b []byte) (int, error) {
	switch t {
	case TypeByte:
		return 1, nil
	case TypeShort:
		return 2, nil
	case TypeFloat, TypeDouble, TypeLong:
		return 4, nil
	case TypeString:
		if len(b) < 1 {
			return -1, nil
		}
		return 1 + int(b[0]), nil
	}
	return 0, fmt.Errorf("%w: 0x%02X", ErrUnknownType, byte(t))
}

func decodeValue(t ValueType, b []byte) Value {
	le := binary.LittleEndian
	v := Value{Type: t}
	switch t {
	case TypeByte:
		v.Number = float64(b[0])
	case TypeShort:
		v.Number = float64(int16(le.Uint16(b)))
	case TypeFloat, TypeDouble:
		// Arduino 的 double 与 float 同为 32 位
		v.Number = float64(math.Float32frombits(le.Uint32(b)))
	case TypeLong:
		v.Number = float64(int32(le.Uint32(b)))
	case TypeString:
		v.Text = string(b[1:])
	}
	return v
}

// frameLen 计算整帧长度；数据不足返回 -1
func frameLen(b []byte) (int, error) {
	if len(b) < 4 {
		return -1, nil
	}
	if b[2] == Tail1 && b[3] == Tail2 {
		return 4, nil
	}
	if len(b) < 5 {
		return -1, nil
	}
	n, err := valueLen(ValueType(b[3]), b[4:])
	if err != nil || n < 0 {
		return n, err
	}
	return 4 + n + 2, nil
}

// Parse 解析一帧
func Parse(raw []byte) (*Reply, error) {
	if len(raw) < 4 {
		return nil, ErrShortFrame
	}
	if raw[0] != Header1 || raw[1] != Header2 {
		return nil, ErrInvalidStart
	}
	n, err := frameLen(raw)
	if err != nil {
		return nil, err
	}
	if n < 0 || len(raw) < n {
		return nil, ErrShortFrame
	}
	if raw[n-2] != Tail1 || raw[n-1] != Tail2 {
		return nil, ErrBadTail
	}
	if n == 4 {
		return &Reply{Ack: true}, nil
	}
	t := ValueType(raw[3])
	return &Reply{Index: raw[2], Value: decodeValue(t, raw[4:n-2])}, nil
}

// StreamDecoder 处理半包/粘包
type StreamDecoder struct {
	buf []byte
}

// NewStreamDecoder 创建流式解码器
func NewStreamDecoder() *StreamDecoder { return &StreamDecoder{} }

// Feed 追加数据并解出完整应答，异常数据逐字节滑动
// 返回本次遇到的第一个解析错误
func (d *StreamDecoder) Feed(p []byte) ([]*Reply, error) {
	d.buf = append(d.buf, p...)
	var out []*Reply
	var first error
	fail := func(err error) {
		if first == nil {
			first = err
		}
		d.buf = d.buf[1:]
	}
	for {
		start := indexHeader(d.buf)
		if start < 0 {
			if n := len(d.buf); n > 0 && d.buf[n-1] == Header1 {
				d.buf = d.buf[n-1:]
			} else {
				d.buf = d.buf[:0]
			}
			return out, first
		}
		d.buf = d.buf[start:]
		n, err := frameLen(d.buf)
		if err != nil {
			fail(err)
			continue
		}
		if n < 0 || len(d.buf) < n {
			return out, first
		}
		r, err := Parse(d.buf[:n])
		if err != nil {
			fail(err)
			continue
		}
		out = append(out, r)
		d.buf = d.buf[n:]
	}
}

// Reset 丢弃缓冲
func (d *StreamDecoder) Reset() { d.buf = d.buf[:0] }

// Buffered 当前缓冲字节数
func (d *StreamDecoder) Buffered() int { return len(d.buf) }

func indexHeader(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == Header1 && b[i+1] == Header2 {
			return i
		}
	}
	return -1
}
