package ev3

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrShortFrame = errors.New("ev3 short frame")
	ErrBadType    = errors.New("ev3 unexpected reply type")
)

// maxReplyLen 应答最大长度（全局变量上限 + 头部）
const maxReplyLen = maxGlobals + 3

// Reply 直接命令应答：LEN(2) COUNTER(2) TYPE(1) GLOBALS...
type Reply struct {
	Counter uint16
	OK      bool
	Data    []byte
}

// ParseReply 解析一帧应答
func ParseReply(raw []byte) (*Reply, error) {
	if len(raw) < 5 {
		return nil, ErrShortFrame
	}
	n := int(binary.LittleEndian.Uint16(raw[0:2]))
	if n < 3 || len(raw) != n+2 {
		return nil, fmt.Errorf("%w: header says %d, got %d", ErrShortFrame, n, len(raw)-2)
	}
	typ := raw[4]
	if typ != DirectReply && typ != DirectReplyError {
		return nil, fmt.Errorf("%w: 0x%02X", ErrBadType, typ)
	}
	return &Reply{
		Counter: binary.LittleEndian.Uint16(raw[2:4]),
		OK:      typ == DirectReply,
		Data:    append([]byte(nil), raw[5:]...),
	}, nil
}

// StreamDecoder 按长度前缀切分应答
type StreamDecoder struct {
	buf []byte
}

// NewStreamDecoder 创建解码器
func NewStreamDecoder() *StreamDecoder { return &StreamDecoder{} }

// Feed 追加数据并解出完整应答；长度或类型异常时逐字节滑动
// 返回本次遇到的第一个解析错误
func (d *StreamDecoder) Feed(p []byte) ([]*Reply, error) {
	d.buf = append(d.buf, p...)
	var out []*Reply
	var first error
	for len(d.buf) >= 2 {
		n := int(binary.LittleEndian.Uint16(d.buf[0:2]))
		if n < 3 || n > maxReplyLen {
			d.buf = d.buf[1:]
			continue
		}
		if len(d.buf) < n+2 {
			break
		}
		r, err := ParseReply(d.buf[:n+2])
		if err != nil {
			if first == nil {
				first = err
			}
			d.buf = d.buf[1:]
			continue
		}
		out = append(out, r)
		d.buf = d.buf[n+2:]
	}
	return out, first
}

// Reset 丢弃缓冲
func (d *StreamDecoder) Reset() { d.buf = d.buf[:0] }

// Buffered 当前缓冲字节数
func (d *StreamDecoder) Buffered() int { return len(d.buf) }
