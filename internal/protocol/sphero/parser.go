package sphero

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrShortFrame   = errors.New("sphero short frame")
	ErrInvalidStart = errors.New("sphero invalid start of packet")
	ErrBadChecksum  = errors.New("sphero bad checksum")
	ErrBadLength    = errors.New("sphero bad length")
)

// Frame 上行帧：同步应答或异步消息
// 同步应答：FF FF MRSP SEQ DLEN data CHK
// 异步消息：FF FE ID DLEN_MSB DLEN_LSB data CHK
type Frame struct {
	Async    bool
	Code     byte         // 同步应答为 MRSP，异步消息为 ID
	Callback CallbackType // 仅同步应答
	Data     []byte
}

// OK 同步应答是否成功
func (f *Frame) OK() bool { return !f.Async && f.Code == RespOK }

// frameLen 根据头部计算整帧长度；数据不足返回 -1
func frameLen(b []byte) int {
	if len(b) < 5 {
		return -1
	}
	if b[1] == SOP2Answer {
		return 5 + int(b[4])
	}
	return 5 + int(binary.BigEndian.Uint16(b[3:5]))
}

// Parse 解析一帧（严格校验起始字节、长度与校验和）
func Parse(raw []byte) (*Frame, error) {
	if len(raw) < 6 {
		return nil, ErrShortFrame
	}
	if raw[0] != SOP1 || (raw[1] != SOP2Answer && raw[1] != SOP2NoAnswer) {
		return nil, ErrInvalidStart
	}
	n := frameLen(raw)
	if n != len(raw) || n < 6 {
		return nil, fmt.Errorf("%w: header says %d, got %d", ErrBadLength, n, len(raw))
	}
	if Checksum(raw[2:n-1]) != raw[n-1] {
		return nil, ErrBadChecksum
	}
	f := &Frame{Async: raw[1] == SOP2NoAnswer, Code: raw[2]}
	if !f.Async {
		f.Callback = CallbackType(raw[3])
	}
	data := raw[5 : n-1]
	f.Data = append([]byte(nil), data...)
	return f, nil
}

// StreamDecoder 处理半包/粘包
type StreamDecoder struct {
	buf         []byte
	maxFrameLen int
}

// NewStreamDecoder 创建流式解码器
func NewStreamDecoder(maxFrameLen int) *StreamDecoder {
	if maxFrameLen <= 0 {
		maxFrameLen = 1024
	}
	return &StreamDecoder{maxFrameLen: maxFrameLen}
}

// Feed 追加数据并尽可能解出多帧，校验失败的数据逐字节滑动重新同步
// 返回本次遇到的第一个解析错误，错误之后解出的帧照常返回
func (d *StreamDecoder) Feed(p []byte) ([]*Frame, error) {
	d.buf = append(d.buf, p...)
	var frames []*Frame
	var first error
	fail := func(err error) {
		if first == nil {
			first = err
		}
		d.buf = d.buf[1:]
	}
	for {
		start := indexStart(d.buf)
		if start < 0 {
			// 保留最后一个字节，可能是下一帧的 SOP1
			if n := len(d.buf); n > 0 && d.buf[n-1] == SOP1 {
				d.buf = d.buf[n-1:]
			} else {
				d.buf = d.buf[:0]
			}
			return frames, first
		}
		d.buf = d.buf[start:]
		n := frameLen(d.buf)
		if n < 0 {
			return frames, first
		}
		if n < 6 || n > d.maxFrameLen {
			fail(fmt.Errorf("%w: %d", ErrBadLength, n))
			continue
		}
		if len(d.buf) < n {
			return frames, first
		}
		f, err := Parse(d.buf[:n])
		if err != nil {
			fail(err)
			continue
		}
		frames = append(frames, f)
		d.buf = d.buf[n:]
	}
}

// Reset 丢弃缓冲
func (d *StreamDecoder) Reset() { d.buf = d.buf[:0] }

// Buffered 当前缓冲字节数
func (d *StreamDecoder) Buffered() int { return len(d.buf) }

func indexStart(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == SOP1 && (b[i+1] == SOP2Answer || b[i+1] == SOP2NoAnswer) {
			return i
		}
	}
	return -1
}
