// Package aiy 树莓派/AIY 套件控制通道：通过 WebSocket 发送 JSON 文本消息
package aiy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/taoyao-code/cwc-bridge/internal/event"
	"github.com/taoyao-code/cwc-bridge/internal/protocol/adapter"
	"go.uber.org/zap"
)

// Family 设备族名称
const Family = "aiy"

// 消息类型
const (
	MsgRun    = "run"
	MsgStop   = "stop"
	MsgPing   = "ping"
	MsgPong   = "pong"
	MsgOutput = "output"
	MsgError  = "error"
	MsgExit   = "exit"
)

// 事件类型
const (
	EventOutput event.Type = "aiy.output"
	EventError  event.Type = "aiy.error"
	EventExit   event.Type = "aiy.exit"
	EventPong   event.Type = "aiy.pong"
)

// Message 控制通道消息
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Exit 程序退出
type Exit struct {
	Code int `json:"code"`
}

// Sender 设备发送能力
type Sender interface {
	Send(ctx context.Context, frame []byte) error
}

// API AIY 控制命令
type API struct {
	sender Sender
}

// NewAPI 创建 API
func NewAPI(sender Sender) *API { return &API{sender: sender} }

func (a *API) send(ctx context.Context, typ string, data interface{}) error {
	msg := Message{Type: typ}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("aiy %s: %w", typ, err)
		}
		msg.Data = raw
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("aiy %s: %w", typ, err)
	}
	return a.sender.Send(ctx, frame)
}

// Run 在设备上执行 Python 代码
func (a *API) Run(ctx context.Context, code string) error {
	if code == "" {
		return errors.New("aiy run: empty code")
	}
	return a.send(ctx, MsgRun, code)
}

// Stop 终止正在执行的程序
func (a *API) Stop(ctx context.Context) error { return a.send(ctx, MsgStop, nil) }

// Ping 连通性检查
func (a *API) Ping(ctx context.Context) error { return a.send(ctx, MsgPing, nil) }

// Handler 解析设备上行 JSON 消息
type Handler struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	bus    *event.Bus
	source string
	log    *zap.Logger
}

var _ adapter.Adapter = (*Handler)(nil)

// NewHandler 创建处理器
func NewHandler(bus *event.Bus, source string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{bus: bus, source: source, log: log}
}

// Sniff JSON 对象
func (h *Handler) Sniff(prefix []byte) bool {
	p := bytes.TrimLeft(prefix, " \t\r\n")
	return len(p) > 0 && p[0] == '{'
}

// ProcessBytes 解码完整 JSON 对象；不完整的尾部留待下次
func (h *Handler) ProcessBytes(p []byte) error {
	h.mu.Lock()
	h.buf.Write(p)
	var msgs []Message
	var decodeErr error
	for {
		dec := json.NewDecoder(bytes.NewReader(h.buf.Bytes()))
		var m Message
		if err := dec.Decode(&m); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			// 非法数据整体丢弃
			decodeErr = fmt.Errorf("aiy decode: %w", err)
			h.buf.Reset()
			break
		}
		h.buf.Next(int(dec.InputOffset()))
		msgs = append(msgs, m)
	}
	h.mu.Unlock()

	for _, m := range msgs {
		h.dispatch(m)
	}
	return decodeErr
}

// Reset 丢弃缓冲
func (h *Handler) Reset() {
	h.mu.Lock()
	h.buf.Reset()
	h.mu.Unlock()
}

func (h *Handler) dispatch(m Message) {
	switch m.Type {
	case MsgOutput, MsgError:
		var text string
		if err := json.Unmarshal(m.Data, &text); err != nil {
			text = string(m.Data)
		}
		typ := EventOutput
		if m.Type == MsgError {
			typ = EventError
		}
		h.bus.Publish(event.New(typ, text, h.source))
	case MsgExit:
		var e Exit
		_ = json.Unmarshal(m.Data, &e)
		h.bus.Publish(event.New(EventExit, e, h.source))
	case MsgPong:
		h.bus.Publish(event.New(EventPong, nil, h.source))
	default:
		h.log.Debug("aiy unhandled message", zap.String("type", m.Type))
	}
}
