package makeblock

import (
	"context"
	"sync"

	"github.com/taoyao-code/cwc-bridge/internal/event"
	"github.com/taoyao-code/cwc-bridge/internal/protocol/adapter"
	"go.uber.org/zap"
)

// Sender 设备发送能力
type Sender interface {
	Send(ctx context.Context, frame []byte) error
}

// RouteFunc 将应答转换为事件；返回 false 表示忽略
type RouteFunc func(v Value, source string) (event.Event, bool)

// Routes 请求序号 → 事件转换
type Routes map[byte]RouteFunc

// Handler 上行应答处理：按请求序号路由为设备族事件
type Handler struct {
	mu      sync.Mutex
	decoder *StreamDecoder
	routes  Routes
	bus     *event.Bus
	source  string
	log     *zap.Logger
}

var _ adapter.Adapter = (*Handler)(nil)

// NewHandler 创建处理器
func NewHandler(bus *event.Bus, source string, routes Routes, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{decoder: NewStreamDecoder(), routes: routes, bus: bus, source: source, log: log}
}

// Sniff 判断前缀是否为 Makeblock 帧
func (h *Handler) Sniff(prefix []byte) bool {
	return len(prefix) >= 2 && prefix[0] == Header1 && prefix[1] == Header2
}

// ProcessBytes 解码并分发；返回丢弃数据的原因，合法应答照常分发
func (h *Handler) ProcessBytes(p []byte) error {
	h.mu.Lock()
	replies, err := h.decoder.Feed(p)
	h.mu.Unlock()
	for _, r := range replies {
		if r.Ack {
			continue
		}
		route, ok := h.routes[r.Index]
		if !ok {
			h.log.Debug("makeblock unrouted reply", zap.Uint8("index", r.Index), zap.Float64("value", r.Value.Number))
			continue
		}
		if ev, ok := route(r.Value, h.source); ok {
			h.bus.Publish(ev)
		}
	}
	return err
}

// Reset 丢弃半包
func (h *Handler) Reset() {
	h.mu.Lock()
	h.decoder.Reset()
	h.mu.Unlock()
}
