package ev3

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/taoyao-code/cwc-bridge/internal/event"
	"github.com/taoyao-code/cwc-bridge/internal/protocol/adapter"
	"go.uber.org/zap"
)

// Handler 应答处理：按序号找到请求并解码全局变量区
type Handler struct {
	mu      sync.Mutex
	decoder *StreamDecoder
	pending *Pending
	bus     *event.Bus
	source  string
	log     *zap.Logger
}

var _ adapter.Adapter = (*Handler)(nil)

// NewHandler 创建处理器，pending 与 API 共享
func NewHandler(bus *event.Bus, source string, pending *Pending, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{decoder: NewStreamDecoder(), pending: pending, bus: bus, source: source, log: log}
}

// Sniff EV3 应答没有固定帧头，按长度与类型字节判断
func (h *Handler) Sniff(prefix []byte) bool {
	if len(prefix) < 5 {
		return false
	}
	n := int(binary.LittleEndian.Uint16(prefix[0:2]))
	return n >= 3 && n <= maxReplyLen && (prefix[4] == DirectReply || prefix[4] == DirectReplyError)
}

// ProcessBytes 解码并分发；返回丢弃数据的原因，合法应答照常分发
func (h *Handler) ProcessBytes(p []byte) error {
	h.mu.Lock()
	replies, err := h.decoder.Feed(p)
	h.mu.Unlock()
	for _, r := range replies {
		h.dispatch(r)
	}
	return err
}

// Reset 丢弃半包
func (h *Handler) Reset() {
	h.mu.Lock()
	h.decoder.Reset()
	h.mu.Unlock()
}

func (h *Handler) dispatch(r *Reply) {
	req, ok := h.pending.take(r.Counter)
	if !r.OK {
		h.bus.Publish(Error(ReplyError{Counter: r.Counter}, h.source))
		return
	}
	if !ok {
		h.log.Debug("ev3 unexpected reply", zap.Uint16("counter", r.Counter))
		return
	}
	switch req.kind {
	case replyDeviceTypes:
		if len(r.Data) < 2*len(AllInputs) {
			h.log.Debug("ev3 short device types reply", zap.Int("len", len(r.Data)))
			return
		}
		types := make(DeviceTypes, 0, len(AllInputs))
		for i, port := range AllInputs {
			t := DeviceType(r.Data[2*i])
			types = append(types, DeviceInfo{Port: port, Type: t, Name: t.String(), Mode: int(r.Data[2*i+1])})
		}
		h.bus.Publish(DeviceTypesChanged(types, h.source))
	case replySensor:
		if len(r.Data) < 4 {
			return
		}
		v := math.Float32frombits(binary.LittleEndian.Uint32(r.Data[0:4]))
		h.bus.Publish(SensorChanged(SensorValue{Port: req.input, Mode: req.mode, Value: v}, h.source))
	case replyMotorPosition:
		if len(r.Data) < 4 {
			return
		}
		deg := int32(binary.LittleEndian.Uint32(r.Data[0:4]))
		h.bus.Publish(MotorPositionChanged(MotorPosition{Port: req.output, Degrees: deg}, h.source))
	}
}
