package sphero

import (
	"sync"

	"github.com/taoyao-code/cwc-bridge/internal/event"
	"github.com/taoyao-code/cwc-bridge/internal/protocol/adapter"
	"go.uber.org/zap"
)

// Handler 上行数据处理：流式解码后转换为事件发布到总线
type Handler struct {
	mu      sync.Mutex
	decoder *StreamDecoder
	bus     *event.Bus
	source  string
	log     *zap.Logger
}

var _ adapter.Adapter = (*Handler)(nil)

// NewHandler 创建处理器，source 通常为设备ID
func NewHandler(bus *event.Bus, source string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{decoder: NewStreamDecoder(0), bus: bus, source: source, log: log}
}

// Sniff 判断前缀是否为 Sphero 帧
func (h *Handler) Sniff(prefix []byte) bool {
	return len(prefix) >= 2 && prefix[0] == SOP1 && (prefix[1] == SOP2Answer || prefix[1] == SOP2NoAnswer)
}

// ProcessBytes 切分帧并分发；返回丢弃数据的原因（如 ErrBadChecksum），合法帧照常分发
func (h *Handler) ProcessBytes(p []byte) error {
	h.mu.Lock()
	frames, err := h.decoder.Feed(p)
	h.mu.Unlock()
	for _, f := range frames {
		h.dispatch(f)
	}
	return err
}

// Reset 丢弃半包
func (h *Handler) Reset() {
	h.mu.Lock()
	h.decoder.Reset()
	h.mu.Unlock()
}

func (h *Handler) dispatch(f *Frame) {
	if f.Async {
		h.dispatchAsync(f)
		return
	}
	if f.Code != RespOK {
		h.bus.Publish(Error(ResponseError{Code: f.Code, Callback: f.Callback}, h.source))
		return
	}
	switch f.Callback {
	case CallbackNone:
		// 普通命令确认
	case CallbackPing:
		h.bus.Publish(Pong(h.source))
	case CallbackLocation:
		loc, vel, sog, err := decodeLocator(f.Data)
		if err != nil {
			h.log.Debug("sphero locator decode failed", zap.Error(err))
			return
		}
		h.bus.Publish(LocationChanged(loc, h.source))
		h.bus.Publish(VelocityChanged(vel, h.source))
		h.bus.Publish(SpeedChanged(sog, h.source))
	case CallbackRGB:
		if len(f.Data) < 3 {
			return
		}
		h.bus.Publish(RGBChanged(RGB{R: f.Data[0], G: f.Data[1], B: f.Data[2]}, h.source))
	case CallbackPowerState:
		ps, err := decodePowerState(f.Data)
		if err != nil {
			h.log.Debug("sphero power state decode failed", zap.Error(err))
			return
		}
		h.bus.Publish(PowerStateChanged(ps, h.source))
	case CallbackVersion:
		v, err := decodeVersion(f.Data)
		if err != nil {
			h.log.Debug("sphero version decode failed", zap.Error(err))
			return
		}
		h.bus.Publish(VersionReceived(v, h.source))
	default:
		h.log.Debug("sphero unhandled response", zap.Uint8("callback", uint8(f.Callback)))
	}
}

func (h *Handler) dispatchAsync(f *Frame) {
	switch f.Code {
	case AsyncCollision:
		c, err := decodeCollision(f.Data)
		if err != nil {
			h.log.Debug("sphero collision decode failed", zap.Error(err))
			return
		}
		h.bus.Publish(CollisionDetected(c, h.source))
	case AsyncPowerNotification:
		if len(f.Data) < 1 {
			return
		}
		state, ok := powerStates[f.Data[0]]
		if !ok {
			state = "unknown"
		}
		h.bus.Publish(PowerStateChanged(PowerState{State: state}, h.source))
	default:
		h.log.Debug("sphero unhandled async message", zap.Uint8("id", f.Code))
	}
}
