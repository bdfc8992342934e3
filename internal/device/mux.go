package device

import (
	"sync"

	"github.com/taoyao-code/cwc-bridge/internal/protocol/adapter"
	"go.uber.org/zap"
)

// Mux 多协议复用器：首包前缀初判 -> 绑定处理器 -> 直通
// 用于族未知的设备（例如串口扫描无法从名称判断）
type Mux struct {
	mu       sync.Mutex
	adapters []adapter.Adapter
	decided  adapter.Adapter
	onDecide func(a adapter.Adapter)
	log      *zap.Logger
}

var _ adapter.Adapter = (*Mux)(nil)

// NewMux 创建复用器，按顺序尝试 Sniff
func NewMux(log *zap.Logger, adapters ...adapter.Adapter) *Mux {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mux{adapters: adapters, log: log}
}

// OnDecide 协议识别后回调
func (m *Mux) OnDecide(fn func(a adapter.Adapter)) {
	m.mu.Lock()
	m.onDecide = fn
	m.mu.Unlock()
}

// Decided 已识别的处理器，未识别返回 nil
func (m *Mux) Decided() adapter.Adapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decided
}

// Sniff 任一处理器识别即可
func (m *Mux) Sniff(prefix []byte) bool {
	for _, a := range m.adapters {
		if a.Sniff(prefix) {
			return true
		}
	}
	return false
}

// ProcessBytes 首次识别后固定处理路径；未识别时投递给全部处理器
func (m *Mux) ProcessBytes(p []byte) error {
	m.mu.Lock()
	a := m.decided
	var hook func(adapter.Adapter)
	if a == nil {
		pref := p
		if len(pref) > 8 {
			pref = pref[:8]
		}
		for _, c := range m.adapters {
			if c.Sniff(pref) {
				a = c
				m.decided = c
				hook = m.onDecide
				break
			}
		}
	}
	m.mu.Unlock()

	if a != nil {
		if hook != nil {
			m.log.Info("protocol identified", zap.Int("data_len", len(p)))
			hook(a)
		}
		return a.ProcessBytes(p)
	}
	m.log.Debug("unknown protocol, trying all adapters", zap.Int("data_len", len(p)))
	var first error
	for _, c := range m.adapters {
		if err := c.ProcessBytes(p); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Reset 清除识别结果
func (m *Mux) Reset() {
	m.mu.Lock()
	m.decided = nil
	adapters := m.adapters
	m.mu.Unlock()
	for _, a := range adapters {
		a.Reset()
	}
}
