package monitoring

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PollFunc 单次轮询：通常是向设备发出一条读取请求，结果经 Handler 以事件形式回流
type PollFunc func(ctx context.Context) error

// Channel 一路遥测通道
type Channel struct {
	Name     string
	Interval time.Duration
	Poll     PollFunc
	Disabled bool // 初始禁用，可通过 SetChannelEnabled 打开
}

type channelState struct {
	Channel
	cancel context.CancelFunc
	done   chan struct{}
}

// Monitor 基于定时器的轮询器：每路通道一个独立 ticker
// Start/Stop 幂等，作为整体启停所有通道
type Monitor struct {
	mu       sync.Mutex
	name     string
	channels map[string]*channelState
	started  bool
	ctx      context.Context
	cancel   context.CancelFunc
	log      *zap.Logger
	onPoll   func(channel string, err error)
}

// New 创建监控器
func New(name string, log *zap.Logger, chans ...Channel) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Monitor{name: name, channels: make(map[string]*channelState, len(chans)), log: log}
	for _, c := range chans {
		if c.Interval <= 0 {
			c.Interval = time.Second
		}
		m.channels[c.Name] = &channelState{Channel: c}
	}
	return m
}

// Name 监控器名称（设备族）
func (m *Monitor) Name() string { return m.name }

// OnPoll 设置每次轮询后的回调（指标统计）
func (m *Monitor) OnPoll(fn func(channel string, err error)) {
	m.mu.Lock()
	m.onPoll = fn
	m.mu.Unlock()
}

// Start 启动全部已启用通道；已启动时为空操作
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.started = true
	for _, c := range m.channels {
		if !c.Disabled {
			m.runLocked(c)
		}
	}
	m.log.Debug("monitoring started", zap.String("monitor", m.name))
}

// Stop 停止全部通道并等待退出；未启动时为空操作
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	m.cancel()
	var waits []chan struct{}
	for _, c := range m.channels {
		if c.done != nil {
			waits = append(waits, c.done)
			c.done, c.cancel = nil, nil
		}
	}
	m.mu.Unlock()

	for _, d := range waits {
		<-d
	}
	m.log.Debug("monitoring stopped", zap.String("monitor", m.name))
}

// IsStarted 是否已启动
func (m *Monitor) IsStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// SetChannelEnabled 单独启停某一路通道
func (m *Monitor) SetChannelEnabled(name string, enabled bool) error {
	m.mu.Lock()
	c, ok := m.channels[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("monitoring %s: unknown channel %q", m.name, name)
	}
	c.Disabled = !enabled
	var wait chan struct{}
	switch {
	case enabled && m.started && c.done == nil:
		m.runLocked(c)
	case !enabled && c.done != nil:
		c.cancel()
		wait = c.done
		c.done, c.cancel = nil, nil
	}
	m.mu.Unlock()
	if wait != nil {
		<-wait
	}
	return nil
}

// SetInterval 调整通道间隔，下次启动通道时生效
func (m *Monitor) SetInterval(name string, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.channels[name]
	if !ok {
		return fmt.Errorf("monitoring %s: unknown channel %q", m.name, name)
	}
	if d > 0 {
		c.Interval = d
	}
	return nil
}

// Interval 返回通道间隔
func (m *Monitor) Interval(name string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.channels[name]; ok {
		return c.Interval
	}
	return 0
}

// ActiveChannels 返回正在运行的通道名（有序）
func (m *Monitor) ActiveChannels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.channels))
	for name, c := range m.channels {
		if c.done != nil {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// CleanUp 停止全部定时器并释放回调，模式卸载时调用
func (m *Monitor) CleanUp() {
	m.Stop()
	m.mu.Lock()
	m.onPoll = nil
	m.mu.Unlock()
}

func (m *Monitor) runLocked(c *channelState) {
	ctx, cancel := context.WithCancel(m.ctx)
	done := make(chan struct{})
	c.cancel, c.done = cancel, done
	name, interval, poll := c.Name, c.Interval, c.Poll

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.poll(ctx, name, poll)
			}
		}
	}()
}

func (m *Monitor) poll(ctx context.Context, name string, poll PollFunc) {
	if poll == nil {
		return
	}
	err := poll(ctx)
	if err != nil && ctx.Err() == nil {
		m.log.Debug("monitoring poll failed",
			zap.String("monitor", m.name),
			zap.String("channel", name),
			zap.Error(err))
	}
	m.mu.Lock()
	hook := m.onPoll
	m.mu.Unlock()
	if hook != nil {
		hook(name, err)
	}
}
