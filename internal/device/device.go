package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/taoyao-code/cwc-bridge/internal/event"
	"github.com/taoyao-code/cwc-bridge/internal/protocol/adapter"
	"go.uber.org/zap"
)

// State 连接状态
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText 以名称序列化
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// EventStateChanged 设备状态变化
const EventStateChanged event.Type = "device.state_changed"

// StateChange 状态变化载荷
type StateChange struct {
	Device   Info   `json:"device"`
	State    State  `json:"state"`
	Previous State  `json:"previous"`
	Reason   string `json:"reason,omitempty"`
}

// Hooks 收发钩子（指标、帧日志）
type Hooks struct {
	OnSend    func(d *Device, frame []byte, err error)
	OnReceive func(d *Device, p []byte)
	// 上行数据解码失败
	OnDecodeError func(d *Device, err error)
}

// Device 单个设备：状态机 + 串行发送 + 上行分发
type Device struct {
	info  Info
	link  Link
	bus   *event.Bus
	log   *zap.Logger
	hooks Hooks

	mu      sync.Mutex
	state   State
	adapter adapter.Adapter
	readWG  sync.WaitGroup

	// 连接中的 Open，Disconnect 可取消
	connectCancel context.CancelFunc
	connectDone   chan struct{}
	aborted       bool

	sendMu sync.Mutex
}

// Option 设备选项
type Option func(*Device)

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.log = l
		}
	}
}

// WithHooks 设置收发钩子
func WithHooks(h Hooks) Option {
	return func(d *Device) { d.hooks = h }
}

// ChainHooks 按顺序合并多组钩子，nil 字段跳过
func ChainHooks(hs ...Hooks) Hooks {
	var out Hooks
	for _, h := range hs {
		h := h
		if h.OnSend != nil {
			prev := out.OnSend
			out.OnSend = func(d *Device, frame []byte, err error) {
				if prev != nil {
					prev(d, frame, err)
				}
				h.OnSend(d, frame, err)
			}
		}
		if h.OnReceive != nil {
			prev := out.OnReceive
			out.OnReceive = func(d *Device, p []byte) {
				if prev != nil {
					prev(d, p)
				}
				h.OnReceive(d, p)
			}
		}
		if h.OnDecodeError != nil {
			prev := out.OnDecodeError
			out.OnDecodeError = func(d *Device, err error) {
				if prev != nil {
					prev(d, err)
				}
				h.OnDecodeError(d, err)
			}
		}
	}
	return out
}

// New 创建设备
func New(info Info, link Link, bus *event.Bus, opts ...Option) *Device {
	d := &Device{info: info, link: link, bus: bus, log: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With(zap.String("device", info.ID))
	return d
}

// Info 设备描述
func (d *Device) Info() Info { return d.info }

// ID 设备ID
func (d *Device) ID() string { return d.info.ID }

// State 当前状态
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// IsConnected 是否已连接
func (d *Device) IsConnected() bool { return d.State() == StateConnected }

// SetAdapter 安装上行数据处理器，可随时替换
func (d *Device) SetAdapter(a adapter.Adapter) {
	d.mu.Lock()
	d.adapter = a
	d.mu.Unlock()
}

// setStateLocked 切换状态，返回需要发布的事件
func (d *Device) setStateLocked(s State, reason string) event.Event {
	prev := d.state
	d.state = s
	return event.New(EventStateChanged, StateChange{Device: d.info, State: s, Previous: prev, Reason: reason}, d.info.ID)
}

// Connect 打开链路；已连接时为空操作（不重复发布事件）
// 连接过程中被 Disconnect 取消时返回 ErrConnectAborted，状态回到 Disconnected
func (d *Device) Connect(ctx context.Context) error {
	d.mu.Lock()
	switch d.state {
	case StateConnected:
		d.mu.Unlock()
		d.log.Warn("device already connected")
		return nil
	case StateConnecting, StateDisconnecting:
		st := d.state
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBusy, st)
	}
	openCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	defer close(done)
	d.connectCancel, d.connectDone, d.aborted = cancel, done, false
	ev := d.setStateLocked(StateConnecting, "")
	d.mu.Unlock()
	d.bus.Publish(ev)

	err := d.link.Open(openCtx)

	d.mu.Lock()
	aborted := d.aborted
	d.connectCancel, d.connectDone, d.aborted = nil, nil, false
	if aborted {
		if err == nil {
			_ = d.link.Close()
		}
		err = ErrConnectAborted
	}
	if err != nil {
		ev := d.setStateLocked(StateDisconnected, err.Error())
		d.mu.Unlock()
		d.bus.Publish(ev)
		d.log.Info("device connect failed", zap.Error(err))
		return fmt.Errorf("connect %s: %w", d.info.ID, err)
	}

	ev = d.setStateLocked(StateConnected, "")
	if a := d.adapter; a != nil {
		a.Reset()
	}
	d.readWG.Add(1)
	d.mu.Unlock()
	go d.readLoop(d.link.Reads())
	d.bus.Publish(ev)
	d.log.Info("device connected", zap.String("kind", string(d.info.Kind)), zap.String("address", d.info.Address))
	return nil
}

// Disconnect 关闭链路；未连接时为空操作
// 连接中时取消正在进行的 Connect 并等待其结束
// force 为 false 时等待正在进行的发送完成
func (d *Device) Disconnect(force bool) error {
	d.mu.Lock()
	switch d.state {
	case StateDisconnected, StateDisconnecting:
		d.mu.Unlock()
		return nil
	case StateConnecting:
		d.aborted = true
		cancel, done := d.connectCancel, d.connectDone
		d.mu.Unlock()
		cancel()
		<-done
		return nil
	}
	ev := d.setStateLocked(StateDisconnecting, "")
	d.mu.Unlock()
	d.bus.Publish(ev)

	if !force {
		d.sendMu.Lock()
		defer d.sendMu.Unlock()
	}
	err := d.link.Close()
	d.readWG.Wait()

	d.mu.Lock()
	reason := ""
	if force {
		reason = "forced"
	}
	ev = d.setStateLocked(StateDisconnected, reason)
	d.mu.Unlock()
	d.bus.Publish(ev)
	d.log.Info("device disconnected", zap.Bool("force", force))
	if err != nil {
		return fmt.Errorf("disconnect %s: %w", d.info.ID, err)
	}
	return nil
}

// Send 发送一帧；调用顺序即发送顺序
func (d *Device) Send(ctx context.Context, frame []byte) error {
	d.sendMu.Lock()
	defer d.sendMu.Unlock()
	if d.State() != StateConnected {
		return ErrNotConnected
	}
	err := d.link.Write(ctx, frame)
	if h := d.hooks.OnSend; h != nil {
		h(d, frame, err)
	}
	if err != nil {
		return fmt.Errorf("send %s: %w", d.info.ID, err)
	}
	return nil
}

// readLoop 上行数据交给处理器；链路意外结束时转为断开
func (d *Device) readLoop(reads <-chan []byte) {
	defer d.readWG.Done()
	for p := range reads {
		if h := d.hooks.OnReceive; h != nil {
			h(d, p)
		}
		d.mu.Lock()
		a := d.adapter
		d.mu.Unlock()
		if a == nil {
			continue
		}
		if err := a.ProcessBytes(p); err != nil {
			d.log.Debug("adapter process failed", zap.Error(err))
			if h := d.hooks.OnDecodeError; h != nil {
				h(d, err)
			}
		}
	}

	d.mu.Lock()
	if d.state != StateConnected {
		d.mu.Unlock()
		return
	}
	reason := ErrLinkClosed.Error()
	if e, ok := d.link.(Erring); ok && e.Err() != nil {
		reason = e.Err().Error()
	}
	ev := d.setStateLocked(StateDisconnected, reason)
	d.mu.Unlock()
	_ = d.link.Close()
	d.bus.Publish(ev)
	d.log.Warn("device link lost", zap.String("reason", reason))
}
