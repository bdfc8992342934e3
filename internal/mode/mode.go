// Package mode 当前设备模式：把设备与其协议栈（API、应答处理、轮询、命令档案）绑定在一起
package mode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/cwc-bridge/internal/device"
	"github.com/taoyao-code/cwc-bridge/internal/event"
	"github.com/taoyao-code/cwc-bridge/internal/protocol/adapter"
	"github.com/taoyao-code/cwc-bridge/internal/protocol/aiy"
	"github.com/taoyao-code/cwc-bridge/internal/protocol/ev3"
	"github.com/taoyao-code/cwc-bridge/internal/protocol/makeblock"
	"github.com/taoyao-code/cwc-bridge/internal/protocol/makeblock/mbot"
	"github.com/taoyao-code/cwc-bridge/internal/protocol/makeblock/ranger"
	"github.com/taoyao-code/cwc-bridge/internal/protocol/sphero"
	"github.com/taoyao-code/cwc-bridge/internal/runner"
)

var (
	// ErrNoMode 尚未选择设备
	ErrNoMode = errors.New("mode: no active device")
	// ErrUnsupportedFamily 设备族未知
	ErrUnsupportedFamily = errors.New("mode: unsupported device family")
	// ErrNoMonitoring 该设备族没有轮询
	ErrNoMonitoring = errors.New("mode: family has no monitoring")
)

// EventChanged 模式切换或清理时发布，载荷为 Status
const EventChanged event.Type = "mode.changed"

// Monitor 轮询器
type Monitor interface {
	Start(ctx context.Context)
	Stop()
	IsStarted() bool
	CleanUp()
	ActiveChannels() []string
	OnPoll(fn func(channel string, err error))
}

// Session 一个设备的完整协议栈
type Session struct {
	Family  string
	Device  *device.Device
	Handler adapter.Adapter
	Profile runner.Profile
	Monitor Monitor // 可为空
}

// Status 对外展示的模式状态
type Status struct {
	Active     bool        `json:"active"`
	Device     device.Info `json:"device,omitempty"`
	State      string      `json:"state,omitempty"`
	Family     string      `json:"family,omitempty"`
	Monitoring bool        `json:"monitoring"`
	Channels   []string    `json:"channels,omitempty"`
}

// Options 管理器参数
type Options struct {
	// 切换后自动开始轮询
	AutoMonitor bool
	// EV3 应答等待时长
	EV3ReplyTTL time.Duration
	// 轮询结果回调（指标），可为空
	OnPoll func(family, channel string, err error)
	// 设备成为当前模式后调用（持锁），可为空
	OnActivate func(d *device.Device)
	// 当前模式被清理、断开设备之前调用（持锁），可为空
	OnDeactivate func(d *device.Device)
}

// Manager 当前模式
type Manager struct {
	registry *device.Registry
	bus      *event.Bus
	opts     Options
	log      *zap.Logger

	mu     sync.Mutex
	active *Session
}

// NewManager 创建管理器
func NewManager(registry *device.Registry, bus *event.Bus, opts Options, log *zap.Logger) *Manager {
	if opts.EV3ReplyTTL <= 0 {
		opts.EV3ReplyTTL = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{registry: registry, bus: bus, opts: opts, log: log}
}

var _ runner.ProfileSource = (*Manager)(nil)

// Profile 当前命令档案
func (m *Manager) Profile() (runner.Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, false
	}
	return m.active.Profile, true
}

// Active 当前会话
func (m *Manager) Active() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.active != nil
}

// Switch 清理当前模式后切换到 id 对应的设备并连接
func (m *Manager) Switch(ctx context.Context, id string) (*Session, error) {
	dev, err := m.registry.Get(id)
	if err != nil {
		return nil, err
	}
	s, err := m.build(dev)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cleanUpLocked()
	dev.SetAdapter(s.Handler)
	if err := dev.Connect(ctx); err != nil {
		dev.SetAdapter(nil)
		if s.Monitor != nil {
			s.Monitor.CleanUp()
		}
		st := m.statusLocked()
		m.mu.Unlock()
		m.bus.Publish(event.New(EventChanged, st, id))
		return nil, err
	}
	if s.Monitor != nil {
		family := s.Family
		s.Monitor.OnPoll(func(channel string, err error) {
			if m.opts.OnPoll != nil {
				m.opts.OnPoll(family, channel, err)
			}
		})
		if m.opts.AutoMonitor {
			s.Monitor.Start(context.Background())
		}
	}
	m.active = s
	if m.opts.OnActivate != nil {
		m.opts.OnActivate(dev)
	}
	st := m.statusLocked()
	m.mu.Unlock()

	m.log.Info("mode switched", zap.String("device", id), zap.String("family", s.Family))
	m.bus.Publish(event.New(EventChanged, st, id))
	return s, nil
}

// CleanUp 停止轮询、卸下处理器并断开设备；没有模式时为空操作
func (m *Manager) CleanUp() {
	m.mu.Lock()
	if m.active == nil {
		m.mu.Unlock()
		return
	}
	m.cleanUpLocked()
	m.mu.Unlock()
	m.bus.Publish(event.New(EventChanged, Status{}, ""))
}

func (m *Manager) cleanUpLocked() {
	s := m.active
	if s == nil {
		return
	}
	if m.opts.OnDeactivate != nil {
		m.opts.OnDeactivate(s.Device)
	}
	if s.Monitor != nil {
		s.Monitor.CleanUp()
	}
	s.Device.SetAdapter(nil)
	if err := s.Device.Disconnect(false); err != nil {
		m.log.Warn("mode cleanup disconnect failed", zap.String("device", s.Device.ID()), zap.Error(err))
	}
	m.active = nil
	m.log.Info("mode cleaned up", zap.String("device", s.Device.ID()))
}

// StartMonitoring 开始轮询
func (m *Manager) StartMonitoring(ctx context.Context) error {
	mon, err := m.monitor()
	if err != nil {
		return err
	}
	mon.Start(ctx)
	return nil
}

// StopMonitoring 停止轮询
func (m *Manager) StopMonitoring() error {
	mon, err := m.monitor()
	if err != nil {
		return err
	}
	mon.Stop()
	return nil
}

func (m *Manager) monitor() (Monitor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, ErrNoMode
	}
	if m.active.Monitor == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoMonitoring, m.active.Family)
	}
	return m.active.Monitor, nil
}

// Status 当前状态
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

func (m *Manager) statusLocked() Status {
	s := m.active
	if s == nil {
		return Status{}
	}
	st := Status{Active: true, Device: s.Device.Info(), State: s.Device.State().String(), Family: s.Family}
	if s.Monitor != nil {
		st.Monitoring = s.Monitor.IsStarted()
		st.Channels = s.Monitor.ActiveChannels()
	}
	return st
}

// build 按设备族组装协议栈
func (m *Manager) build(dev *device.Device) (*Session, error) {
	info := dev.Info()
	id := info.ID
	log := m.log.With(zap.String("device", id), zap.String("family", info.Family))
	s := &Session{Family: info.Family, Device: dev}
	switch info.Family {
	case device.FamilySphero:
		variant := sphero.VariantClassic
		if info.Variant == string(sphero.VariantV1) {
			variant = sphero.VariantV1
		}
		api := sphero.NewAPI(dev, sphero.WithVariant(variant), sphero.WithLogger(log))
		s.Handler = sphero.NewHandler(m.bus, id, log)
		s.Monitor = sphero.NewMonitoring(api, log)
		s.Profile = sphero.NewProfile(api)
	case device.FamilyMBot:
		api := mbot.NewAPI(dev, log)
		mon := mbot.NewMonitoring(api, log)
		s.Handler = makeblock.NewHandler(m.bus, id, mbot.Routes(), log)
		s.Monitor = mon
		s.Profile = mbot.NewProfile(api, mon)
	case device.FamilyRanger:
		api := ranger.NewAPI(dev, log)
		mon := ranger.NewMonitoring(api, log)
		s.Handler = makeblock.NewHandler(m.bus, id, ranger.Routes(), log)
		s.Monitor = mon
		s.Profile = ranger.NewProfile(api, mon)
	case device.FamilyEV3:
		pending := ev3.NewPending(m.opts.EV3ReplyTTL)
		api := ev3.NewAPI(dev, pending, ev3.WithLogger(log))
		s.Handler = ev3.NewHandler(m.bus, id, pending, log)
		s.Monitor = ev3.NewMonitoring(api, m.bus, log)
		s.Profile = ev3.NewProfile(api)
	case device.FamilyAIY:
		api := aiy.NewAPI(dev)
		s.Handler = aiy.NewHandler(m.bus, id, log)
		s.Profile = aiy.NewProfile(api)
	default:
		return nil, fmt.Errorf("%w: %q (%s)", ErrUnsupportedFamily, info.Family, id)
	}
	return s, nil
}
