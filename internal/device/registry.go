package device

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/taoyao-code/cwc-bridge/internal/event"
	"go.uber.org/zap"
)

// EventDevicesUpdated 扫描完成
const EventDevicesUpdated event.Type = "device.list_updated"

// Scanner 设备发现
type Scanner interface {
	Kind() Kind
	Scan(ctx context.Context) ([]Info, error)
}

// LinkFactory 根据设备描述创建链路
type LinkFactory func(info Info) (Link, error)

// Registry 设备注册表：汇总各扫描器结果，按需创建 Device
type Registry struct {
	bus       *event.Bus
	log       *zap.Logger
	opts      []Option
	scanners  []Scanner
	factories map[Kind]LinkFactory

	mu      sync.RWMutex
	infos   map[string]Info
	static  map[string]Info
	devices map[string]*Device
}

// NewRegistry 创建注册表，opts 会传给创建出的每个 Device
func NewRegistry(bus *event.Bus, log *zap.Logger, opts ...Option) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		bus:       bus,
		log:       log,
		opts:      append([]Option{WithLogger(log)}, opts...),
		factories: make(map[Kind]LinkFactory),
		infos:     make(map[string]Info),
		static:    make(map[string]Info),
		devices:   make(map[string]*Device),
	}
}

// AddScanner 注册扫描器
func (r *Registry) AddScanner(s Scanner) {
	r.mu.Lock()
	r.scanners = append(r.scanners, s)
	r.mu.Unlock()
}

// RegisterTransport 注册链路工厂
func (r *Registry) RegisterTransport(kind Kind, f LinkFactory) {
	r.mu.Lock()
	r.factories[kind] = f
	r.mu.Unlock()
}

// AddStatic 添加不依赖扫描的设备（配置中的 TCP/WebSocket 地址等）
func (r *Registry) AddStatic(info Info) {
	r.mu.Lock()
	r.static[info.ID] = info
	r.infos[info.ID] = info
	r.mu.Unlock()
}

// Update 重新扫描；单个扫描器失败不影响其他结果
func (r *Registry) Update(ctx context.Context) error {
	r.mu.RLock()
	scanners := append([]Scanner(nil), r.scanners...)
	r.mu.RUnlock()

	found := make(map[string]Info)
	var errs []error
	for _, s := range scanners {
		infos, err := s.Scan(ctx)
		if err != nil {
			r.log.Warn("device scan failed", zap.String("kind", string(s.Kind())), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s scan: %w", s.Kind(), err))
			continue
		}
		for _, info := range infos {
			found[info.ID] = info
		}
	}

	r.mu.Lock()
	for id, info := range r.static {
		found[id] = info
	}
	// 已创建且仍连接的设备保留
	for id, d := range r.devices {
		if _, ok := found[id]; !ok && d.IsConnected() {
			found[id] = d.Info()
		}
	}
	r.infos = found
	list := r.listLocked()
	r.mu.Unlock()

	r.bus.Publish(event.New(EventDevicesUpdated, list, "registry"))
	r.log.Debug("device list updated", zap.Int("count", len(list)))
	return errors.Join(errs...)
}

// List 返回已知设备（按 ID 排序）
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked()
}

func (r *Registry) listLocked() []Info {
	out := make([]Info, 0, len(r.infos))
	for _, info := range r.infos {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup 返回设备描述
func (r *Registry) Lookup(id string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.infos[id]
	return info, ok
}

// Get 返回设备，首次访问时创建链路
// 扫描后地址或类型发生变化且设备已断开时重建，连接中的设备不受影响
func (r *Registry) Get(id string) (*Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, known := r.infos[id]
	if d, ok := r.devices[id]; ok {
		if !known || sameLink(d.Info(), info) || d.State() != StateDisconnected {
			return d, nil
		}
		r.log.Info("device info changed, rebuilding link",
			zap.String("device", id), zap.String("address", info.Address))
		delete(r.devices, id)
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	f, ok := r.factories[info.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTransport, info.Kind)
	}
	link, err := f(info)
	if err != nil {
		return nil, fmt.Errorf("create link for %s: %w", id, err)
	}
	d := New(info, link, r.bus, r.opts...)
	r.devices[id] = d
	return d, nil
}

// sameLink 链路相关字段是否一致；名称与 RSSI 不影响链路
func sameLink(a, b Info) bool {
	return a.Address == b.Address && a.Kind == b.Kind && a.Family == b.Family && a.Variant == b.Variant
}

// Connected 返回已连接的设备
func (r *Registry) Connected() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Device
	for _, d := range r.devices {
		if d.IsConnected() {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// CloseAll 断开全部设备
func (r *Registry) CloseAll() {
	r.mu.RLock()
	devices := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, d)
	}
	r.mu.RUnlock()
	for _, d := range devices {
		if err := d.Disconnect(true); err != nil {
			r.log.Debug("disconnect failed", zap.String("device", d.ID()), zap.Error(err))
		}
	}
}
