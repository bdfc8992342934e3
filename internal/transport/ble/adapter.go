package ble

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/cwc-bridge/internal/event"
)

// EventAdapterStateChanged enabled 变化时发布，载荷为 AdapterInfo
const EventAdapterStateChanged event.Type = "bluetooth.adapter_state_changed"

// AdapterInfo 蓝牙适配器状态
type AdapterInfo struct {
	Available bool `json:"available"`
	Powered   bool `json:"powered"`
	Prepared  bool `json:"prepared"`
	Enabled   bool `json:"enabled"`
}

// AdapterState 维护 enabled = available && powered && prepared
type AdapterState struct {
	bus *event.Bus

	mu   sync.Mutex
	info AdapterInfo
}

// NewAdapterState 初始为全部 false
func NewAdapterState(bus *event.Bus) *AdapterState {
	return &AdapterState{bus: bus}
}

// Update 写入新状态；仅在 enabled 变化时发布事件并返回 true
func (s *AdapterState) Update(available, powered, prepared bool) bool {
	s.mu.Lock()
	enabled := available && powered && prepared
	changed := enabled != s.info.Enabled
	s.info = AdapterInfo{Available: available, Powered: powered, Prepared: prepared, Enabled: enabled}
	info := s.info
	s.mu.Unlock()
	if changed && s.bus != nil {
		s.bus.Publish(event.New(EventAdapterStateChanged, info, "bluetooth"))
	}
	return changed
}

// Info 当前状态
func (s *AdapterState) Info() AdapterInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Enabled 适配器可用
func (s *AdapterState) Enabled() bool { return s.Info().Enabled }

// StateQuery 查询系统适配器：是否存在、是否上电
type StateQuery func(ctx context.Context) (available, powered bool, err error)

// Poller 按需或定时刷新 AdapterState
type Poller struct {
	state    *AdapterState
	central  Central
	query    StateQuery
	interval time.Duration
	log      *zap.Logger

	mu       sync.Mutex
	prepared bool
}

// NewPoller query 为空时以 central.Enable 的结果同时代表存在与上电
func NewPoller(state *AdapterState, central Central, query StateQuery, interval time.Duration, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{state: state, central: central, query: query, interval: interval, log: log}
}

// Refresh 立即查询一次；首次 Enable 成功后视为 prepared
func (p *Poller) Refresh(ctx context.Context) AdapterInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.prepared {
		if err := p.central.Enable(); err != nil {
			p.log.Debug("bluetooth adapter enable failed", zap.Error(err))
		} else {
			p.prepared = true
		}
	}
	available, powered := p.prepared, p.prepared
	if p.query != nil {
		var err error
		available, powered, err = p.query(ctx)
		if err != nil {
			p.log.Debug("bluetooth adapter state query failed", zap.Error(err))
			available, powered = false, false
		}
	}
	p.state.Update(available, powered, p.prepared)
	return p.state.Info()
}

// Run 定时刷新直到 ctx 结束
func (p *Poller) Run(ctx context.Context) {
	p.Refresh(ctx)
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.Refresh(ctx)
		}
	}
}
