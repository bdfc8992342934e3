// Package connection 设备自动重连
package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/avast/retry-go/v5"
	"go.uber.org/zap"
)

// Strategy 重连策略
type Strategy string

const (
	// StrategyFixed 固定间隔检查，无论上次结果如何
	StrategyFixed Strategy = "fixed"
	// StrategyExponential 指数退避，连接成功后回到固定间隔检查
	StrategyExponential Strategy = "exponential"
)

// DefaultInterval 固定重连间隔
const DefaultInterval = 5 * time.Second

// Target 被守护的设备
type Target interface {
	ID() string
	IsConnected() bool
	Connect(ctx context.Context) error
}

// Config 重连参数
type Config struct {
	Strategy Strategy
	Interval time.Duration
	MaxDelay time.Duration // 指数退避上限，默认 1m
}

// Manager 为每个设备维护一个重连循环
type Manager struct {
	cfg Config
	log *zap.Logger

	// 连接结果回调，可为空
	OnAttempt func(id string, err error)

	mu      sync.Mutex
	watches map[string]*watch
	wg      sync.WaitGroup
}

type watch struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// stop 取消循环并等待退出
func (w *watch) stop() {
	w.cancel()
	<-w.done
}

// New 创建管理器
func New(cfg Config, log *zap.Logger) *Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = time.Minute
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyFixed
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{cfg: cfg, log: log, watches: make(map[string]*watch)}
}

// Watch 开始守护；同一设备重复调用为空操作
func (m *Manager) Watch(ctx context.Context, t Target) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.watches[t.ID()]; ok {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	w := &watch{cancel: cancel, done: make(chan struct{})}
	m.watches[t.ID()] = w
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(w.done)
		log := m.log.With(zap.String("device", t.ID()), zap.String("strategy", string(m.cfg.Strategy)))
		if m.cfg.Strategy == StrategyExponential {
			m.runBackoff(ctx, t, log)
			return
		}
		m.runFixed(ctx, t, log)
	}()
}

// Unwatch 停止守护单个设备，返回时循环已退出，不会再发起重连
func (m *Manager) Unwatch(id string) {
	m.mu.Lock()
	w, ok := m.watches[id]
	delete(m.watches, id)
	m.mu.Unlock()
	if ok {
		w.stop()
	}
}

// Watching 是否在守护
func (m *Manager) Watching(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.watches[id]
	return ok
}

// Stop 停止全部循环并等待退出
func (m *Manager) Stop() {
	m.mu.Lock()
	for id, w := range m.watches {
		w.cancel()
		delete(m.watches, id)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) attempt(ctx context.Context, t Target, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := t.Connect(ctx)
	if m.OnAttempt != nil {
		m.OnAttempt(t.ID(), err)
	}
	if err != nil {
		log.Warn("reconnect failed", zap.Error(err))
	}
	return err
}

func (m *Manager) runFixed(ctx context.Context, t Target, log *zap.Logger) {
	tick := time.NewTicker(m.cfg.Interval)
	defer tick.Stop()
	for {
		if ctx.Err() != nil {
			return
		}
		if !t.IsConnected() {
			_ = m.attempt(ctx, t, log)
		}
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

var errStillDisconnected = errors.New("still disconnected")

func (m *Manager) runBackoff(ctx context.Context, t Target, log *zap.Logger) {
	r := retry.New(
		retry.Context(ctx),
		retry.UntilSucceeded(),
		retry.Delay(m.cfg.Interval),
		retry.MaxDelay(m.cfg.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Debug("reconnect retry scheduled", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	tick := time.NewTicker(m.cfg.Interval)
	defer tick.Stop()
	for {
		if ctx.Err() != nil {
			return
		}
		if !t.IsConnected() {
			err := r.Do(func() error {
				if t.IsConnected() {
					return nil
				}
				if err := m.attempt(ctx, t, log); err != nil {
					return err
				}
				if !t.IsConnected() {
					return errStillDisconnected
				}
				return nil
			})
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				log.Warn("reconnect gave up", zap.Error(err))
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}
