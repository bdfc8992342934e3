package ble

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/taoyao-code/cwc-bridge/internal/device"
)

// Link BLE 链路
type Link struct {
	central Central
	address string
	profile Profile
	log     *zap.Logger

	mu     sync.Mutex
	per    Peripheral
	write  Characteristic
	reads  chan []byte
	closed bool
}

var _ device.Link = (*Link)(nil)

// NewLink 创建链路
func NewLink(central Central, address string, profile Profile, log *zap.Logger) *Link {
	if profile.Chunk <= 0 {
		profile.Chunk = 20
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Link{central: central, address: address, profile: profile, log: log}
}

// Open 连接、握手并订阅通知；失败时断开外设
func (l *Link) Open(ctx context.Context) error {
	l.mu.Lock()
	if l.per != nil {
		l.mu.Unlock()
		return nil
	}
	per, write, notify, err := l.handshake(ctx)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	// reads 先于 Notify 发布，回调可能在 Notify 返回前触发
	l.per, l.write, l.reads, l.closed = per, write, make(chan []byte, 64), false
	l.mu.Unlock()

	per.OnDisconnect(func() {
		if l.detach(per) {
			l.log.Info("ble peripheral disconnected", zap.String("address", l.address))
		}
	})
	if err := notify.Notify(l.onNotify); err != nil {
		l.detach(per)
		_ = per.Disconnect()
		return fmt.Errorf("enable notifications: %w", err)
	}
	l.log.Debug("ble link open", zap.String("profile", l.profile.Name))
	return nil
}

func (l *Link) handshake(ctx context.Context) (Peripheral, Characteristic, Characteristic, error) {
	per, err := l.central.Connect(ctx, l.address)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ble connect %s: %w", l.address, err)
	}
	fail := func(err error) (Peripheral, Characteristic, Characteristic, error) {
		_ = per.Disconnect()
		return nil, nil, nil, err
	}
	for _, w := range l.profile.Wake {
		c, err := per.Characteristic(w.Service, w.Char)
		if err != nil {
			return fail(fmt.Errorf("wake %s: %w", w.Char, err))
		}
		if err := c.Write(w.Data); err != nil {
			return fail(fmt.Errorf("wake %s: %w", w.Char, err))
		}
	}
	write, err := per.Characteristic(l.profile.Service, l.profile.Write)
	if err != nil {
		return fail(err)
	}
	notify, err := per.Characteristic(l.profile.Service, l.profile.Notify)
	if err != nil {
		return fail(err)
	}
	return per, write, notify, nil
}

// detach 解除 per 与链路的绑定并关闭 reads；per 已不是当前外设时返回 false
func (l *Link) detach(per Peripheral) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.per == nil || l.per != per {
		return false
	}
	l.per, l.write = nil, nil
	l.closed = true
	close(l.reads)
	return true
}

// onNotify 通知回调运行在蓝牙栈线程中，不能阻塞
func (l *Link) onNotify(p []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.reads == nil {
		return
	}
	select {
	case l.reads <- append([]byte(nil), p...):
	default:
		l.log.Warn("ble notification dropped", zap.Int("len", len(p)))
	}
}

// Close 断开外设
func (l *Link) Close() error {
	l.mu.Lock()
	per := l.per
	l.mu.Unlock()
	if per == nil || !l.detach(per) {
		return nil
	}
	return per.Disconnect()
}

// Write 按 Chunk 分片写入
func (l *Link) Write(ctx context.Context, p []byte) error {
	l.mu.Lock()
	w := l.write
	l.mu.Unlock()
	if w == nil {
		return device.ErrLinkClosed
	}
	for len(p) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(len(p), l.profile.Chunk)
		if err := w.Write(p[:n]); err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// Reads 通知数据
func (l *Link) Reads() <-chan []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads
}

// Factory 链路工厂
func Factory(central Central, log *zap.Logger) device.LinkFactory {
	if log == nil {
		log = zap.NewNop()
	}
	return func(info device.Info) (device.Link, error) {
		p, err := ProfileFor(info)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, info.ID)
		}
		return NewLink(central, info.Address, p, log.With(zap.String("device", info.ID))), nil
	}
}
