// Package virtual 内存链路：写入的帧交给 Responder，返回的应答作为上行数据
package virtual

import (
	"context"
	"sync"

	"github.com/taoyao-code/cwc-bridge/internal/device"
)

// Responder 根据下行帧生成上行应答
type Responder func(frame []byte) [][]byte

// Link 虚拟链路
type Link struct {
	respond Responder

	mu      sync.Mutex
	reads   chan []byte
	open    bool
	written [][]byte
}

var _ device.Link = (*Link)(nil)

// NewLink 创建链路，respond 可为空
func NewLink(respond Responder) *Link {
	return &Link{respond: respond}
}

// Open 打开
func (l *Link) Open(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.open {
		return nil
	}
	l.reads = make(chan []byte, 64)
	l.open = true
	return nil
}

// Close 关闭，可重复调用
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.open {
		close(l.reads)
		l.open = false
	}
	return nil
}

// Write 记录下行帧并投递应答；应答缓冲满时丢弃
func (l *Link) Write(_ context.Context, p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open {
		return device.ErrLinkClosed
	}
	l.written = append(l.written, append([]byte(nil), p...))
	if l.respond == nil {
		return nil
	}
	for _, r := range l.respond(p) {
		select {
		case l.reads <- r:
		default:
		}
	}
	return nil
}

// Inject 模拟设备主动上报
func (l *Link) Inject(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open {
		return device.ErrLinkClosed
	}
	select {
	case l.reads <- append([]byte(nil), p...):
	default:
	}
	return nil
}

// Reads 上行数据
func (l *Link) Reads() <-chan []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads
}

// Written 已写入的帧
func (l *Link) Written() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]byte(nil), l.written...)
}

// Scanner 返回配置好的虚拟设备
type Scanner struct {
	infos []device.Info
}

// NewScanner 创建扫描器，Kind 统一设为 virtual
func NewScanner(infos ...device.Info) *Scanner {
	out := make([]device.Info, 0, len(infos))
	for _, info := range infos {
		info.Kind = device.KindVirtual
		if info.ID == "" {
			info.ID = "virtual:" + info.Name
		}
		out = append(out, info)
	}
	return &Scanner{infos: out}
}

func (s *Scanner) Kind() device.Kind { return device.KindVirtual }

func (s *Scanner) Scan(context.Context) ([]device.Info, error) {
	return append([]device.Info(nil), s.infos...), nil
}

// Factory 链路工厂：按设备族选择应答器
func Factory(info device.Info) (device.Link, error) {
	return NewLink(ResponderFor(info.Family)), nil
}
