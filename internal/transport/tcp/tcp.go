// Package tcp 网络串口桥（ser2net、ESP 透传模块等）链路
package tcp

import (
	"context"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/cwc-bridge/internal/device"
	"github.com/taoyao-code/cwc-bridge/internal/transport"
)

// Config 连接参数
type Config struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	KeepAlive    time.Duration
}

// NewLink 创建到 address (host:port) 的链路
func NewLink(address string, cfg Config, log *zap.Logger) *transport.StreamLink {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	d := &net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: cfg.KeepAlive}
	dial := func(ctx context.Context) (io.ReadWriteCloser, error) {
		c, err := d.DialContext(ctx, "tcp", address)
		if err != nil {
			return nil, err
		}
		if tc, ok := c.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}
		return c, nil
	}
	return transport.NewStreamLink(dial, transport.StreamConfig{WriteTimeout: cfg.WriteTimeout}, log)
}

// Factory 链路工厂
func Factory(cfg Config, log *zap.Logger) device.LinkFactory {
	if log == nil {
		log = zap.NewNop()
	}
	return func(info device.Info) (device.Link, error) {
		return NewLink(info.Address, cfg, log.With(zap.String("device", info.ID))), nil
	}
}

// Scanner 配置中的静态 TCP 设备
type Scanner struct {
	infos []device.Info
}

// NewScanner 创建扫描器；未给出设备族时按名称推断
func NewScanner(infos ...device.Info) *Scanner {
	out := make([]device.Info, 0, len(infos))
	for _, info := range infos {
		info.Kind = device.KindTCP
		if info.ID == "" {
			info.ID = "tcp:" + info.Address
		}
		if info.Family == "" {
			info.Family, info.Variant = device.GuessFamily(info.Name)
		}
		out = append(out, info)
	}
	return &Scanner{infos: out}
}

func (s *Scanner) Kind() device.Kind { return device.KindTCP }

func (s *Scanner) Scan(context.Context) ([]device.Info, error) {
	return append([]device.Info(nil), s.infos...), nil
}
