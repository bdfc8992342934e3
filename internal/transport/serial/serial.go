// Package serial 串口链路：USB 转串口与蓝牙经典 RFCOMM 端口
package serial

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"github.com/taoyao-code/cwc-bridge/internal/device"
	"github.com/taoyao-code/cwc-bridge/internal/transport"
)

// DefaultBaudRate Sphero/mBot/EV3 固件均使用 115200
const DefaultBaudRate = 115200

// Config 串口参数
type Config struct {
	BaudRate    int
	ReadTimeout time.Duration // 默认 100ms，读超时后检查关闭信号
}

func (c Config) mode() *serial.Mode {
	baud := c.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// NewLink 创建串口链路
func NewLink(port string, cfg Config, log *zap.Logger) *transport.StreamLink {
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	dial := func(ctx context.Context) (io.ReadWriteCloser, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := serial.Open(port, cfg.mode())
		if err != nil {
			return nil, err
		}
		if err := p.SetReadTimeout(timeout); err != nil {
			_ = p.Close()
			return nil, err
		}
		return p, nil
	}
	return transport.NewStreamLink(dial, transport.StreamConfig{}, log)
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

// PortLister 列出串口
type PortLister func() ([]*enumerator.PortDetails, error)

// Scanner 枚举本机串口并推断设备族
type Scanner struct {
	list PortLister
	// 只保留能识别设备族的端口
	KnownOnly bool
}

// NewScanner 使用系统枚举器
func NewScanner() *Scanner {
	return &Scanner{list: enumerator.GetDetailedPortsList}
}

// NewScannerWith 指定枚举函数
func NewScannerWith(list PortLister) *Scanner {
	return &Scanner{list: list}
}

func (s *Scanner) Kind() device.Kind { return device.KindSerial }

// Scan 枚举端口
func (s *Scanner) Scan(ctx context.Context) ([]device.Info, error) {
	ports, err := s.list()
	if err != nil {
		return nil, err
	}
	out := make([]device.Info, 0, len(ports))
	for _, p := range ports {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		info := describe(p)
		if s.KnownOnly && info.Family == "" {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

// CH340/CH341 转接芯片，mCore 与 Auriga 主板使用
const vidWCH = "1A86"

func describe(p *enumerator.PortDetails) device.Info {
	name := p.Product
	if name == "" {
		name = filepath.Base(p.Name)
	}
	info := device.Info{
		ID:      "serial:" + p.Name,
		Name:    name,
		Address: p.Name,
		Kind:    device.KindSerial,
	}
	info.Family, info.Variant = device.GuessFamily(name)
	if info.Family == "" {
		// 蓝牙经典端口名中带设备名，如 /dev/tty.Sphero-RGB-AMP-SPP
		info.Family, info.Variant = device.GuessFamily(filepath.Base(p.Name))
	}
	if info.Family == "" && p.IsUSB && strings.EqualFold(p.VID, vidWCH) {
		info.Family = device.FamilyMBot
	}
	if info.Family == device.FamilySphero && info.Variant == "" {
		info.Variant = "classic"
	}
	return info
}
