package ble

import (
	"context"
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"
)

// TinyGo 基于 tinygo.org/x/bluetooth 的 Central（BlueZ/CoreBluetooth/WinRT）
type TinyGo struct {
	adapter *bluetooth.Adapter

	scanMu sync.Mutex
	mu     sync.Mutex
	// 连接需要扫描得到的 Address（macOS 上为 UUID）
	seen map[string]bluetooth.Address
	lost map[string]func()
}

// NewTinyGo 使用系统默认适配器
func NewTinyGo() *TinyGo {
	t := &TinyGo{
		adapter: bluetooth.DefaultAdapter,
		seen:    make(map[string]bluetooth.Address),
		lost:    make(map[string]func()),
	}
	// 必须在首次 Connect 之前注册
	t.adapter.SetConnectHandler(t.onConnect)
	return t
}

// onConnect 把远端断开分发给对应地址的外设
func (t *TinyGo) onConnect(dev bluetooth.Device, connected bool) {
	if connected {
		return
	}
	addr := dev.Address.String()
	t.mu.Lock()
	fn := t.lost[addr]
	delete(t.lost, addr)
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (t *TinyGo) Enable() error { return t.adapter.Enable() }

// Scan 阻塞到 ctx 结束后停止扫描
func (t *TinyGo) Scan(ctx context.Context) ([]Advertisement, error) {
	t.scanMu.Lock()
	defer t.scanMu.Unlock()

	var (
		mu  sync.Mutex
		out []Advertisement
	)
	errC := make(chan error, 1)
	go func() {
		errC <- t.adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
			addr := r.Address.String()
			t.mu.Lock()
			t.seen[addr] = r.Address
			t.mu.Unlock()
			mu.Lock()
			out = append(out, Advertisement{Address: addr, Name: r.LocalName(), RSSI: int(r.RSSI)})
			mu.Unlock()
		})
	}()

	select {
	case err := <-errC:
		// 扫描未能启动
		return nil, err
	case <-ctx.Done():
	}
	if err := t.adapter.StopScan(); err != nil {
		return nil, err
	}
	if err := <-errC; err != nil {
		return nil, err
	}
	mu.Lock()
	defer mu.Unlock()
	return out, nil
}

// Connect 连接已扫描到的外设
func (t *TinyGo) Connect(_ context.Context, address string) (Peripheral, error) {
	t.mu.Lock()
	addr, ok := t.seen[address]
	t.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("ble: %s not seen in scan", address)
	}
	dev, err := t.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, err
	}
	return &tinyPeripheral{central: t, address: address, dev: dev}, nil
}

var _ Peripheral = (*tinyPeripheral)(nil)

type tinyPeripheral struct {
	central *TinyGo
	address string
	dev     bluetooth.Device

	mu    sync.Mutex
	chars map[string]bluetooth.DeviceCharacteristic
}

// Characteristic 首次调用时发现全部服务与特征
func (p *tinyPeripheral) Characteristic(service, char string) (Characteristic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.chars == nil {
		if err := p.discover(); err != nil {
			return nil, err
		}
	}
	for key, c := range p.chars {
		if sameUUID(key, service+"/"+char) {
			return tinyCharacteristic{c: c}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrCharacteristicNotFound, service, char)
}

func (p *tinyPeripheral) discover() error {
	services, err := p.dev.DiscoverServices(nil)
	if err != nil {
		return fmt.Errorf("discover services: %w", err)
	}
	chars := make(map[string]bluetooth.DeviceCharacteristic)
	for _, s := range services {
		cs, err := s.DiscoverCharacteristics(nil)
		if err != nil {
			continue
		}
		for _, c := range cs {
			chars[s.UUID().String()+"/"+c.UUID().String()] = c
		}
	}
	p.chars = chars
	return nil
}

func (p *tinyPeripheral) OnDisconnect(fn func()) {
	p.central.mu.Lock()
	p.central.lost[p.address] = fn
	p.central.mu.Unlock()
}

func (p *tinyPeripheral) Disconnect() error {
	p.central.mu.Lock()
	delete(p.central.lost, p.address)
	p.central.mu.Unlock()
	return p.dev.Disconnect()
}

type tinyCharacteristic struct {
	c bluetooth.DeviceCharacteristic
}

func (c tinyCharacteristic) Write(p []byte) error {
	_, err := c.c.WriteWithoutResponse(p)
	return err
}

func (c tinyCharacteristic) Notify(fn func([]byte)) error {
	return c.c.EnableNotifications(fn)
}
