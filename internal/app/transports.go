package app

import (
	"go.uber.org/zap"

	"github.com/taoyao-code/cwc-bridge/internal/config"
	"github.com/taoyao-code/cwc-bridge/internal/device"
	"github.com/taoyao-code/cwc-bridge/internal/event"
	"github.com/taoyao-code/cwc-bridge/internal/transport/ble"
	"github.com/taoyao-code/cwc-bridge/internal/transport/mdns"
	"github.com/taoyao-code/cwc-bridge/internal/transport/serial"
	"github.com/taoyao-code/cwc-bridge/internal/transport/tcp"
	"github.com/taoyao-code/cwc-bridge/internal/transport/virtual"
	"github.com/taoyao-code/cwc-bridge/internal/transport/ws"
)

// Transports 注册表及需要后台运行的发现组件
type Transports struct {
	Registry  *device.Registry
	Bluetooth *ble.AdapterState // BLE 未启用时为 nil
	BLEPoller *ble.Poller
	Discovery *mdns.Discovery // mDNS 未启用时为 nil
}

func staticInfo(d config.StaticDevice) device.Info {
	info := device.Info{Name: d.Name, Address: d.Address, Family: d.Family, Variant: d.Variant}
	if info.Family == "" {
		info.Family, info.Variant = device.GuessFamily(d.Name)
	}
	return info
}

// NewTransports 按配置注册扫描器与链路工厂
//
// central 为空且启用 BLE 时使用系统适配器。
func NewTransports(cfg config.TransportsConfig, bus *event.Bus, central ble.Central, log *zap.Logger, opts ...device.Option) *Transports {
	reg := device.NewRegistry(bus, log.Named("registry"), opts...)
	t := &Transports{Registry: reg}

	if cfg.Serial.Enable {
		sc := serial.NewScanner()
		sc.KnownOnly = cfg.Serial.KnownOnly
		reg.AddScanner(sc)
		reg.RegisterTransport(device.KindSerial, serial.Factory(serial.Config{BaudRate: cfg.Serial.BaudRate}, log.Named("serial")))
		log.Info("serial transport enabled", zap.Int("baud", cfg.Serial.BaudRate))
	}

	if cfg.BLE.Enable {
		if central == nil {
			central = ble.NewTinyGo()
		}
		t.Bluetooth = ble.NewAdapterState(bus)
		t.BLEPoller = ble.NewPoller(t.Bluetooth, central, nil, cfg.BLE.PollInterval, log.Named("bluetooth"))
		reg.AddScanner(ble.NewScanner(central, cfg.BLE.ScanTimeout))
		reg.RegisterTransport(device.KindBLE, ble.Factory(central, log.Named("ble")))
		log.Info("ble transport enabled")
	}

	// TCP 串口桥
	tcpDevices := make([]device.Info, 0, len(cfg.TCP.Devices))
	for _, d := range cfg.TCP.Devices {
		tcpDevices = append(tcpDevices, staticInfo(d))
	}
	if len(tcpDevices) > 0 {
		reg.AddScanner(tcp.NewScanner(tcpDevices...))
	}
	reg.RegisterTransport(device.KindTCP, tcp.Factory(tcp.Config{DialTimeout: cfg.TCP.DialTimeout}, log.Named("tcp")))

	// WebSocket：静态地址与 mDNS 发现的树莓派
	for _, d := range cfg.WS.Devices {
		info := staticInfo(d)
		info.Kind = device.KindWS
		info.ID = "ws:" + info.Address
		reg.AddStatic(info)
	}
	reg.RegisterTransport(device.KindWS, ws.Factory(ws.Config{DialTimeout: cfg.WS.DialTimeout}, log.Named("ws")))

	if cfg.MDNS.Enable {
		browser := mdns.HashicorpBrowser{Timeout: cfg.MDNS.Timeout}
		t.Discovery = mdns.NewDiscovery(browser, log.Named("mdns"), cfg.MDNS.Services...)
		reg.AddScanner(mdns.NewAIYScanner(t.Discovery, cfg.MDNS.AIYPort))
		log.Info("mdns discovery enabled", zap.Strings("services", t.Discovery.Services()))
	}

	if cfg.Virtual.Enable {
		infos := make([]device.Info, 0, len(cfg.Virtual.Devices))
		for _, d := range cfg.Virtual.Devices {
			infos = append(infos, staticInfo(d))
		}
		reg.AddScanner(virtual.NewScanner(infos...))
		reg.RegisterTransport(device.KindVirtual, virtual.Factory)
		log.Info("virtual devices enabled", zap.Int("count", len(infos)))
	}
	return t
}
