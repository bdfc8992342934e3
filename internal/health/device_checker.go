package health

import (
	"context"
	"time"

	"github.com/taoyao-code/cwc-bridge/internal/device"
	"github.com/taoyao-code/cwc-bridge/internal/transport/ble"
)

// DeviceLister 设备注册表视图
type DeviceLister interface {
	List() []device.Info
	Connected() []*device.Device
}

// DeviceChecker 设备发现与连接情况，只提供信息
type DeviceChecker struct {
	devices DeviceLister
}

// NewDeviceChecker 创建检查器
func NewDeviceChecker(devices DeviceLister) *DeviceChecker {
	return &DeviceChecker{devices: devices}
}

// Name 检查器名称
func (c *DeviceChecker) Name() string {
	return "devices"
}

// Check 执行检查
func (c *DeviceChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	kinds := map[string]int{}
	for _, info := range c.devices.List() {
		kinds[string(info.Kind)]++
	}
	connected := make([]string, 0)
	for _, d := range c.devices.Connected() {
		connected = append(connected, d.ID())
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]interface{}{
			"discovered": kinds,
			"connected":  connected,
		},
		Latency: time.Since(start),
	}
}

// BluetoothChecker 蓝牙适配器状态，未启用时降级
type BluetoothChecker struct {
	state *ble.AdapterState
}

// NewBluetoothChecker 创建检查器
func NewBluetoothChecker(state *ble.AdapterState) *BluetoothChecker {
	return &BluetoothChecker{state: state}
}

// Name 检查器名称
func (c *BluetoothChecker) Name() string {
	return "bluetooth"
}

// Check 执行检查
func (c *BluetoothChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	info := c.state.Info()

	status := StatusHealthy
	message := "ok"
	switch {
	case !info.Available:
		status, message = StatusDegraded, "adapter not available"
	case !info.Powered:
		status, message = StatusDegraded, "adapter powered off"
	case !info.Prepared:
		status, message = StatusDegraded, "adapter not prepared"
	}

	return CheckResult{
		Status:  status,
		Message: message,
		Details: map[string]interface{}{
			"available": info.Available,
			"powered":   info.Powered,
			"prepared":  info.Prepared,
			"enabled":   info.Enabled,
		},
		Latency: time.Since(start),
	}
}
