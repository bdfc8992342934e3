package ev3

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/taoyao-code/cwc-bridge/internal/event"
	"github.com/taoyao-code/cwc-bridge/internal/monitoring"
	"go.uber.org/zap"
)

const (
	ChannelSensors     = "sensors"
	ChannelDeviceTypes = "device_types"
)

const (
	SensorInterval     = 250 * time.Millisecond
	DeviceTypeInterval = 2000 * time.Millisecond
)

// Monitoring EV3 轮询：定期刷新端口设备列表，并按列表读取传感器
type Monitoring struct {
	*monitoring.Monitor

	mu      sync.Mutex
	sensors []DeviceInfo
	remove  func()
}

// NewMonitoring 创建轮询，监听总线上的设备列表事件
func NewMonitoring(api *API, bus *event.Bus, log *zap.Logger) *Monitoring {
	m := &Monitoring{}
	m.remove = bus.Listen(EventDeviceTypes, func(ev event.Event) {
		if types, ok := event.As[DeviceTypes](ev); ok {
			m.setSensors(types.Sensors())
		}
	})
	m.Monitor = monitoring.New(Family, log,
		monitoring.Channel{Name: ChannelSensors, Interval: SensorInterval, Poll: func(ctx context.Context) error {
			return m.readSensors(ctx, api)
		}},
		monitoring.Channel{Name: ChannelDeviceTypes, Interval: DeviceTypeInterval, Poll: api.GetDeviceTypes},
	)
	return m
}

func (m *Monitoring) setSensors(s []DeviceInfo) {
	m.mu.Lock()
	m.sensors = s
	m.mu.Unlock()
}

// Sensors 当前已知的传感器端口
func (m *Monitoring) Sensors() []DeviceInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DeviceInfo(nil), m.sensors...)
}

func (m *Monitoring) readSensors(ctx context.Context, api *API) error {
	var errs []error
	for _, s := range m.Sensors() {
		if err := api.ReadSensor(ctx, s.Port, s.Mode); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CleanUp 停止轮询并移除总线监听
func (m *Monitoring) CleanUp() {
	m.Monitor.CleanUp()
	m.mu.Lock()
	remove := m.remove
	m.remove = nil
	m.sensors = nil
	m.mu.Unlock()
	if remove != nil {
		remove()
	}
}
