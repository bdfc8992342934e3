package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taoyao-code/cwc-bridge/internal/device"
	"github.com/taoyao-code/cwc-bridge/internal/event"
	"github.com/taoyao-code/cwc-bridge/internal/runner"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 自定义业务指标
type AppMetrics struct {
	FramesSent      *prometheus.CounterVec // labels: family, result=ok|error
	FramesReceived  *prometheus.CounterVec // labels: family
	BytesReceived   prometheus.Counter
	DecodeErrors    *prometheus.CounterVec // labels: family
	MonitorPolls    *prometheus.CounterVec // labels: family, channel, result
	RunnerCommands  *prometheus.CounterVec // labels: family, result=ok|unknown|invalid|error
	RunnerRejected  prometheus.Counter
	Reconnects      *prometheus.CounterVec // labels: result
	ConnectedGauge  prometheus.Gauge       // 当前已连接设备数
	DiscoveredGauge prometheus.Gauge       // 最近一次扫描的设备数
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cwc_frames_sent_total",
			Help: "Frames written to devices.",
		}, []string{"family", "result"}),
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cwc_frames_received_total",
			Help: "Inbound chunks read from devices.",
		}, []string{"family"}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cwc_bytes_received_total",
			Help: "Total bytes received from devices.",
		}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cwc_decode_errors_total",
			Help: "Inbound frames that failed to decode.",
		}, []string{"family"}),
		MonitorPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cwc_monitor_polls_total",
			Help: "Monitoring poll requests by channel.",
		}, []string{"family", "channel", "result"}),
		RunnerCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cwc_runner_commands_total",
			Help: "Runner commands by result.",
		}, []string{"family", "result"}),
		RunnerRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cwc_runner_rate_limited_total",
			Help: "Runner commands rejected by the rate limiter.",
		}),
		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cwc_reconnect_attempts_total",
			Help: "Automatic reconnect attempts.",
		}, []string{"result"}),
		ConnectedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cwc_connected_devices",
			Help: "Current number of connected devices.",
		}),
		DiscoveredGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cwc_discovered_devices",
			Help: "Devices found by the last scan.",
		}),
	}
	reg.MustRegister(m.FramesSent, m.FramesReceived, m.BytesReceived, m.DecodeErrors, m.MonitorPolls,
		m.RunnerCommands, m.RunnerRejected, m.Reconnects, m.ConnectedGauge, m.DiscoveredGauge)
	return m
}

// Result ok|error
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveCommand runner.Observer 实现
func (m *AppMetrics) ObserveCommand(family, _ string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, runner.ErrUnknownCommand):
		result = "unknown"
	case errors.Is(err, runner.ErrInvalidValue):
		result = "invalid"
	default:
		result = "error"
	}
	if family == "" {
		family = "none"
	}
	m.RunnerCommands.WithLabelValues(family, result).Inc()
}

// ObservePoll mode.Options.OnPoll 实现
func (m *AppMetrics) ObservePoll(family, channel string, err error) {
	m.MonitorPolls.WithLabelValues(family, channel, Result(err)).Inc()
}

// ObserveReconnect connection.Manager.OnAttempt 实现
func (m *AppMetrics) ObserveReconnect(_ string, err error) {
	m.Reconnects.WithLabelValues(Result(err)).Inc()
}

func familyLabel(d *device.Device) string {
	if f := d.Info().Family; f != "" {
		return f
	}
	return "unknown"
}

// DeviceHooks 设备收发计数
func (m *AppMetrics) DeviceHooks() device.Hooks {
	return device.Hooks{
		OnSend: func(d *device.Device, _ []byte, err error) {
			m.FramesSent.WithLabelValues(familyLabel(d), Result(err)).Inc()
		},
		OnReceive: func(d *device.Device, p []byte) {
			m.FramesReceived.WithLabelValues(familyLabel(d)).Inc()
			m.BytesReceived.Add(float64(len(p)))
		},
		OnDecodeError: func(d *device.Device, _ error) {
			m.DecodeErrors.WithLabelValues(familyLabel(d)).Inc()
		},
	}
}

// WatchDevices 根据总线事件维护连接数与发现数，返回取消函数
func (m *AppMetrics) WatchDevices(bus *event.Bus, connected func() int) func() {
	offState := bus.Listen(device.EventStateChanged, func(event.Event) {
		m.ConnectedGauge.Set(float64(connected()))
	})
	offList := bus.Listen(device.EventDevicesUpdated, func(ev event.Event) {
		if list, ok := event.As[[]device.Info](ev); ok {
			m.DiscoveredGauge.Set(float64(len(list)))
		}
	})
	return func() {
		offState()
		offList()
	}
}
