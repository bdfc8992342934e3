package mbot

import (
	"time"

	"github.com/taoyao-code/cwc-bridge/internal/monitoring"
	"go.uber.org/zap"
)

// 监控通道
const (
	ChannelLineFollower = "line_follower"
	ChannelLight        = "light"
	ChannelUltrasonic   = "ultrasonic"
)

// 轮询间隔
const (
	LineFollowerInterval = 100 * time.Millisecond
	LightInterval        = 1000 * time.Millisecond
	UltrasonicInterval   = 200 * time.Millisecond
)

// NewMonitoring 创建 mBot 传感器轮询
func NewMonitoring(api *API, log *zap.Logger) *monitoring.Monitor {
	return monitoring.New(Family, log,
		monitoring.Channel{Name: ChannelLineFollower, Interval: LineFollowerInterval, Poll: api.GetLineFollower},
		monitoring.Channel{Name: ChannelLight, Interval: LightInterval, Poll: api.GetLightSensor},
		monitoring.Channel{Name: ChannelUltrasonic, Interval: UltrasonicInterval, Poll: api.GetUltrasonic},
	)
}

// SetLineFollowerMonitor 单独开关巡线轮询
func SetLineFollowerMonitor(m *monitoring.Monitor, enabled bool) error {
	return m.SetChannelEnabled(ChannelLineFollower, enabled)
}
