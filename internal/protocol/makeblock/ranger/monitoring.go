package ranger

import (
	"context"
	"time"

	"github.com/taoyao-code/cwc-bridge/internal/monitoring"
	"go.uber.org/zap"
)

const (
	ChannelLineFollower = "line_follower"
	ChannelLight        = "light"
	ChannelUltrasonic   = "ultrasonic"
	ChannelTemperature  = "temperature"
)

const (
	LineFollowerInterval = 100 * time.Millisecond
	LightInterval        = 1000 * time.Millisecond
	UltrasonicInterval   = 200 * time.Millisecond
	TemperatureInterval  = 1000 * time.Millisecond
)

// NewMonitoring 创建 Ranger 传感器轮询，光线通道依次读取两个传感器
func NewMonitoring(api *API, log *zap.Logger) *monitoring.Monitor {
	light := func(ctx context.Context) error {
		if err := api.GetLightSensor(ctx, 1); err != nil {
			return err
		}
		return api.GetLightSensor(ctx, 2)
	}
	return monitoring.New(Family, log,
		monitoring.Channel{Name: ChannelLineFollower, Interval: LineFollowerInterval, Poll: api.GetLineFollower},
		monitoring.Channel{Name: ChannelLight, Interval: LightInterval, Poll: light},
		monitoring.Channel{Name: ChannelUltrasonic, Interval: UltrasonicInterval, Poll: api.GetUltrasonic},
		monitoring.Channel{Name: ChannelTemperature, Interval: TemperatureInterval, Poll: api.GetTemperature},
	)
}
