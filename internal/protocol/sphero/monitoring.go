package sphero

import (
	"time"

	"github.com/taoyao-code/cwc-bridge/internal/monitoring"
	"go.uber.org/zap"
)

// 监控通道
const (
	ChannelLocation = "location"
)

// LocationInterval 位置轮询间隔
const LocationInterval = 1000 * time.Millisecond

// NewMonitoring 创建 Sphero 遥测轮询：每秒读取一次定位器
func NewMonitoring(api *API, log *zap.Logger) *monitoring.Monitor {
	return monitoring.New("sphero", log, monitoring.Channel{
		Name:     ChannelLocation,
		Interval: LocationInterval,
		Poll:     api.GetLocation,
	})
}
