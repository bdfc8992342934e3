package ranger

import (
	"github.com/taoyao-code/cwc-bridge/internal/event"
	mb "github.com/taoyao-code/cwc-bridge/internal/protocol/makeblock"
)

const (
	EventUltrasonic   event.Type = "ranger.ultrasonic"
	EventLight        event.Type = "ranger.light"
	EventLineFollower event.Type = "ranger.line_follower"
	EventTemperature  event.Type = "ranger.temperature"
	EventGyro         event.Type = "ranger.gyro"
	EventVersion      event.Type = "ranger.version"
)

// Light 光线传感器读数
type Light struct {
	Sensor int     `json:"sensor"`
	Value  float64 `json:"value"`
}

// Gyro 陀螺仪某一轴角度
type Gyro struct {
	Axis  string  `json:"axis"`
	Angle float64 `json:"angle"`
}

func UltrasonicChanged(cm float64, source string) event.Event {
	return event.New(EventUltrasonic, cm, source)
}

func LightChanged(l Light, source string) event.Event {
	return event.New(EventLight, l, source)
}

func LineFollowerChanged(raw int, source string) event.Event {
	return event.New(EventLineFollower, mb.NewLineFollower(raw), source)
}

func TemperatureChanged(celsius float64, source string) event.Event {
	return event.New(EventTemperature, celsius, source)
}

func GyroChanged(g Gyro, source string) event.Event {
	return event.New(EventGyro, g, source)
}

func VersionReceived(v string, source string) event.Event {
	return event.New(EventVersion, v, source)
}

func gyroRoute(axis string) mb.RouteFunc {
	return func(v mb.Value, s string) (event.Event, bool) {
		return GyroChanged(Gyro{Axis: axis, Angle: v.Number}, s), true
	}
}

// Routes 应答路由
func Routes() mb.Routes {
	return mb.Routes{
		mb.IndexUltrasonic: func(v mb.Value, s string) (event.Event, bool) {
			return UltrasonicChanged(v.Number, s), true
		},
		mb.IndexLightSensor: func(v mb.Value, s string) (event.Event, bool) {
			return LightChanged(Light{Sensor: 1, Value: v.Number}, s), true
		},
		mb.IndexLightSensor2: func(v mb.Value, s string) (event.Event, bool) {
			return LightChanged(Light{Sensor: 2, Value: v.Number}, s), true
		},
		mb.IndexLineFollower: func(v mb.Value, s string) (event.Event, bool) {
			return LineFollowerChanged(int(v.Number), s), true
		},
		mb.IndexTemperature: func(v mb.Value, s string) (event.Event, bool) {
			return TemperatureChanged(v.Number, s), true
		},
		mb.IndexGyroX: gyroRoute("x"),
		mb.IndexGyroY: gyroRoute("y"),
		mb.IndexGyroZ: gyroRoute("z"),
		mb.IndexVersion: func(v mb.Value, s string) (event.Event, bool) {
			return VersionReceived(v.Text, s), v.Type == mb.TypeString
		},
	}
}
