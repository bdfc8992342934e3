package mbot

import (
	"github.com/taoyao-code/cwc-bridge/internal/event"
	mb "github.com/taoyao-code/cwc-bridge/internal/protocol/makeblock"
)

// 事件类型
const (
	EventUltrasonic   event.Type = "mbot.ultrasonic"
	EventLight        event.Type = "mbot.light"
	EventLineFollower event.Type = "mbot.line_follower"
	EventButton       event.Type = "mbot.button"
	EventVersion      event.Type = "mbot.version"
)

// UltrasonicChanged 距离事件（厘米）
func UltrasonicChanged(cm float64, source string) event.Event {
	return event.New(EventUltrasonic, cm, source)
}

// LightChanged 光线事件
func LightChanged(value float64, source string) event.Event {
	return event.New(EventLight, value, source)
}

// LineFollowerChanged 巡线事件
func LineFollowerChanged(raw int, source string) event.Event {
	return event.New(EventLineFollower, mb.NewLineFollower(raw), source)
}

// ButtonChanged 按键事件
func ButtonChanged(pressed bool, source string) event.Event {
	return event.New(EventButton, pressed, source)
}

// VersionReceived 版本事件
func VersionReceived(v string, source string) event.Event {
	return event.New(EventVersion, v, source)
}

// Routes 应答路由
func Routes() mb.Routes {
	return mb.Routes{
		mb.IndexUltrasonic: func(v mb.Value, s string) (event.Event, bool) {
			return UltrasonicChanged(v.Number, s), true
		},
		mb.IndexLightSensor: func(v mb.Value, s string) (event.Event, bool) {
			return LightChanged(v.Number, s), true
		},
		mb.IndexLineFollower: func(v mb.Value, s string) (event.Event, bool) {
			return LineFollowerChanged(int(v.Number), s), true
		},
		mb.IndexButton: func(v mb.Value, s string) (event.Event, bool) {
			return ButtonChanged(v.Number != 0, s), true
		},
		mb.IndexVersion: func(v mb.Value, s string) (event.Event, bool) {
			return VersionReceived(v.Text, s), v.Type == mb.TypeString
		},
	}
}
