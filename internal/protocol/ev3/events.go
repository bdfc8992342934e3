package ev3

import (
	"github.com/taoyao-code/cwc-bridge/internal/event"
)

const (
	EventDeviceTypes   event.Type = "ev3.device_types"
	EventSensor        event.Type = "ev3.sensor"
	EventMotorPosition event.Type = "ev3.motor_position"
	EventError         event.Type = "ev3.error"
)

// DeviceInfo 端口上的设备
type DeviceInfo struct {
	Port InputPort  `json:"port"`
	Type DeviceType `json:"type"`
	Name string     `json:"name"`
	Mode int        `json:"mode"`
}

// DeviceTypes 全部端口设备列表，顺序同 AllInputs
type DeviceTypes []DeviceInfo

// Sensors 返回接有传感器的端口
func (d DeviceTypes) Sensors() []DeviceInfo {
	var out []DeviceInfo
	for _, info := range d {
		if info.Port < InputA && info.Type.IsSensor() {
			out = append(out, info)
		}
	}
	return out
}

// SensorValue 传感器读数（SI 单位）
type SensorValue struct {
	Port  InputPort `json:"port"`
	Mode  int       `json:"mode"`
	Value float32   `json:"value"`
}

// MotorPosition 电机转角（度）
type MotorPosition struct {
	Port    OutputPort `json:"port"`
	Degrees int32      `json:"degrees"`
}

// ReplyError 设备返回 DIRECT_REPLY_ERROR
type ReplyError struct {
	Counter uint16 `json:"counter"`
}

func (e ReplyError) Error() string {
	return "ev3 direct command failed"
}

func DeviceTypesChanged(d DeviceTypes, source string) event.Event {
	return event.New(EventDeviceTypes, d, source)
}

func SensorChanged(v SensorValue, source string) event.Event {
	return event.New(EventSensor, v, source)
}

func MotorPositionChanged(m MotorPosition, source string) event.Event {
	return event.New(EventMotorPosition, m, source)
}

func Error(e ReplyError, source string) event.Event {
	return event.New(EventError, e, source)
}
