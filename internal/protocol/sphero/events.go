package sphero

import (
	"encoding/binary"
	"fmt"

	"github.com/taoyao-code/cwc-bridge/internal/event"
)

// 事件类型
const (
	EventLocation   event.Type = "sphero.location"
	EventVelocity   event.Type = "sphero.velocity"
	EventSpeed      event.Type = "sphero.speed"
	EventCollision  event.Type = "sphero.collision"
	EventRGB        event.Type = "sphero.rgb"
	EventPowerState event.Type = "sphero.power_state"
	EventVersion    event.Type = "sphero.version"
	EventPong       event.Type = "sphero.pong"
	EventError      event.Type = "sphero.error"
)

// Location 定位器数据（厘米）
type Location struct {
	X int16 `json:"x"`
	Y int16 `json:"y"`
}

// Velocity 速度分量（厘米/秒）
type Velocity struct {
	X int16 `json:"x"`
	Y int16 `json:"y"`
}

// Collision 碰撞检测异步消息
type Collision struct {
	X          int16  `json:"x"`
	Y          int16  `json:"y"`
	Z          int16  `json:"z"`
	Axis       byte   `json:"axis"`
	MagnitudeX int16  `json:"magnitude_x"`
	MagnitudeY int16  `json:"magnitude_y"`
	Speed      byte   `json:"speed"`
	Timestamp  uint32 `json:"timestamp"`
}

// RGB LED 颜色
type RGB struct {
	R byte `json:"r"`
	G byte `json:"g"`
	B byte `json:"b"`
}

// PowerState 电源状态
type PowerState struct {
	State          string  `json:"state"`
	BatteryVoltage float64 `json:"battery_voltage"`
	Charges        uint16  `json:"charges"`
	SecondsAwake   uint16  `json:"seconds_awake"`
}

// Version 固件版本
type Version struct {
	Model    byte   `json:"model"`
	Hardware byte   `json:"hardware"`
	App      string `json:"app"`
}

// ResponseError 非 OK 的同步应答
type ResponseError struct {
	Code     byte         `json:"code"`
	Callback CallbackType `json:"callback"`
}

func (e ResponseError) Error() string {
	return fmt.Sprintf("sphero response code 0x%02X for callback 0x%02X", e.Code, byte(e.Callback))
}

// LocationChanged 位置事件
func LocationChanged(loc Location, source string) event.Event {
	return event.New(EventLocation, loc, source)
}

// VelocityChanged 速度事件
func VelocityChanged(v Velocity, source string) event.Event {
	return event.New(EventVelocity, v, source)
}

// SpeedChanged 对地速度事件
func SpeedChanged(speed uint16, source string) event.Event {
	return event.New(EventSpeed, speed, source)
}

// CollisionDetected 碰撞事件
func CollisionDetected(c Collision, source string) event.Event {
	return event.New(EventCollision, c, source)
}

// RGBChanged LED 颜色事件
func RGBChanged(c RGB, source string) event.Event {
	return event.New(EventRGB, c, source)
}

// PowerStateChanged 电源事件
func PowerStateChanged(p PowerState, source string) event.Event {
	return event.New(EventPowerState, p, source)
}

// VersionReceived 版本事件
func VersionReceived(v Version, source string) event.Event {
	return event.New(EventVersion, v, source)
}

// Pong ping 应答事件
func Pong(source string) event.Event {
	return event.New(EventPong, nil, source)
}

// Error 设备报告的错误应答
func Error(e ResponseError, source string) event.Event {
	return event.New(EventError, e, source)
}

// 载荷解码
func decodeLocator(data []byte) (Location, Velocity, uint16, error) {
	if len(data) < 10 {
		return Location{}, Velocity{}, 0, fmt.Errorf("%w: locator needs 10 bytes, got %d", ErrShortFrame, len(data))
	}
	be := binary.BigEndian
	loc := Location{X: int16(be.Uint16(data[0:2])), Y: int16(be.Uint16(data[2:4]))}
	vel := Velocity{X: int16(be.Uint16(data[4:6])), Y: int16(be.Uint16(data[6:8]))}
	return loc, vel, be.Uint16(data[8:10]), nil
}

func decodeCollision(data []byte) (Collision, error) {
	if len(data) < 16 {
		return Collision{}, fmt.Errorf("%w: collision needs 16 bytes, got %d", ErrShortFrame, len(data))
	}
	be := binary.BigEndian
	return Collision{
		X:          int16(be.Uint16(data[0:2])),
		Y:          int16(be.Uint16(data[2:4])),
		Z:          int16(be.Uint16(data[4:6])),
		Axis:       data[6],
		MagnitudeX: int16(be.Uint16(data[7:9])),
		MagnitudeY: int16(be.Uint16(data[9:11])),
		Speed:      data[11],
		Timestamp:  be.Uint32(data[12:16]),
	}, nil
}

func decodePowerState(data []byte) (PowerState, error) {
	if len(data) < 8 {
		return PowerState{}, fmt.Errorf("%w: power state needs 8 bytes, got %d", ErrShortFrame, len(data))
	}
	be := binary.BigEndian
	state, ok := powerStates[data[1]]
	if !ok {
		state = "unknown"
	}
	return PowerState{
		State:          state,
		BatteryVoltage: float64(be.Uint16(data[2:4])) / 100,
		Charges:        be.Uint16(data[4:6]),
		SecondsAwake:   be.Uint16(data[6:8]),
	}, nil
}

func decodeVersion(data []byte) (Version, error) {
	if len(data) < 5 {
		return Version{}, fmt.Errorf("%w: version needs 5 bytes, got %d", ErrShortFrame, len(data))
	}
	return Version{Model: data[1], Hardware: data[2], App: fmt.Sprintf("%d.%d", data[3], data[4])}, nil
}
