package mbot

import (
	"context"

	mb "github.com/taoyao-code/cwc-bridge/internal/protocol/makeblock"
	"go.uber.org/zap"
)

// API mBot 高层命令
type API struct {
	sender mb.Sender
	log    *zap.Logger
}

// NewAPI 创建 API
func NewAPI(sender mb.Sender, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{sender: sender, log: log}
}

func (a *API) send(ctx context.Context, b *mb.Buffer) error {
	frame, err := b.ReadSigned()
	if err != nil {
		return err
	}
	if err := a.sender.Send(ctx, frame); err != nil {
		a.log.Debug("mbot send failed", zap.Binary("frame", frame), zap.Error(err))
		return err
	}
	return nil
}

// SetRGB 设置板载 LED，position 为 LEDAll/LEDRight/LEDLeft
func (a *API) SetRGB(ctx context.Context, position, r, g, b int) error {
	return a.send(ctx, mb.NewBuffer(mb.IndexNone, mb.ActionRun, mb.DeviceRGBLed).
		PutPort(PortOnBoard).PutSlot(SlotRGB).
		PutByte(position).PutByte(r).PutByte(g).PutByte(b))
}

// PlayTone 蜂鸣器发声
func (a *API) PlayTone(ctx context.Context, frequency, durationMs int) error {
	return a.send(ctx, mb.NewBuffer(mb.IndexNone, mb.ActionRun, mb.DeviceTone).
		PutShort(frequency).PutShort(durationMs))
}

// SetJoystick 直接设置左右轮功率（-255..255）
func (a *API) SetJoystick(ctx context.Context, left, right int) error {
	return a.send(ctx, mb.NewBuffer(mb.IndexNone, mb.ActionRun, mb.DeviceJoystick).
		PutShort(left).PutShort(right))
}

// MovePower 前进（负值后退），左轮电机镜像安装
func (a *API) MovePower(ctx context.Context, power int) error {
	return a.SetJoystick(ctx, -power, power)
}

// RotatePower 原地旋转，正值向右
func (a *API) RotatePower(ctx context.Context, power int) error {
	return a.SetJoystick(ctx, power, power)
}

// SetMotorPower 单独设置 M1/M2 电机
func (a *API) SetMotorPower(ctx context.Context, port byte, power int) error {
	return a.send(ctx, mb.NewBuffer(mb.IndexNone, mb.ActionRun, mb.DeviceMotor).
		PutPort(port).PutShort(power))
}

// Stop 停止两个电机
func (a *API) Stop(ctx context.Context) error {
	return a.SetJoystick(ctx, 0, 0)
}

// SetServo 舵机角度（0..180）
func (a *API) SetServo(ctx context.Context, port, slot byte, angle int) error {
	return a.send(ctx, mb.NewBuffer(mb.IndexNone, mb.ActionRun, mb.DeviceServo).
		PutPort(port).PutSlot(slot).PutByte(angle))
}

// Reset 复位主板
func (a *API) Reset(ctx context.Context) error {
	return a.send(ctx, mb.NewActionBuffer(mb.IndexNone, mb.ActionReset))
}

// GetVersion 读取固件版本
func (a *API) GetVersion(ctx context.Context) error {
	return a.send(ctx, mb.NewBuffer(mb.IndexVersion, mb.ActionGet, mb.DeviceVersion))
}

// GetUltrasonic 读取超声波距离
func (a *API) GetUltrasonic(ctx context.Context) error {
	return a.send(ctx, mb.NewBuffer(mb.IndexUltrasonic, mb.ActionGet, mb.DeviceUltrasonic).
		PutPort(PortUltrasonic))
}

// GetLightSensor 读取板载光线传感器
func (a *API) GetLightSensor(ctx context.Context) error {
	return a.send(ctx, mb.NewBuffer(mb.IndexLightSensor, mb.ActionGet, mb.DeviceLightSensor).
		PutPort(PortLightOnBoard))
}

// GetLineFollower 读取巡线传感器
func (a *API) GetLineFollower(ctx context.Context) error {
	return a.send(ctx, mb.NewBuffer(mb.IndexLineFollower, mb.ActionGet, mb.DeviceLineFollower).
		PutPort(PortLineFollower))
}

// GetButton 读取板载按键，期望状态字节为 0 时应答 1 表示按下
func (a *API) GetButton(ctx context.Context) error {
	return a.send(ctx, mb.NewBuffer(mb.IndexButton, mb.ActionGet, mb.DeviceButtonInner).
		PutPort(PortOnBoard).PutByte(0))
}
