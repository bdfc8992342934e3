package ranger

import (
	"context"
	"fmt"

	mb "github.com/taoyao-code/cwc-bridge/internal/protocol/makeblock"
	"go.uber.org/zap"
)

// API mBot Ranger 高层命令
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
		a.log.Debug("ranger send failed", zap.Binary("frame", frame), zap.Error(err))
		return err
	}
	return nil
}

// SetRGB 设置 LED 环，index 0 为全部，1..12 为单颗
func (a *API) SetRGB(ctx context.Context, index, r, g, b int) error {
	if index < 0 || index > LEDCount {
		return fmt.Errorf("ranger led index %d out of range 0..%d", index, LEDCount)
	}
	return a.send(ctx, mb.NewBuffer(mb.IndexNone, mb.ActionRun, mb.DeviceRGBLed).
		PutPort(PortRGBOnBoard).PutSlot(SlotRGB).
		PutByte(index).PutByte(r).PutByte(g).PutByte(b))
}

// PlayTone 蜂鸣器发声
func (a *API) PlayTone(ctx context.Context, frequency, durationMs int) error {
	return a.send(ctx, mb.NewBuffer(mb.IndexNone, mb.ActionRun, mb.DeviceTone).
		PutPort(PinBuzzer).PutShort(frequency).PutShort(durationMs))
}

// SetEncoderMotor 设置板载编码电机速度
func (a *API) SetEncoderMotor(ctx context.Context, slot byte, speed int) error {
	return a.send(ctx, mb.NewBuffer(mb.IndexNone, mb.ActionRun, mb.DeviceEncoderBoard).
		PutPort(0x00).PutSlot(slot).PutShort(speed))
}

// MovePower 前进（负值后退）
func (a *API) MovePower(ctx context.Context, power int) error {
	if err := a.SetEncoderMotor(ctx, SlotMotorOne, -power); err != nil {
		return err
	}
	return a.SetEncoderMotor(ctx, SlotMotorTwo, power)
}

// RotatePower 原地旋转，正值向右
func (a *API) RotatePower(ctx context.Context, power int) error {
	if err := a.SetEncoderMotor(ctx, SlotMotorOne, power); err != nil {
		return err
	}
	return a.SetEncoderMotor(ctx, SlotMotorTwo, power)
}

// Stop 停止两个电机
func (a *API) Stop(ctx context.Context) error {
	return a.MovePower(ctx, 0)
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

// GetLightSensor 读取板载光线传感器 1 或 2
func (a *API) GetLightSensor(ctx context.Context, sensor int) error {
	switch sensor {
	case 1:
		return a.send(ctx, mb.NewBuffer(mb.IndexLightSensor, mb.ActionGet, mb.DeviceLightSensor).PutPort(PortLight1))
	case 2:
		return a.send(ctx, mb.NewBuffer(mb.IndexLightSensor2, mb.ActionGet, mb.DeviceLightSensor).PutPort(PortLight2))
	}
	return fmt.Errorf("ranger light sensor %d: want 1 or 2", sensor)
}

// GetLineFollower 读取巡线传感器
func (a *API) GetLineFollower(ctx context.Context) error {
	return a.send(ctx, mb.NewBuffer(mb.IndexLineFollower, mb.ActionGet, mb.DeviceLineFollower).
		PutPort(PortLineFollower))
}

// GetTemperature 读取板载温度
func (a *API) GetTemperature(ctx context.Context) error {
	return a.send(ctx, mb.NewBuffer(mb.IndexTemperature, mb.ActionGet, mb.DeviceTemperatureOnBoard).
		PutPort(PortTemperature))
}

// GetGyro 读取陀螺仪某一轴角度
func (a *API) GetGyro(ctx context.Context, axis int) error {
	var index byte
	switch axis {
	case AxisX:
		index = mb.IndexGyroX
	case AxisY:
		index = mb.IndexGyroY
	case AxisZ:
		index = mb.IndexGyroZ
	default:
		return fmt.Errorf("ranger gyro axis %d: want 1..3", axis)
	}
	return a.send(ctx, mb.NewBuffer(index, mb.ActionGet, mb.DeviceGyro).PutPort(PortGyro).PutByte(axis))
}
