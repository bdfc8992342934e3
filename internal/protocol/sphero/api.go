package sphero

import (
	"context"

	"go.uber.org/zap"
)

// Sender 设备发送能力（device.Device 实现）
// 设备未连接时返回 device.ErrNotConnected
type Sender interface {
	Send(ctx context.Context, frame []byte) error
}

// CollisionConfig 碰撞检测参数
type CollisionConfig struct {
	Method     int // 0x00 关闭，0x01 默认算法
	ThresholdX int
	SpeedX     int
	ThresholdY int
	SpeedY     int
	DeadTime   int // 单位 10ms
}

// DefaultCollisionConfig 默认碰撞检测参数
func DefaultCollisionConfig() CollisionConfig {
	return CollisionConfig{Method: 0x01, ThresholdX: 0x60, SpeedX: 0x60, ThresholdY: 0x60, SpeedY: 0x60, DeadTime: 0x0A}
}

// API Sphero 高层命令：每个方法构造一帧并交给设备
type API struct {
	sender  Sender
	variant Variant
	log     *zap.Logger
}

// Option API 选项
type Option func(*API)

// WithVariant 设置设备型号
func WithVariant(v Variant) Option {
	return func(a *API) {
		if v != "" {
			a.variant = v
		}
	}
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAPI 创建 API
func NewAPI(sender Sender, opts ...Option) *API {
	a := &API{sender: sender, variant: VariantClassic, log: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Variant 返回设备型号
func (a *API) Variant() Variant { return a.variant }

func (a *API) send(ctx context.Context, b *Buffer) error {
	frame, err := b.ReadSigned()
	if err != nil {
		return err
	}
	if err := a.sender.Send(ctx, frame); err != nil {
		a.log.Debug("sphero send failed", zap.Stringer("cmd", b.CommandID()), zap.Error(err))
		return err
	}
	return nil
}

// SetRGB 设置主 LED 颜色，persist 为 true 时写入为上电默认色
func (a *API) SetRGB(ctx context.Context, r, g, b int, persist bool) error {
	return a.send(ctx, NewBuffer(CmdSetRGBLed, CallbackNone).PutByte(r).PutByte(g).PutByte(b).PutBool(persist))
}

// SetBackLed 设置尾灯亮度
func (a *API) SetBackLed(ctx context.Context, brightness int) error {
	return a.send(ctx, NewBuffer(CmdSetBackLed, CallbackNone).PutByte(brightness))
}

// Roll 以 speed(0-255) 朝 heading(0-359) 滚动
func (a *API) Roll(ctx context.Context, speed, heading int, state RollState) error {
	return a.send(ctx, NewBuffer(CmdRoll, CallbackNone).PutByte(speed).PutShort(heading).PutByte(int(state)))
}

// Stop 停止滚动
func (a *API) Stop(ctx context.Context) error {
	return a.Roll(ctx, 0, 0, RollStop)
}

// Boost 开关加速
func (a *API) Boost(ctx context.Context, enable bool) error {
	return a.send(ctx, NewBuffer(CmdBoost, CallbackNone).PutBool(enable))
}

// SetHeading 校准：将当前朝向设为 heading
func (a *API) SetHeading(ctx context.Context, heading int) error {
	return a.send(ctx, NewBuffer(CmdSetHeading, CallbackNone).PutShort(heading))
}

// SetStabilization 开关自稳
func (a *API) SetStabilization(ctx context.Context, enable bool) error {
	return a.send(ctx, NewBuffer(CmdSetStabilization, CallbackNone).PutBool(enable))
}

// SetRotationRate 设置转向速率
func (a *API) SetRotationRate(ctx context.Context, rate int) error {
	return a.send(ctx, NewBuffer(CmdSetRotationRate, CallbackNone).PutByte(rate))
}

// SetMotionTimeout 设置运动超时（毫秒）
func (a *API) SetMotionTimeout(ctx context.Context, ms int) error {
	return a.send(ctx, NewBuffer(CmdSetMotionTimeout, CallbackNone).PutShort(ms))
}

// SetCollisionDetection 配置碰撞检测，碰撞以异步消息上报
func (a *API) SetCollisionDetection(ctx context.Context, cfg CollisionConfig) error {
	b := NewBuffer(CmdConfigureCollision, CallbackNone).
		PutByte(cfg.Method).
		PutByte(cfg.ThresholdX).
		PutByte(cfg.SpeedX).
		PutByte(cfg.ThresholdY).
		PutByte(cfg.SpeedY).
		PutByte(cfg.DeadTime)
	return a.send(ctx, b)
}

// ConfigureLocator 设置定位器原点与航向修正
func (a *API) ConfigureLocator(ctx context.Context, flags, x, y, yawTare int) error {
	return a.send(ctx, NewBuffer(CmdConfigureLocator, CallbackNone).PutByte(flags).PutShort(x).PutShort(y).PutShort(yawTare))
}

// SetRawMotors 直接控制左右电机
func (a *API) SetRawMotors(ctx context.Context, leftMode byte, leftPower int, rightMode byte, rightPower int) error {
	b := NewBuffer(CmdSetRawMotors, CallbackNone).
		PutByte(int(leftMode)).PutByte(leftPower).
		PutByte(int(rightMode)).PutByte(rightPower)
	return a.send(ctx, b)
}

// Sleep 立即休眠
func (a *API) Sleep(ctx context.Context) error {
	return a.send(ctx, NewBuffer(CmdSleep, CallbackNone).PutShort(0).PutByte(0).PutShort(0))
}

// Ping 连通性检查，应答以 EventPong 上报
func (a *API) Ping(ctx context.Context) error {
	return a.send(ctx, NewBuffer(CmdPing, CallbackPing))
}

// GetVersion 请求版本
func (a *API) GetVersion(ctx context.Context) error {
	return a.send(ctx, NewBuffer(CmdVersion, CallbackVersion))
}

// GetPowerState 请求电源状态
func (a *API) GetPowerState(ctx context.Context) error {
	return a.send(ctx, NewBuffer(CmdGetPowerState, CallbackPowerState))
}

// GetLocation 请求定位器数据，应答转换为位置/速度/对地速度事件
func (a *API) GetLocation(ctx context.Context) error {
	return a.send(ctx, NewBuffer(CmdReadLocator, CallbackLocation))
}

// GetRGB 请求当前 LED 颜色
func (a *API) GetRGB(ctx context.Context) error {
	return a.send(ctx, NewBuffer(CmdGetRGBLed, CallbackRGB))
}
