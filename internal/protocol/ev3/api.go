package ev3

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// Sender 设备发送能力
type Sender interface {
	Send(ctx context.Context, frame []byte) error
}

// API EV3 高层命令，每个方法生成一条直接命令
type API struct {
	sender  Sender
	pending *Pending
	counter atomic.Uint32
	left    OutputPort
	right   OutputPort
	volume  int
	log     *zap.Logger
}

// Option API 选项
type Option func(*API)

// WithDrivePorts 设置左右驱动电机端口，默认 B/C
func WithDrivePorts(left, right OutputPort) Option {
	return func(a *API) { a.left, a.right = left, right }
}

// WithVolume 设置默认音量（0..100）
func WithVolume(v int) Option {
	return func(a *API) { a.volume = v }
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAPI 创建 API；pending 为空时查询类命令的应答不会被解码
func NewAPI(sender Sender, pending *Pending, opts ...Option) *API {
	a := &API{sender: sender, pending: pending, left: PortB, right: PortC, volume: 50, log: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *API) send(ctx context.Context, b *Buffer, req *request) error {
	counter := uint16(a.counter.Add(1))
	frame, err := b.ReadSigned(counter)
	if err != nil {
		return err
	}
	if req != nil && a.pending != nil {
		a.pending.add(counter, *req)
	}
	if err := a.sender.Send(ctx, frame); err != nil {
		if req != nil && a.pending != nil {
			a.pending.take(counter)
		}
		a.log.Debug("ev3 send failed", zap.Uint16("counter", counter), zap.Error(err))
		return err
	}
	return nil
}

func (a *API) drive() OutputPort { return a.left | a.right }

func power(b *Buffer, ports OutputPort, p int) *Buffer {
	return b.Op(OpOutputPower).LC0(0).LC0(int(ports)).Value(clamp(p, -100, 100))
}

func start(b *Buffer, ports OutputPort) *Buffer {
	return b.Op(OpOutputStart).LC0(0).LC0(int(ports))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func boolByte(v bool) int {
	if v {
		return 1
	}
	return 0
}

// SetMotorPower 设置电机功率并启动（-100..100）
func (a *API) SetMotorPower(ctx context.Context, ports OutputPort, p int) error {
	b := NewBuffer()
	power(b, ports, p)
	start(b, ports)
	return a.send(ctx, b, nil)
}

// MovePower 驱动电机同向运行
func (a *API) MovePower(ctx context.Context, p int) error {
	return a.SetMotorPower(ctx, a.drive(), p)
}

// RotatePower 驱动电机反向运行，正值向右
func (a *API) RotatePower(ctx context.Context, p int) error {
	b := NewBuffer()
	power(b, a.left, p)
	power(b, a.right, -p)
	start(b, a.drive())
	return a.send(ctx, b, nil)
}

// MoveSteps 同步前进 steps 度
func (a *API) MoveSteps(ctx context.Context, steps, speed int, brake bool) error {
	return a.stepSync(ctx, steps, speed, 0, brake)
}

// RotateSteps 原地旋转，steps 为电机转角，正值向右
func (a *API) RotateSteps(ctx context.Context, steps, speed int, brake bool) error {
	turn := 200
	if steps < 0 {
		turn, steps = -200, -steps
	}
	return a.stepSync(ctx, steps, speed, turn, brake)
}

func (a *API) stepSync(ctx context.Context, steps, speed, turn int, brake bool) error {
	if steps < 0 {
		steps, speed = -steps, -speed
	}
	b := NewBuffer().Op(OpOutputStepSync).
		LC0(0).LC0(int(a.drive())).
		Value(clamp(speed, -100, 100)).
		Value(turn).
		Value(steps).
		LC0(boolByte(brake))
	return a.send(ctx, b, nil)
}

// Stop 停止电机，brake 为 true 时刹车
func (a *API) Stop(ctx context.Context, ports OutputPort, brake bool) error {
	b := NewBuffer().Op(OpOutputStop).LC0(0).LC0(int(ports)).LC0(boolByte(brake))
	return a.send(ctx, b, nil)
}

// ClearMotorPositions 清零转角计数
func (a *API) ClearMotorPositions(ctx context.Context, ports OutputPort) error {
	return a.send(ctx, NewBuffer().Op(OpOutputClearCount).LC0(0).LC0(int(ports)), nil)
}

// SetLed 设置按键背光
func (a *API) SetLed(ctx context.Context, pattern LEDPattern) error {
	if pattern < LEDOff || pattern > LEDOrangePulse {
		return fmt.Errorf("ev3 led pattern %d out of range", pattern)
	}
	return a.send(ctx, NewBuffer().Op(OpUIWrite).Op(UIWriteLED).LC0(int(pattern)), nil)
}

// PlayTone 播放音调
func (a *API) PlayTone(ctx context.Context, frequency, durationMs int) error {
	b := NewBuffer().Op(OpSound).Op(SoundTone).
		Value(clamp(a.volume, 0, 100)).LC2(frequency).LC2(durationMs)
	return a.send(ctx, b, nil)
}

// PlaySound 播放设备上的声音文件（不含扩展名）
func (a *API) PlaySound(ctx context.Context, name string) error {
	b := NewBuffer().Op(OpSound).Op(SoundPlay).Value(clamp(a.volume, 0, 100)).LCS(name)
	return a.send(ctx, b, nil)
}

// ShowImage 清屏并显示设备上的图片文件
func (a *API) ShowImage(ctx context.Context, name string) error {
	b := NewBuffer().
		Op(OpUIDraw).Op(UIDrawFillWindow).LC0(0).LC0(0).LC0(0).
		Op(OpUIDraw).Op(UIDrawBmpFile).LC0(1).LC0(0).LC0(0).LCS(name).
		Op(OpUIDraw).Op(UIDrawUpdate)
	return a.send(ctx, b, nil)
}

// ClearScreen 清屏
func (a *API) ClearScreen(ctx context.Context) error {
	b := NewBuffer().
		Op(OpUIDraw).Op(UIDrawFillWindow).LC0(0).LC0(0).LC0(0).
		Op(OpUIDraw).Op(UIDrawUpdate)
	return a.send(ctx, b, nil)
}

// GetDeviceTypes 查询全部端口的设备类型与模式
func (a *API) GetDeviceTypes(ctx context.Context) error {
	b := NewBuffer()
	for _, port := range AllInputs {
		b.Op(OpInputDevice).Op(InputGetTypeMode).LC0(0).Value(int(port))
		b.Global(1)
		b.Global(1)
	}
	return a.send(ctx, b, &request{kind: replyDeviceTypes})
}

// ReadSensor 以指定模式读取传感器 SI 值
func (a *API) ReadSensor(ctx context.Context, port InputPort, mode int) error {
	b := NewBuffer().Op(OpInputDevice).Op(InputReadySI).
		LC0(0).Value(int(port)).LC0(0).Value(mode).LC0(1)
	b.Global(4)
	return a.send(ctx, b, &request{kind: replySensor, input: port, mode: mode})
}

// GetMotorPosition 读取单个电机转角
func (a *API) GetMotorPosition(ctx context.Context, port OutputPort) error {
	idx := port.Index()
	if idx < 0 {
		return fmt.Errorf("ev3 motor position: single port required, got %s", port)
	}
	b := NewBuffer().Op(OpOutputGetCount).LC0(0).LC0(idx)
	b.Global(4)
	return a.send(ctx, b, &request{kind: replyMotorPosition, output: port})
}
