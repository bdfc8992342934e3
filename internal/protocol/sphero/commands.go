package sphero

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/taoyao-code/cwc-bridge/internal/runner"
)

// 命令名（沙箱代码发送的 command 字段）
const (
	NameSetRGB              = "setRGB"
	NameSetBackLed          = "setBackLed"
	NameRoll                = "roll"
	NameStop                = "stop"
	NameBoost               = "boost"
	NameSetCalibration      = "setCalibration"
	NameSetStabilization    = "setStabilization"
	NameSetRotationRate     = "setRotationRate"
	NameSetMotionTimeout    = "setMotionTimeout"
	NameSetCollision        = "setCollisionDetection"
	NameSetRawMotors        = "setRawMotors"
	NameSleep               = "sleep"
	NamePing                = "ping"
	NameGetVersion          = "getVersion"
	NameGetPowerState       = "getPowerState"
	NameGetLocation         = "getLocation"
	NameGetRGB              = "getRGB"
	NameConfigureLocatorCmd = "configureLocator"
)

// Command Sphero 命令集合（封闭）
type Command interface {
	runner.Command
	exec(ctx context.Context, a *API) error
}

// SetRGBCmd 设置 LED 颜色
type SetRGBCmd struct {
	Red     int  `json:"red"`
	Green   int  `json:"green"`
	Blue    int  `json:"blue"`
	Persist bool `json:"persist"`
}

// SetBackLedCmd 尾灯亮度
type SetBackLedCmd struct {
	Brightness int `json:"brightness"`
}

// RollCmd 滚动
type RollCmd struct {
	Speed   int        `json:"speed"`
	Heading int        `json:"heading"`
	State   *RollState `json:"state,omitempty"`
}

// StopCmd 停止
type StopCmd struct{}

// BoostCmd 加速
type BoostCmd struct {
	Enable bool `json:"enable"`
}

// SetCalibrationCmd 航向校准
type SetCalibrationCmd struct {
	Heading int `json:"heading"`
}

// SetStabilizationCmd 自稳
type SetStabilizationCmd struct {
	Enable bool `json:"enable"`
}

// SetRotationRateCmd 转向速率
type SetRotationRateCmd struct {
	Rate int `json:"rate"`
}

// SetMotionTimeoutCmd 运动超时
type SetMotionTimeoutCmd struct {
	Timeout int `json:"timeout"`
}

// SetCollisionCmd 碰撞检测，字段缺省时使用默认参数
type SetCollisionCmd struct {
	Enable bool `json:"enable"`
}

// SetRawMotorsCmd 原始电机
type SetRawMotorsCmd struct {
	LeftMode   byte `json:"leftMode"`
	LeftPower  int  `json:"leftPower"`
	RightMode  byte `json:"rightMode"`
	RightPower int  `json:"rightPower"`
}

// ConfigureLocatorCmd 定位器原点
type ConfigureLocatorCmd struct {
	Flags   int `json:"flags"`
	X       int `json:"x"`
	Y       int `json:"y"`
	YawTare int `json:"yawTare"`
}

// SleepCmd 休眠
type SleepCmd struct{}

// QueryCmd 无参数查询类命令（ping/version/power/location/rgb）
type QueryCmd struct {
	Name string `json:"-"`
}

func (SetRGBCmd) CommandName() string           { return NameSetRGB }
func (SetBackLedCmd) CommandName() string       { return NameSetBackLed }
func (RollCmd) CommandName() string             { return NameRoll }
func (StopCmd) CommandName() string             { return NameStop }
func (BoostCmd) CommandName() string            { return NameBoost }
func (SetCalibrationCmd) CommandName() string   { return NameSetCalibration }
func (SetStabilizationCmd) CommandName() string { return NameSetStabilization }
func (SetRotationRateCmd) CommandName() string  { return NameSetRotationRate }
func (SetMotionTimeoutCmd) CommandName() string { return NameSetMotionTimeout }
func (SetCollisionCmd) CommandName() string     { return NameSetCollision }
func (SetRawMotorsCmd) CommandName() string     { return NameSetRawMotors }
func (ConfigureLocatorCmd) CommandName() string { return NameConfigureLocatorCmd }
func (SleepCmd) CommandName() string            { return NameSleep }
func (c QueryCmd) CommandName() string          { return c.Name }

func (c SetRGBCmd) exec(ctx context.Context, a *API) error {
	return a.SetRGB(ctx, c.Red, c.Green, c.Blue, c.Persist)
}

func (c SetBackLedCmd) exec(ctx context.Context, a *API) error {
	return a.SetBackLed(ctx, c.Brightness)
}

func (c RollCmd) exec(ctx context.Context, a *API) error {
	state := RollGo
	if c.State != nil {
		state = *c.State
	}
	return a.Roll(ctx, c.Speed, c.Heading, state)
}

func (StopCmd) exec(ctx context.Context, a *API) error { return a.Stop(ctx) }

func (c BoostCmd) exec(ctx context.Context, a *API) error { return a.Boost(ctx, c.Enable) }

func (c SetCalibrationCmd) exec(ctx context.Context, a *API) error {
	return a.SetHeading(ctx, c.Heading)
}

func (c SetStabilizationCmd) exec(ctx context.Context, a *API) error {
	return a.SetStabilization(ctx, c.Enable)
}

func (c SetRotationRateCmd) exec(ctx context.Context, a *API) error {
	return a.SetRotationRate(ctx, c.Rate)
}

func (c SetMotionTimeoutCmd) exec(ctx context.Context, a *API) error {
	return a.SetMotionTimeout(ctx, c.Timeout)
}

func (c SetCollisionCmd) exec(ctx context.Context, a *API) error {
	cfg := DefaultCollisionConfig()
	if !c.Enable {
		cfg.Method = 0x00
	}
	return a.SetCollisionDetection(ctx, cfg)
}

func (c SetRawMotorsCmd) exec(ctx context.Context, a *API) error {
	return a.SetRawMotors(ctx, c.LeftMode, c.LeftPower, c.RightMode, c.RightPower)
}

func (c ConfigureLocatorCmd) exec(ctx context.Context, a *API) error {
	return a.ConfigureLocator(ctx, c.Flags, c.X, c.Y, c.YawTare)
}

func (SleepCmd) exec(ctx context.Context, a *API) error { return a.Sleep(ctx) }

func (c QueryCmd) exec(ctx context.Context, a *API) error {
	switch c.Name {
	case NamePing:
		return a.Ping(ctx)
	case NameGetVersion:
		return a.GetVersion(ctx)
	case NameGetPowerState:
		return a.GetPowerState(ctx)
	case NameGetLocation:
		return a.GetLocation(ctx)
	case NameGetRGB:
		return a.GetRGB(ctx)
	}
	return runner.Unknown(c.Name)
}

// ParseCommand 解析命令名与参数
func ParseCommand(name string, value json.RawMessage) (Command, error) {
	var cmd Command
	switch name {
	case NameSetRGB:
		c := SetRGBCmd{}
		if err := runner.DecodeValue(name, value, &c); err != nil {
			return nil, err
		}
		cmd = c
	case NameSetBackLed:
		c := SetBackLedCmd{}
		if err := runner.DecodeValue(name, value, &c); err != nil {
			return nil, err
		}
		cmd = c
	case NameRoll:
		c := RollCmd{}
		if err := runner.DecodeValue(name, value, &c); err != nil {
			return nil, err
		}
		cmd = c
	case NameStop:
		cmd = StopCmd{}
	case NameBoost:
		c := BoostCmd{}
		if err := runner.DecodeValue(name, value, &c); err != nil {
			return nil, err
		}
		cmd = c
	case NameSetCalibration:
		c := SetCalibrationCmd{}
		if err := runner.DecodeValue(name, value, &c); err != nil {
			return nil, err
		}
		cmd = c
	case NameSetStabilization:
		c := SetStabilizationCmd{}
		if err := runner.DecodeValue(name, value, &c); err != nil {
			return nil, err
		}
		cmd = c
	case NameSetRotationRate:
		c := SetRotationRateCmd{}
		if err := runner.DecodeValue(name, value, &c); err != nil {
			return nil, err
		}
		cmd = c
	case NameSetMotionTimeout:
		c := SetMotionTimeoutCmd{}
		if err := runner.DecodeValue(name, value, &c); err != nil {
			return nil, err
		}
		cmd = c
	case NameSetCollision:
		c := SetCollisionCmd{Enable: true}
		if err := runner.DecodeValue(name, value, &c); err != nil {
			return nil, err
		}
		cmd = c
	case NameSetRawMotors:
		c := SetRawMotorsCmd{}
		if err := runner.DecodeValue(name, value, &c); err != nil {
			return nil, err
		}
		cmd = c
	case NameConfigureLocatorCmd:
		c := ConfigureLocatorCmd{}
		if err := runner.DecodeValue(name, value, &c); err != nil {
			return nil, err
		}
		cmd = c
	case NameSleep:
		cmd = SleepCmd{}
	case NamePing, NameGetVersion, NameGetPowerState, NameGetLocation, NameGetRGB:
		cmd = QueryCmd{Name: name}
	default:
		return nil, runner.Unknown(name)
	}
	return cmd, nil
}

// Profile 命令档案
type Profile struct {
	api *API
}

var _ runner.Profile = (*Profile)(nil)

// NewProfile 创建命令档案
func NewProfile(api *API) *Profile { return &Profile{api: api} }

// Family 返回 "sphero"
func (p *Profile) Family() string { return "sphero" }

// ParseCommand 见 ParseCommand
func (p *Profile) ParseCommand(name string, value json.RawMessage) (runner.Command, error) {
	return ParseCommand(name, value)
}

// Execute 执行命令
func (p *Profile) Execute(ctx context.Context, cmd runner.Command) error {
	c, ok := cmd.(Command)
	if !ok {
		return fmt.Errorf("%w: %s is not a sphero command", runner.ErrUnknownCommand, cmd.CommandName())
	}
	return c.exec(ctx, p.api)
}
