package mbot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/taoyao-code/cwc-bridge/internal/monitoring"
	"github.com/taoyao-code/cwc-bridge/internal/runner"
)

// Command mBot 命令集合（封闭）
type Command interface {
	runner.Command
	exec(ctx context.Context, p *Profile) error
}

type SetRGBCmd struct {
	Position int `json:"position"`
	Red      int `json:"red"`
	Green    int `json:"green"`
	Blue     int `json:"blue"`
}

type PlayToneCmd struct {
	Frequency int `json:"frequency"`
	Duration  int `json:"duration"`
}

type MovePowerCmd struct {
	Power int `json:"power"`
}

type RotatePowerCmd struct {
	Power int `json:"power"`
}

type SetMotorPowerCmd struct {
	Port  byte `json:"port"`
	Power int  `json:"power"`
}

type SetJoystickCmd struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

type StopCmd struct{}

type SetServoCmd struct {
	Port  byte `json:"port"`
	Slot  byte `json:"slot"`
	Angle int  `json:"angle"`
}

type ResetCmd struct{}

type SetLineFollowerMonitorCmd struct {
	Enable bool `json:"enable"`
}

// SensorCmd 单次传感器读取
type SensorCmd struct {
	Name string `json:"-"`
}

func (SetRGBCmd) CommandName() string                 { return "setRGB" }
func (PlayToneCmd) CommandName() string               { return "playTone" }
func (MovePowerCmd) CommandName() string              { return "movePower" }
func (RotatePowerCmd) CommandName() string            { return "rotatePower" }
func (SetMotorPowerCmd) CommandName() string          { return "setMotorPower" }
func (SetJoystickCmd) CommandName() string            { return "setJoystick" }
func (StopCmd) CommandName() string                   { return "stop" }
func (SetServoCmd) CommandName() string               { return "setServo" }
func (ResetCmd) CommandName() string                  { return "reset" }
func (SetLineFollowerMonitorCmd) CommandName() string { return "setLineFollowerMonitor" }
func (c SensorCmd) CommandName() string               { return c.Name }

func (c SetRGBCmd) exec(ctx context.Context, p *Profile) error {
	return p.api.SetRGB(ctx, c.Position, c.Red, c.Green, c.Blue)
}

func (c PlayToneCmd) exec(ctx context.Context, p *Profile) error {
	return p.api.PlayTone(ctx, c.Frequency, c.Duration)
}

func (c MovePowerCmd) exec(ctx context.Context, p *Profile) error {
	return p.api.MovePower(ctx, c.Power)
}

func (c RotatePowerCmd) exec(ctx context.Context, p *Profile) error {
	return p.api.RotatePower(ctx, c.Power)
}

func (c SetMotorPowerCmd) exec(ctx context.Context, p *Profile) error {
	return p.api.SetMotorPower(ctx, c.Port, c.Power)
}

func (c SetJoystickCmd) exec(ctx context.Context, p *Profile) error {
	return p.api.SetJoystick(ctx, c.Left, c.Right)
}

func (StopCmd) exec(ctx context.Context, p *Profile) error { return p.api.Stop(ctx) }

func (c SetServoCmd) exec(ctx context.Context, p *Profile) error {
	return p.api.SetServo(ctx, c.Port, c.Slot, c.Angle)
}

func (ResetCmd) exec(ctx context.Context, p *Profile) error { return p.api.Reset(ctx) }

func (c SetLineFollowerMonitorCmd) exec(_ context.Context, p *Profile) error {
	if p.monitor == nil {
		return nil
	}
	return SetLineFollowerMonitor(p.monitor, c.Enable)
}

func (c SensorCmd) exec(ctx context.Context, p *Profile) error {
	switch c.Name {
	case "getVersion":
		return p.api.GetVersion(ctx)
	case "getUltrasonic":
		return p.api.GetUltrasonic(ctx)
	case "getLightSensor":
		return p.api.GetLightSensor(ctx)
	case "getLineFollower":
		return p.api.GetLineFollower(ctx)
	case "getButton":
		return p.api.GetButton(ctx)
	}
	return runner.Unknown(c.Name)
}

func decode[T Command](name string, value json.RawMessage, c T) (Command, error) {
	if err := runner.DecodeValue(name, value, &c); err != nil {
		return nil, err
	}
	return c, nil
}

type parseFunc func(name string, value json.RawMessage) (Command, error)

var parsers = map[string]parseFunc{
	"setRGB": func(n string, v json.RawMessage) (Command, error) { return decode(n, v, SetRGBCmd{}) },
	// 默认时长 500ms
	"playTone":    func(n string, v json.RawMessage) (Command, error) { return decode(n, v, PlayToneCmd{Duration: 500}) },
	"movePower":   func(n string, v json.RawMessage) (Command, error) { return decode(n, v, MovePowerCmd{}) },
	"rotatePower": func(n string, v json.RawMessage) (Command, error) { return decode(n, v, RotatePowerCmd{}) },
	"setMotorPower": func(n string, v json.RawMessage) (Command, error) {
		return decode(n, v, SetMotorPowerCmd{Port: PortMotorLeft})
	},
	"setJoystick": func(n string, v json.RawMessage) (Command, error) { return decode(n, v, SetJoystickCmd{}) },
	"stop":        func(string, json.RawMessage) (Command, error) { return StopCmd{}, nil },
	"setServo": func(n string, v json.RawMessage) (Command, error) {
		return decode(n, v, SetServoCmd{Port: 0x01, Slot: 0x01})
	},
	"reset":                  func(string, json.RawMessage) (Command, error) { return ResetCmd{}, nil },
	"setLineFollowerMonitor": func(n string, v json.RawMessage) (Command, error) { return decode(n, v, SetLineFollowerMonitorCmd{}) },
	"getVersion":             sensor,
	"getUltrasonic":          sensor,
	"getLightSensor":         sensor,
	"getLineFollower":        sensor,
	"getButton":              sensor,
}

func sensor(name string, _ json.RawMessage) (Command, error) { return SensorCmd{Name: name}, nil }

// ParseCommand 解析命令
func ParseCommand(name string, value json.RawMessage) (Command, error) {
	parse, ok := parsers[name]
	if !ok {
		return nil, runner.Unknown(name)
	}
	return parse(name, value)
}

// Profile 命令档案；monitor 可为空
type Profile struct {
	api     *API
	monitor *monitoring.Monitor
}

var _ runner.Profile = (*Profile)(nil)

// NewProfile 创建命令档案
func NewProfile(api *API, monitor *monitoring.Monitor) *Profile {
	return &Profile{api: api, monitor: monitor}
}

func (p *Profile) Family() string { return Family }

func (p *Profile) ParseCommand(name string, value json.RawMessage) (runner.Command, error) {
	return ParseCommand(name, value)
}

func (p *Profile) Execute(ctx context.Context, cmd runner.Command) error {
	c, ok := cmd.(Command)
	if !ok {
		return fmt.Errorf("%w: %s is not a mbot command", runner.ErrUnknownCommand, cmd.CommandName())
	}
	return c.exec(ctx, p)
}
