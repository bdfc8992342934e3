package ranger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/taoyao-code/cwc-bridge/internal/monitoring"
	"github.com/taoyao-code/cwc-bridge/internal/runner"
)

// Command Ranger 命令集合（封闭）
type Command interface {
	runner.Command
	exec(ctx context.Context, p *Profile) error
}

type SetRGBCmd struct {
	Index int `json:"index"`
	Red   int `json:"red"`
	Green int `json:"green"`
	Blue  int `json:"blue"`
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

type SetEncoderMotorCmd struct {
	Slot  byte `json:"slot"`
	Speed int  `json:"speed"`
}

type StopCmd struct{}

type SetMonitorCmd struct {
	Channel string `json:"channel"`
	Enable  bool   `json:"enable"`
}

type GetLightSensorCmd struct {
	Sensor int `json:"sensor"`
}

type GetGyroCmd struct {
	Axis int `json:"axis"`
}

type SensorCmd struct {
	Name string `json:"-"`
}

func (SetRGBCmd) CommandName() string          { return "setRGB" }
func (PlayToneCmd) CommandName() string        { return "playTone" }
func (MovePowerCmd) CommandName() string       { return "movePower" }
func (RotatePowerCmd) CommandName() string     { return "rotatePower" }
func (SetEncoderMotorCmd) CommandName() string { return "setEncoderMotor" }
func (StopCmd) CommandName() string            { return "stop" }
func (SetMonitorCmd) CommandName() string      { return "setMonitor" }
func (GetLightSensorCmd) CommandName() string  { return "getLightSensor" }
func (GetGyroCmd) CommandName() string         { return "getGyro" }
func (c SensorCmd) CommandName() string        { return c.Name }

func (c SetRGBCmd) exec(ctx context.Context, p *Profile) error {
	return p.api.SetRGB(ctx, c.Index, c.Red, c.Green, c.Blue)
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

func (c SetEncoderMotorCmd) exec(ctx context.Context, p *Profile) error {
	return p.api.SetEncoderMotor(ctx, c.Slot, c.Speed)
}

func (StopCmd) exec(ctx context.Context, p *Profile) error { return p.api.Stop(ctx) }

func (c SetMonitorCmd) exec(_ context.Context, p *Profile) error {
	if p.monitor == nil {
		return nil
	}
	return p.monitor.SetChannelEnabled(c.Channel, c.Enable)
}

func (c GetLightSensorCmd) exec(ctx context.Context, p *Profile) error {
	return p.api.GetLightSensor(ctx, c.Sensor)
}

func (c GetGyroCmd) exec(ctx context.Context, p *Profile) error {
	return p.api.GetGyro(ctx, c.Axis)
}

func (c SensorCmd) exec(ctx context.Context, p *Profile) error {
	switch c.Name {
	case "getVersion":
		return p.api.GetVersion(ctx)
	case "getUltrasonic":
		return p.api.GetUltrasonic(ctx)
	case "getLineFollower":
		return p.api.GetLineFollower(ctx)
	case "getTemperature":
		return p.api.GetTemperature(ctx)
	}
	return runner.Unknown(c.Name)
}

// ParseCommand 解析命令
func ParseCommand(name string, value json.RawMessage) (Command, error) {
	var c Command
	switch name {
	case "setRGB":
		c = &SetRGBCmd{}
	case "playTone":
		c = &PlayToneCmd{Duration: 500}
	case "movePower":
		c = &MovePowerCmd{}
	case "rotatePower":
		c = &RotatePowerCmd{}
	case "setEncoderMotor":
		c = &SetEncoderMotorCmd{Slot: SlotMotorOne}
	case "stop":
		return StopCmd{}, nil
	case "setMonitor":
		c = &SetMonitorCmd{}
	case "getLightSensor":
		c = &GetLightSensorCmd{Sensor: 1}
	case "getGyro":
		c = &GetGyroCmd{Axis: AxisX}
	case "getVersion", "getUltrasonic", "getLineFollower", "getTemperature":
		return SensorCmd{Name: name}, nil
	default:
		return nil, runner.Unknown(name)
	}
	if err := runner.DecodeValue(name, value, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Profile 命令档案
type Profile struct {
	api     *API
	monitor *monitoring.Monitor
}

var _ runner.Profile = (*Profile)(nil)

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
		return fmt.Errorf("%w: %s is not a ranger command", runner.ErrUnknownCommand, cmd.CommandName())
	}
	return c.exec(ctx, p)
}
