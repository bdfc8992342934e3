package ev3

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taoyao-code/cwc-bridge/internal/runner"
)

// Command EV3 命令集合（封闭）
type Command interface {
	runner.Command
	exec(ctx context.Context, a *API) error
}

// Ports 端口字母组合，如 "BC"
type Ports string

// Mask 转换为端口掩码
func (p Ports) Mask() (OutputPort, error) {
	var m OutputPort
	for _, r := range strings.ToUpper(string(p)) {
		if r < 'A' || r > 'D' {
			return 0, fmt.Errorf("%w: port %q", runner.ErrInvalidValue, r)
		}
		m |= OutputPort(1 << (r - 'A'))
	}
	if m == 0 {
		return 0, fmt.Errorf("%w: empty ports", runner.ErrInvalidValue)
	}
	return m, nil
}

type MovePowerCmd struct {
	Power int `json:"power"`
}

type MoveStepsCmd struct {
	Steps int  `json:"steps"`
	Speed int  `json:"speed"`
	Brake bool `json:"brake"`
}

type RotatePowerCmd struct {
	Power int `json:"power"`
}

type RotateStepsCmd struct {
	Steps int  `json:"steps"`
	Speed int  `json:"speed"`
	Brake bool `json:"brake"`
}

type SetMotorPowerCmd struct {
	Ports Ports `json:"ports"`
	Power int   `json:"power"`
}

type StopCmd struct {
	Ports Ports `json:"ports"`
	Brake bool  `json:"brake"`
}

type SetLedCmd struct {
	Pattern LEDPattern `json:"pattern"`
}

type PlayToneCmd struct {
	Frequency int `json:"frequency"`
	Duration  int `json:"duration"`
}

type PlaySoundCmd struct {
	File string `json:"file"`
}

type ShowImageCmd struct {
	File string `json:"file"`
}

type ClearScreenCmd struct{}

type GetDeviceTypesCmd struct{}

type ReadSensorCmd struct {
	Port int `json:"port"` // 面板端口 1..4
	Mode int `json:"mode"`
}

type GetMotorPositionCmd struct {
	Port Ports `json:"port"`
}

type ClearMotorPositionsCmd struct {
	Ports Ports `json:"ports"`
}

func (MovePowerCmd) CommandName() string           { return "movePower" }
func (MoveStepsCmd) CommandName() string           { return "moveSteps" }
func (RotatePowerCmd) CommandName() string         { return "rotatePower" }
func (RotateStepsCmd) CommandName() string         { return "rotateSteps" }
func (SetMotorPowerCmd) CommandName() string       { return "setMotorPower" }
func (StopCmd) CommandName() string                { return "stop" }
func (SetLedCmd) CommandName() string              { return "setLed" }
func (PlayToneCmd) CommandName() string            { return "playTone" }
func (PlaySoundCmd) CommandName() string           { return "playSound" }
func (ShowImageCmd) CommandName() string           { return "showImage" }
func (ClearScreenCmd) CommandName() string         { return "clearScreen" }
func (GetDeviceTypesCmd) CommandName() string      { return "getDeviceTypes" }
func (ReadSensorCmd) CommandName() string          { return "readSensor" }
func (GetMotorPositionCmd) CommandName() string    { return "getMotorPosition" }
func (ClearMotorPositionsCmd) CommandName() string { return "clearMotorPositions" }

func (c MovePowerCmd) exec(ctx context.Context, a *API) error { return a.MovePower(ctx, c.Power) }

func (c MoveStepsCmd) exec(ctx context.Context, a *API) error {
	return a.MoveSteps(ctx, c.Steps, c.Speed, c.Brake)
}

func (c RotatePowerCmd) exec(ctx context.Context, a *API) error { return a.RotatePower(ctx, c.Power) }

func (c RotateStepsCmd) exec(ctx context.Context, a *API) error {
	return a.RotateSteps(ctx, c.Steps, c.Speed, c.Brake)
}

func (c SetMotorPowerCmd) exec(ctx context.Context, a *API) error {
	m, err := c.Ports.Mask()
	if err != nil {
		return err
	}
	return a.SetMotorPower(ctx, m, c.Power)
}

func (c StopCmd) exec(ctx context.Context, a *API) error {
	m, err := c.Ports.Mask()
	if err != nil {
		return err
	}
	return a.Stop(ctx, m, c.Brake)
}

func (c SetLedCmd) exec(ctx context.Context, a *API) error { return a.SetLed(ctx, c.Pattern) }

func (c PlayToneCmd) exec(ctx context.Context, a *API) error {
	return a.PlayTone(ctx, c.Frequency, c.Duration)
}

func (c PlaySoundCmd) exec(ctx context.Context, a *API) error { return a.PlaySound(ctx, c.File) }

func (c ShowImageCmd) exec(ctx context.Context, a *API) error { return a.ShowImage(ctx, c.File) }

func (ClearScreenCmd) exec(ctx context.Context, a *API) error { return a.ClearScreen(ctx) }

func (GetDeviceTypesCmd) exec(ctx context.Context, a *API) error { return a.GetDeviceTypes(ctx) }

func (c ReadSensorCmd) exec(ctx context.Context, a *API) error {
	if c.Port < 1 || c.Port > 4 {
		return fmt.Errorf("%w: sensor port %d", runner.ErrInvalidValue, c.Port)
	}
	return a.ReadSensor(ctx, InputPort(c.Port-1), c.Mode)
}

func (c GetMotorPositionCmd) exec(ctx context.Context, a *API) error {
	m, err := c.Port.Mask()
	if err != nil {
		return err
	}
	return a.GetMotorPosition(ctx, m)
}

func (c ClearMotorPositionsCmd) exec(ctx context.Context, a *API) error {
	m, err := c.Ports.Mask()
	if err != nil {
		return err
	}
	return a.ClearMotorPositions(ctx, m)
}

// commandTable 命令名 → 带默认值的零命令
var commandTable = map[string]func() Command{
	"movePower":           func() Command { return &MovePowerCmd{} },
	"moveSteps":           func() Command { return &MoveStepsCmd{Speed: 50, Brake: true} },
	"rotatePower":         func() Command { return &RotatePowerCmd{} },
	"rotateSteps":         func() Command { return &RotateStepsCmd{Speed: 50, Brake: true} },
	"setMotorPower":       func() Command { return &SetMotorPowerCmd{Ports: "A"} },
	"stop":                func() Command { return &StopCmd{Ports: "ABCD"} },
	"setLed":              func() Command { return &SetLedCmd{} },
	"playTone":            func() Command { return &PlayToneCmd{Duration: 500} },
	"playSound":           func() Command { return &PlaySoundCmd{} },
	"showImage":           func() Command { return &ShowImageCmd{} },
	"clearScreen":         func() Command { return &ClearScreenCmd{} },
	"getDeviceTypes":      func() Command { return &GetDeviceTypesCmd{} },
	"readSensor":          func() Command { return &ReadSensorCmd{Port: 1} },
	"getMotorPosition":    func() Command { return &GetMotorPositionCmd{Port: "A"} },
	"clearMotorPositions": func() Command { return &ClearMotorPositionsCmd{Ports: "ABCD"} },
}

// ParseCommand 解析命令
func ParseCommand(name string, value json.RawMessage) (Command, error) {
	newCmd, ok := commandTable[name]
	if !ok {
		return nil, runner.Unknown(name)
	}
	c := newCmd()
	if err := runner.DecodeValue(name, value, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Profile 命令档案
type Profile struct {
	api *API
}

var _ runner.Profile = (*Profile)(nil)

func NewProfile(api *API) *Profile { return &Profile{api: api} }

func (p *Profile) Family() string { return Family }

func (p *Profile) ParseCommand(name string, value json.RawMessage) (runner.Command, error) {
	return ParseCommand(name, value)
}

func (p *Profile) Execute(ctx context.Context, cmd runner.Command) error {
	c, ok := cmd.(Command)
	if !ok {
		return fmt.Errorf("%w: %s is not an ev3 command", runner.ErrUnknownCommand, cmd.CommandName())
	}
	return c.exec(ctx, p.api)
}
