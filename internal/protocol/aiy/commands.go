package aiy

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/taoyao-code/cwc-bridge/internal/runner"
)

// Command AIY 命令集合（封闭）
type Command interface {
	runner.Command
	exec(ctx context.Context, a *API) error
}

type RunCmd struct {
	Code string `json:"code"`
}

type StopCmd struct{}

type PingCmd struct{}

func (RunCmd) CommandName() string  { return MsgRun }
func (StopCmd) CommandName() string { return MsgStop }
func (PingCmd) CommandName() string { return MsgPing }

func (c RunCmd) exec(ctx context.Context, a *API) error { return a.Run(ctx, c.Code) }
func (StopCmd) exec(ctx context.Context, a *API) error  { return a.Stop(ctx) }
func (PingCmd) exec(ctx context.Context, a *API) error  { return a.Ping(ctx) }

// ParseCommand 解析命令；run 的参数既可以是字符串也可以是 {"code": ...}
func ParseCommand(name string, value json.RawMessage) (Command, error) {
	switch name {
	case MsgRun:
		var code string
		if err := json.Unmarshal(value, &code); err == nil {
			return RunCmd{Code: code}, nil
		}
		c := RunCmd{}
		if err := runner.DecodeValue(name, value, &c); err != nil {
			return nil, err
		}
		return c, nil
	case MsgStop:
		return StopCmd{}, nil
	case MsgPing:
		return PingCmd{}, nil
	}
	return nil, runner.Unknown(name)
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
		return fmt.Errorf("%w: %s is not an aiy command", runner.ErrUnknownCommand, cmd.CommandName())
	}
	return c.exec(ctx, p.api)
}
