package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownCommand 命令不在当前设备族的命令集内
	ErrUnknownCommand = errors.New("runner: unknown command")
	// ErrInvalidValue 命令参数无法解析
	ErrInvalidValue = errors.New("runner: invalid command value")
	// ErrNoProfile 未选择设备模式
	ErrNoProfile = errors.New("runner: no active profile")
	// ErrRateLimited 客户端命令过快
	ErrRateLimited = errors.New("runner: rate limited")
)

// Command 设备族命令（每个族一个封闭集合）
type Command interface {
	CommandName() string
}

// Profile 设备族命令档案：解析并执行命令
type Profile interface {
	// Family 设备族名称
	Family() string
	// ParseCommand 将名称与 JSON 参数解析为具体命令
	ParseCommand(name string, value json.RawMessage) (Command, error)
	// Execute 执行命令
	Execute(ctx context.Context, cmd Command) error
}

// Unknown 构造未知命令错误
func Unknown(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

// DecodeValue 将参数解码到 dst；空参数保留零值
func DecodeValue(name string, value json.RawMessage, dst interface{}) error {
	if len(value) == 0 || string(value) == "null" {
		return nil
	}
	if err := json.Unmarshal(value, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, name, err)
	}
	return nil
}
