package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Request 客户端命令：{command|name, value, delay}
type Request struct {
	Command string          `json:"command,omitempty"`
	Name    string          `json:"name,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
	// 延迟执行（毫秒）
	Delay int `json:"delay,omitempty"`
}

// CommandName command 优先，其次 name
func (r Request) CommandName() string {
	if r.Command != "" {
		return r.Command
	}
	return r.Name
}

// ProfileSource 提供当前激活的命令档案
type ProfileSource interface {
	Profile() (Profile, bool)
}

// Observer 命令结果回调（指标）
type Observer func(family, command string, err error)

// Runner 解析并执行命令
type Runner struct {
	source  ProfileSource
	log     *zap.Logger
	observe Observer

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
	wg     sync.WaitGroup
	closed bool
}

// New 创建 Runner
func New(source ProfileSource, log *zap.Logger, observe Observer) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{source: source, log: log, observe: observe, timers: make(map[*time.Timer]struct{})}
}

// Dispatch 解析命令；Delay>0 时由定时器稍后执行，解析错误立即返回
// onDone 在命令实际执行后调用，可为空
func (r *Runner) Dispatch(ctx context.Context, req Request, onDone func(error)) error {
	name := req.CommandName()
	p, ok := r.source.Profile()
	if !ok {
		r.record("", name, ErrNoProfile)
		return ErrNoProfile
	}
	if name == "" {
		err := fmt.Errorf("%w: missing command name", ErrInvalidValue)
		r.record(p.Family(), name, err)
		return err
	}
	cmd, err := p.ParseCommand(name, req.Value)
	if err != nil {
		r.record(p.Family(), name, err)
		if errors.Is(err, ErrUnknownCommand) {
			r.log.Warn("unknown command", zap.String("family", p.Family()), zap.String("command", name))
		}
		return err
	}
	if req.Delay <= 0 {
		err := r.execute(ctx, p, cmd)
		if onDone != nil {
			onDone(err)
		}
		return err
	}
	return r.schedule(p, cmd, time.Duration(req.Delay)*time.Millisecond, onDone)
}

func (r *Runner) execute(ctx context.Context, p Profile, cmd Command) error {
	err := p.Execute(ctx, cmd)
	r.record(p.Family(), cmd.CommandName(), err)
	if err != nil {
		r.log.Info("command failed", zap.String("family", p.Family()),
			zap.String("command", cmd.CommandName()), zap.Error(err))
	}
	return err
}

func (r *Runner) schedule(p Profile, cmd Command, d time.Duration, onDone func(error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("runner: closed")
	}
	r.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		defer r.wg.Done()
		r.mu.Lock()
		delete(r.timers, t)
		r.mu.Unlock()
		err := r.execute(context.Background(), p, cmd)
		if onDone != nil {
			onDone(err)
		}
	})
	r.timers[t] = struct{}{}
	return nil
}

// Pending 待执行的延迟命令数
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Close 取消尚未执行的延迟命令并等待正在执行的命令
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	for t := range r.timers {
		if t.Stop() {
			r.wg.Done()
		}
		delete(r.timers, t)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Runner) record(family, command string, err error) {
	if r.observe != nil {
		r.observe(family, command, err)
	}
}
