package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"gopkg.in/yaml.v3"

	"github.com/taoyao-code/cwc-bridge/internal/runner"
)

// Script 命令脚本
//
//	device: virtual:sphero
//	steps:
//	  - command: setRGB
//	    value: {red: 255, green: 0, blue: 0}
//	  - command: roll
//	    value: {speed: 80, heading: 90}
//	    wait: 1s
type Script struct {
	// 非空时先切换到该设备
	Device string `yaml:"device"`
	Steps  []Step `yaml:"steps"`
}

// Step 一条命令
type Step struct {
	Command string `yaml:"command"`
	Value   any    `yaml:"value"`
	// 服务端延迟执行（毫秒）
	Delay int `yaml:"delay"`
	// 发送后本地等待
	Wait time.Duration `yaml:"wait"`
}

func parseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, errors.New("parse script: no steps")
	}
	for i, st := range s.Steps {
		if st.Command == "" {
			return nil, fmt.Errorf("parse script: step %d: missing command", i+1)
		}
		if st.Delay < 0 || st.Wait < 0 {
			return nil, fmt.Errorf("parse script: step %d: negative delay", i+1)
		}
	}
	return &s, nil
}

func (s Step) request() (runner.Request, error) {
	req := runner.Request{Command: s.Command, Delay: s.Delay}
	if s.Value != nil {
		b, err := json.Marshal(s.Value)
		if err != nil {
			return req, fmt.Errorf("step %s: %w", s.Command, err)
		}
		req.Value = b
	}
	return req, nil
}

type envelope struct {
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
	Source string          `json:"source,omitempty"`
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format, args...)
}

// runSteps 依次发送命令；发送完后再等待 settle 收集错误回报
func runSteps(ctx context.Context, conn *websocket.Conn, steps []Step, settle time.Duration, verbose bool, w io.Writer) error {
	out := &syncWriter{w: w}
	var failed atomic.Int32

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, p, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev envelope
			if json.Unmarshal(p, &ev) != nil {
				continue
			}
			if ev.Type == string(runner.EventError) {
				var e runner.ErrorData
				_ = json.Unmarshal(ev.Data, &e)
				failed.Add(1)
				out.printf("✗ %s: %s\n", e.Command, e.Error)
				continue
			}
			if verbose {
				out.printf("  %s %s %s\n", ev.Type, ev.Source, ev.Data)
			}
		}
	}()
	shutdown := func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
		<-done
	}

	for _, st := range steps {
		req, err := st.request()
		if err != nil {
			shutdown()
			return err
		}
		if err := conn.WriteJSON(req); err != nil {
			shutdown()
			return fmt.Errorf("send %s: %w", st.Command, err)
		}
		out.printf("→ %s %s\n", st.Command, req.Value)
		if st.Wait > 0 {
			if !sleep(ctx, st.Wait) {
				shutdown()
				return ctx.Err()
			}
		}
	}
	sleep(ctx, settle)
	shutdown()

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d command(s) failed", n)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
