package health

import (
	"context"
	"fmt"
	"time"
)

// ClientStats runner 客户端计数
type ClientStats interface {
	Current() int
	Max() int
	Rejected() int64
}

// RunnerChecker runner WebSocket 客户端占用检查
type RunnerChecker struct {
	stats ClientStats
}

// NewRunnerChecker 创建检查器
func NewRunnerChecker(stats ClientStats) *RunnerChecker {
	return &RunnerChecker{stats: stats}
}

// Name 检查器名称
func (c *RunnerChecker) Name() string {
	return "runner"
}

// Check 执行检查
func (c *RunnerChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	active := c.stats.Current()
	max := c.stats.Max()
	utilization := 0.0
	if max > 0 {
		utilization = float64(active) / float64(max)
	}

	status := StatusHealthy
	message := "ok"
	if utilization >= 0.8 {
		status = StatusDegraded
		message = "high client usage"
	}

	return CheckResult{
		Status:  status,
		Message: message,
		Details: map[string]interface{}{
			"active_clients": active,
			"max_clients":    max,
			"rejected_total": c.stats.Rejected(),
			"utilization":    fmt.Sprintf("%.1f%%", utilization*100),
		},
		Latency: time.Since(start),
	}
}
