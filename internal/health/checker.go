package health

import (
	"context"
	"time"
)

// Status 组件状态
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"  // 可用，但部分功能受限
	StatusUnhealthy Status = "unhealthy" // 无法提供服务
)

func (s Status) severity() int {
	switch s {
	case StatusDegraded:
		return 1
	case StatusUnhealthy:
		return 2
	}
	return 0
}

// CheckResult 单个组件的检查结果
type CheckResult struct {
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Latency time.Duration  `json:"latency"`
	// 可选组件的不健康只计为降级
	Optional bool `json:"optional,omitempty"`
}

// Checker 组件检查
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}
