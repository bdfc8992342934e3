package health

import (
	"context"
	"time"

	redisstorage "github.com/taoyao-code/cwc-bridge/internal/storage/redis"
)

// RedisChecker 在线状态缓存；距上次检查出现新的取连接超时则降级
type RedisChecker struct {
	client *redisstorage.Client

	lastTimeouts uint32
}

func NewRedisChecker(client *redisstorage.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if err := c.client.HealthCheck(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: "ping: " + err.Error(), Latency: time.Since(start)}
	}

	st := c.client.PoolStats()
	res := CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]any{
			"total_conns": st.TotalConns,
			"idle_conns":  st.IdleConns,
			"timeouts":    st.Timeouts,
		},
	}
	if st.Timeouts > c.lastTimeouts {
		res.Status, res.Message = StatusDegraded, "pool timeouts"
	}
	c.lastTimeouts = st.Timeouts
	res.Latency = time.Since(start)
	return res
}
