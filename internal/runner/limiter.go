package runner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter 基于令牌桶的命令限速
type RateLimiter struct {
	limiter       *rate.Limiter
	ratePerSec    int
	burst         int
	allowedCount  atomic.Int64
	rejectedCount atomic.Int64
}

// NewRateLimiter 创建限速器
// ratePerSec: 每秒允许的命令数
// burst: 突发容量
func NewRateLimiter(ratePerSec int, burst int) *RateLimiter {
	if ratePerSec <= 0 {
		ratePerSec = 20
	}
	if burst <= 0 {
		burst = ratePerSec * 2
	}
	return &RateLimiter{
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), burst),
		ratePerSec: ratePerSec,
		burst:      burst,
	}
}

// Allow 非阻塞检查
func (l *RateLimiter) Allow() bool {
	if l.limiter.Allow() {
		l.allowedCount.Add(1)
		return true
	}
	l.rejectedCount.Add(1)
	return false
}

// Wait 阻塞直到允许或 ctx 结束
func (l *RateLimiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		l.rejectedCount.Add(1)
		return err
	}
	l.allowedCount.Add(1)
	return nil
}

// Stats 统计信息
func (l *RateLimiter) Stats() RateLimiterStats {
	return RateLimiterStats{
		RatePerSecond: l.ratePerSec,
		Burst:         l.burst,
		AllowedTotal:  l.allowedCount.Load(),
		RejectedTotal: l.rejectedCount.Load(),
	}
}

// RateLimiterStats 限速统计
type RateLimiterStats struct {
	RatePerSecond int   `json:"rate_per_second"`
	Burst         int   `json:"burst"`
	AllowedTotal  int64 `json:"allowed_total"`
	RejectedTotal int64 `json:"rejected_total"`
}

// ClientLimiter 并发客户端上限（信号量）
type ClientLimiter struct {
	sem           chan struct{}
	timeout       time.Duration
	max           int
	activeCount   atomic.Int64
	rejectedCount atomic.Int64
}

// NewClientLimiter max<=0 时为 16
func NewClientLimiter(max int, timeout time.Duration) *ClientLimiter {
	if max <= 0 {
		max = 16
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	return &ClientLimiter{sem: make(chan struct{}, max), timeout: timeout, max: max}
}

// Acquire 获取许可
func (l *ClientLimiter) Acquire(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	select {
	case l.sem <- struct{}{}:
		l.activeCount.Add(1)
		return nil
	case <-ctx.Done():
		l.rejectedCount.Add(1)
		return fmt.Errorf("client limit exceeded: max=%d", l.max)
	}
}

// Release 释放许可
func (l *ClientLimiter) Release() {
	select {
	case <-l.sem:
		l.activeCount.Add(-1)
	default:
	}
}

// Current 当前客户端数
func (l *ClientLimiter) Current() int { return int(l.activeCount.Load()) }

// Rejected 被拒绝次数
func (l *ClientLimiter) Rejected() int64 { return l.rejectedCount.Load() }

// Max 客户端上限
func (l *ClientLimiter) Max() int { return l.max }
