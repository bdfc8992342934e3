package health

import (
	"context"
	"sync"
	"time"
)

// Options 聚合器参数
type Options struct {
	// 单个检查的超时，默认 2s
	Timeout time.Duration
	// 报告缓存时间，探针频繁调用时避免反复 ping 存储；0 表示不缓存
	CacheTTL time.Duration
}

type registered struct {
	Checker
	optional bool
}

// Aggregator 并发执行全部检查并汇总
type Aggregator struct {
	opts Options

	mu       sync.RWMutex
	checkers []registered

	cacheMu sync.Mutex
	cached  *HealthReport
}

// HealthReport /healthz 返回的报告
type HealthReport struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// NewAggregator 创建聚合器，checkers 均为必需组件
func NewAggregator(opts Options, checkers ...Checker) *Aggregator {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	a := &Aggregator{opts: opts}
	for _, c := range checkers {
		a.checkers = append(a.checkers, registered{Checker: c})
	}
	return a
}

// AddChecker 添加必需组件
func (a *Aggregator) AddChecker(c Checker) { a.add(registered{Checker: c}) }

// AddOptional 添加可选组件（帧日志库、在线状态缓存）
func (a *Aggregator) AddOptional(c Checker) { a.add(registered{Checker: c, optional: true}) }

func (a *Aggregator) add(r registered) {
	a.mu.Lock()
	a.checkers = append(a.checkers, r)
	a.mu.Unlock()

	a.cacheMu.Lock()
	a.cached = nil
	a.cacheMu.Unlock()
}

// CheckAll 执行全部检查，不读缓存
func (a *Aggregator) CheckAll(ctx context.Context) map[string]CheckResult {
	a.mu.RLock()
	checkers := append([]registered(nil), a.checkers...)
	a.mu.RUnlock()

	results := make(map[string]CheckResult, len(checkers))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, r := range checkers {
		wg.Add(1)
		go func(r registered) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
			defer cancel()

			res := r.Check(cctx)
			if r.optional {
				res.Optional = true
				if res.Status == StatusUnhealthy {
					res.Status = StatusDegraded
				}
			}
			mu.Lock()
			results[r.Name()] = res
			mu.Unlock()
		}(r)
	}
	wg.Wait()
	return results
}

// Report 汇总报告；CacheTTL 内复用上一次结果
func (a *Aggregator) Report(ctx context.Context) HealthReport {
	if a.opts.CacheTTL > 0 {
		a.cacheMu.Lock()
		if c := a.cached; c != nil && time.Since(c.Timestamp) < a.opts.CacheTTL {
			a.cacheMu.Unlock()
			return *c
		}
		a.cacheMu.Unlock()
	}

	results := a.CheckAll(ctx)
	report := HealthReport{Status: overall(results), Timestamp: time.Now(), Checks: results}

	if a.opts.CacheTTL > 0 {
		a.cacheMu.Lock()
		a.cached = &report
		a.cacheMu.Unlock()
	}
	return report
}

// OverallStatus 最严重的组件状态
func (a *Aggregator) OverallStatus(ctx context.Context) Status {
	return a.Report(ctx).Status
}

// Ready 降级仍算就绪
func (a *Aggregator) Ready(ctx context.Context) bool {
	return a.OverallStatus(ctx) != StatusUnhealthy
}

// Alive 进程能响应即存活
func (a *Aggregator) Alive() bool { return true }

func overall(results map[string]CheckResult) Status {
	worst := StatusHealthy
	for _, r := range results {
		if r.Status.severity() > worst.severity() {
			worst = r.Status
		}
	}
	return worst
}
