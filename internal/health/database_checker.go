package health

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// JournalStats 帧日志写入计数
type JournalStats interface {
	Written() int64
	Dropped() int64
}

// DatabaseChecker 帧日志数据库
//
// 连接池占用超过 90% 或帧日志出现新的丢弃时降级。
type DatabaseChecker struct {
	ping    func(ctx context.Context) error
	conns   func() (acquired, max int32)
	journal JournalStats

	lastDropped int64
}

// NewDatabaseChecker journal 可为空
func NewDatabaseChecker(pool *pgxpool.Pool, journal JournalStats) *DatabaseChecker {
	return &DatabaseChecker{
		ping: pool.Ping,
		conns: func() (int32, int32) {
			st := pool.Stat()
			return st.AcquiredConns(), st.MaxConns()
		},
		journal: journal,
	}
}

func (c *DatabaseChecker) Name() string { return "database" }

func (c *DatabaseChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: "ping: " + err.Error(), Latency: time.Since(start)}
	}

	acquired, max := c.conns()
	res := CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]any{"acquired_conns": acquired, "max_conns": max},
	}
	if max > 0 && float64(acquired) > 0.9*float64(max) {
		res.Status, res.Message = StatusDegraded, "connection pool near limit"
	}
	if c.journal != nil {
		dropped := c.journal.Dropped()
		res.Details["journal_written"] = c.journal.Written()
		res.Details["journal_dropped"] = dropped
		if dropped > c.lastDropped {
			res.Status, res.Message = StatusDegraded, "frame journal dropping entries"
		}
		c.lastDropped = dropped
	}
	res.Latency = time.Since(start)
	return res
}
