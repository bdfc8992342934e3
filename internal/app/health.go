package app

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/cwc-bridge/internal/health"
	pgstorage "github.com/taoyao-code/cwc-bridge/internal/storage/pg"
	"github.com/taoyao-code/cwc-bridge/internal/transport/ble"
)

// NewHealthAggregator 设备检查始终存在，其余按启用情况添加
//
// 数据库只承载帧日志，作为可选组件。
func NewHealthAggregator(devices health.DeviceLister, dbpool *pgxpool.Pool, journal *pgstorage.Journal, bt *ble.AdapterState) *health.Aggregator {
	agg := health.NewAggregator(health.Options{Timeout: 2 * time.Second, CacheTTL: time.Second}, health.NewDeviceChecker(devices))
	if dbpool != nil {
		var stats health.JournalStats
		if journal != nil {
			stats = journal
		}
		agg.AddOptional(health.NewDatabaseChecker(dbpool, stats))
	}
	if bt != nil {
		agg.AddChecker(health.NewBluetoothChecker(bt))
	}
	return agg
}

// AddRunnerChecker runner 启动后添加
func AddRunnerChecker(agg *health.Aggregator, stats health.ClientStats) {
	agg.AddChecker(health.NewRunnerChecker(stats))
}
