package health

import "sync/atomic"

// Readiness 启动阶段就绪标记
type Readiness struct {
	transportsReady atomic.Bool
	storeReady      atomic.Bool
}

func New() *Readiness { return &Readiness{} }

// SetTransportsReady 传输层注册并完成首次扫描
func (r *Readiness) SetTransportsReady(v bool) { r.transportsReady.Store(v) }

// SetStoreReady 在线状态存储可用
func (r *Readiness) SetStoreReady(v bool) { r.storeReady.Store(v) }

// Ready 各阶段均完成
func (r *Readiness) Ready() bool {
	return r.transportsReady.Load() && r.storeReady.Load()
}
