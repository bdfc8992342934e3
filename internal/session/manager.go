package session

import (
	"sync"
	"time"
)

// Manager 内存实现
type Manager struct {
	mu      sync.RWMutex
	records map[string]Presence
	timeout time.Duration
}

var _ Store = (*Manager)(nil)

// New timeout<=0 时为 30s
func New(timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Manager{records: make(map[string]Presence), timeout: timeout}
}

// OnSeen 更新最近数据时间
func (m *Manager) OnSeen(id string, t time.Time) {
	m.mu.Lock()
	p := m.records[id]
	p.ID = id
	p.LastSeen = t
	m.records[id] = p
	m.mu.Unlock()
}

// OnConnected 记录连接
func (m *Manager) OnConnected(id, family string, t time.Time) {
	m.mu.Lock()
	p := m.records[id]
	p.ID, p.Family, p.Connected, p.LastSeen = id, family, true, t
	m.records[id] = p
	m.mu.Unlock()
}

// OnDisconnected 记录断开
func (m *Manager) OnDisconnected(id string, t time.Time) {
	m.mu.Lock()
	if p, ok := m.records[id]; ok {
		p.Connected = false
		p.LastDisconnect = t
		m.records[id] = p
	}
	m.mu.Unlock()
}

// Get 返回记录
func (m *Manager) Get(id string) (Presence, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.records[id]
	return p, ok
}

// IsOnline 判断设备是否在线
func (m *Manager) IsOnline(id string, now time.Time) bool {
	p, ok := m.Get(id)
	return ok && online(p, now, m.timeout)
}

// OnlineCount 返回当前在线设备数量
func (m *Manager) OnlineCount(now time.Time) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, p := range m.records {
		if online(p, now, m.timeout) {
			count++
		}
	}
	return count
}
