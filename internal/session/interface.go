// Package session 设备在线状态：最近遥测时间与连接状态
package session

import "time"

// Presence 设备在线记录
type Presence struct {
	ID             string    `json:"id"`
	Family         string    `json:"family,omitempty"`
	Connected      bool      `json:"connected"`
	ServerID       string    `json:"server_id,omitempty"`
	LastSeen       time.Time `json:"last_seen"`
	LastDisconnect time.Time `json:"last_disconnect,omitempty"`
}

// Store 在线状态存储，支持内存和 Redis 两种实现
type Store interface {
	// OnSeen 收到设备数据
	OnSeen(id string, t time.Time)

	// OnConnected 设备连接成功
	OnConnected(id, family string, t time.Time)

	// OnDisconnected 设备断开
	OnDisconnected(id string, t time.Time)

	// Get 返回设备记录
	Get(id string) (Presence, bool)

	// IsOnline 已连接且在超时时间内有数据
	IsOnline(id string, now time.Time) bool

	// OnlineCount 在线设备数量
	OnlineCount(now time.Time) int
}

func online(p Presence, now time.Time, timeout time.Duration) bool {
	return p.Connected && now.Sub(p.LastSeen) <= timeout
}
