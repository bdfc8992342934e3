package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisManager Redis 实现，多个桥接进程共享设备在线状态
//
// 每台设备一个 hash，按字段写入，多个进程同时更新时互不覆盖。
type RedisManager struct {
	client   *redis.Client
	serverID string
	timeout  time.Duration
	log      *zap.Logger
}

var _ Store = (*RedisManager)(nil)

const (
	// cwc:presence:{id} -> hash
	keyDevicePrefix = "cwc:presence:"
	// cwc:server:{serverID}:devices -> set，本实例连接的设备
	keyServerPrefix = "cwc:server:"

	fieldID             = "id"
	fieldFamily         = "family"
	fieldConnected      = "connected"
	fieldServerID       = "server_id"
	fieldLastSeen       = "last_seen"
	fieldLastDisconnect = "last_disconnect"
)

// NewRedisManager serverID 为空时随机生成
func NewRedisManager(client *redis.Client, serverID string, timeout time.Duration, log *zap.Logger) *RedisManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if serverID == "" {
		serverID = uuid.NewString()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisManager{client: client, serverID: serverID, timeout: timeout, log: log}
}

func (m *RedisManager) ServerID() string { return m.serverID }

func (m *RedisManager) OnSeen(id string, t time.Time) {
	m.write(context.Background(), id, fieldLastSeen, millis(t))
}

// OnConnected 同时加入本实例的设备集合
func (m *RedisManager) OnConnected(id, family string, t time.Time) {
	ctx := context.Background()
	m.write(ctx, id,
		fieldFamily, family,
		fieldConnected, "1",
		fieldServerID, m.serverID,
		fieldLastSeen, millis(t))
	if err := m.client.SAdd(ctx, m.serverKey(), id).Err(); err != nil {
		m.log.Warn("presence sadd failed", zap.String("device", id), zap.Error(err))
	}
}

// OnDisconnected 没有记录的设备不创建
func (m *RedisManager) OnDisconnected(id string, t time.Time) {
	ctx := context.Background()
	n, err := m.client.Exists(ctx, keyDevicePrefix+id).Result()
	if err != nil || n == 0 {
		return
	}
	m.write(ctx, id, fieldConnected, "0", fieldLastDisconnect, millis(t))
	m.client.SRem(ctx, m.serverKey(), id)
}

func (m *RedisManager) Get(id string) (Presence, bool) {
	p, ok, err := m.get(context.Background(), id)
	if err != nil {
		m.log.Warn("presence read failed", zap.String("device", id), zap.Error(err))
	}
	return p, ok
}

func (m *RedisManager) IsOnline(id string, now time.Time) bool {
	p, ok := m.Get(id)
	return ok && online(p, now, m.timeout)
}

// OnlineCount 扫描全部记录
func (m *RedisManager) OnlineCount(now time.Time) int {
	ctx := context.Background()
	count := 0
	iter := m.client.Scan(ctx, 0, keyDevicePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		p, ok, err := m.get(ctx, iter.Val()[len(keyDevicePrefix):])
		if err == nil && ok && online(p, now, m.timeout) {
			count++
		}
	}
	if err := iter.Err(); err != nil {
		m.log.Warn("presence scan failed", zap.Error(err))
	}
	return count
}

// Cleanup 进程退出时把本实例的设备标记为断开
func (m *RedisManager) Cleanup() error {
	ctx := context.Background()
	ids, err := m.client.SMembers(ctx, m.serverKey()).Result()
	if err != nil {
		return fmt.Errorf("presence members: %w", err)
	}
	now := millis(time.Now())
	for _, id := range ids {
		m.write(ctx, id, fieldConnected, "0", fieldLastDisconnect, now)
	}
	return m.client.Del(ctx, m.serverKey()).Err()
}

// write 写入字段并续期；记录保留超时时间的十倍，供查询离线设备的最后状态
func (m *RedisManager) write(ctx context.Context, id string, fields ...any) {
	key := keyDevicePrefix + id
	_, err := m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, append([]any{fieldID, id}, fields...)...)
		pipe.Expire(ctx, key, m.timeout*10)
		return nil
	})
	if err != nil {
		m.log.Warn("presence write failed", zap.String("device", id), zap.Error(err))
	}
}

func (m *RedisManager) get(ctx context.Context, id string) (Presence, bool, error) {
	h, err := m.client.HGetAll(ctx, keyDevicePrefix+id).Result()
	if err != nil {
		return Presence{}, false, err
	}
	if len(h) == 0 {
		return Presence{}, false, nil
	}
	return Presence{
		ID:             id,
		Family:         h[fieldFamily],
		Connected:      h[fieldConnected] == "1",
		ServerID:       h[fieldServerID],
		LastSeen:       fromMillis(h[fieldLastSeen]),
		LastDisconnect: fromMillis(h[fieldLastDisconnect]),
	}, true, nil
}

func (m *RedisManager) serverKey() string {
	return keyServerPrefix + m.serverID + ":devices"
}

func millis(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }

func fromMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
