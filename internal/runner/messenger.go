package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/taoyao-code/cwc-bridge/internal/event"
)

// EventError 发给客户端的错误消息类型
const EventError event.Type = "error"

// ErrorData 错误消息载荷
type ErrorData struct {
	Command string `json:"command,omitempty"`
	Error   string `json:"error"`
}

// MessengerConfig 客户端参数
type MessengerConfig struct {
	RatePerSec   int
	Burst        int
	MaxClients   int
	PingInterval time.Duration
	WriteTimeout time.Duration
}

// Messenger WebSocket 命令通道：接收命令，推送总线事件
type Messenger struct {
	runner  *Runner
	bus     *event.Bus
	cfg     MessengerConfig
	clients *ClientLimiter
	log     *zap.Logger

	upgrader websocket.Upgrader

	// 被限速拒绝的命令回调（指标），可为空
	OnRejected func()
}

// NewMessenger 创建 Messenger
func NewMessenger(r *Runner, bus *event.Bus, cfg MessengerConfig, log *zap.Logger) *Messenger {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 20 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Messenger{
		runner:  r,
		bus:     bus,
		cfg:     cfg,
		clients: NewClientLimiter(cfg.MaxClients, time.Second),
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Clients 当前客户端数
func (m *Messenger) Clients() int { return m.clients.Current() }

// ClientLimiter 客户端并发限制器
func (m *Messenger) ClientLimiter() *ClientLimiter { return m.clients }

// ServeHTTP 升级为 WebSocket 并服务到连接结束
func (m *Messenger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := m.clients.Acquire(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer m.clients.Release()

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Warn("runner: ws upgrade", zap.Error(err))
		return
	}
	c := &client{
		id:      uuid.NewString(),
		conn:    conn,
		m:       m,
		limiter: NewRateLimiter(m.cfg.RatePerSec, m.cfg.Burst),
	}
	c.log = m.log.With(zap.String("client", c.id))
	c.log.Info("runner client connected", zap.String("remote", r.RemoteAddr))
	c.serve(r.Context())
	c.log.Info("runner client disconnected", zap.Any("limiter", c.limiter.Stats()))
}

type client struct {
	id      string
	conn    *websocket.Conn
	m       *Messenger
	limiter *RateLimiter
	log     *zap.Logger

	wmu sync.Mutex
}

func (c *client) send(v interface{}) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.m.cfg.WriteTimeout))
	return c.conn.WriteJSON(v)
}

func (c *client) sendError(command string, err error) {
	_ = c.send(event.New(EventError, ErrorData{Command: command, Error: err.Error()}, ""))
}

func (c *client) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.conn.Close()

	events, unsubscribe := c.m.bus.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writeLoop(ctx, events)
	}()

	c.readLoop(ctx)
	cancel()
	<-done
}

func (c *client) writeLoop(ctx context.Context, events <-chan event.Event) {
	ping := time.NewTicker(c.m.cfg.PingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := c.send(ev); err != nil {
				c.log.Debug("runner: ws write", zap.Error(err))
				_ = c.conn.Close()
				return
			}
		case <-ping.C:
			c.wmu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.m.cfg.WriteTimeout))
			c.wmu.Unlock()
			if err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}

func (c *client) readLoop(ctx context.Context) {
	for {
		_, p, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var req Request
		if err := json.Unmarshal(p, &req); err != nil {
			c.sendError("", err)
			continue
		}
		name := req.CommandName()
		if !c.limiter.Allow() {
			if c.m.OnRejected != nil {
				c.m.OnRejected()
			}
			c.sendError(name, ErrRateLimited)
			continue
		}
		err = c.m.runner.Dispatch(ctx, req, func(err error) {
			// 延迟命令的执行错误同样回报
			if err != nil && req.Delay > 0 {
				c.sendError(name, err)
			}
		})
		if err != nil {
			c.sendError(name, err)
		}
	}
}
