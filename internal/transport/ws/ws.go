// Package ws WebSocket 链路（树莓派 AIY 控制通道等）
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/taoyao-code/cwc-bridge/internal/device"
)

// CloseError 对端以非正常关闭码结束连接
type CloseError struct {
	Code int
	Text string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("websocket closed: %d %s", e.Code, e.Text)
}

// Config 链路参数
type Config struct {
	Text         bool          // 以文本帧发送（JSON 协议）
	PingInterval time.Duration // 默认 20s，<0 关闭心跳
	WriteTimeout time.Duration // 默认 5s
	DialTimeout  time.Duration // 握手超时，默认 45s
	Header       http.Header
}

// Link WebSocket 链路
type Link struct {
	url    string
	cfg    Config
	dialer *websocket.Dialer
	log    *zap.Logger

	mu    sync.Mutex
	wmu   sync.Mutex
	conn  *websocket.Conn
	reads chan []byte
	doneC chan struct{}
	err   error
	wg    sync.WaitGroup
}

var _ device.Link = (*Link)(nil)

// NewLink 创建到 url 的链路
func NewLink(url string, cfg Config, log *zap.Logger) *Link {
	if cfg.PingInterval == 0 {
		cfg.PingInterval = 20 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	dialer := websocket.DefaultDialer
	if cfg.DialTimeout > 0 {
		dialer = &websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: cfg.DialTimeout}
	}
	return &Link{url: url, cfg: cfg, dialer: dialer, log: log}
}

// Open 拨号；已打开时为空操作
func (l *Link) Open(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return nil
	}
	conn, resp, err := l.dialer.DialContext(ctx, l.url, l.cfg.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", l.url, err)
	}
	l.conn = conn
	l.err = nil
	l.reads = make(chan []byte, 64)
	l.doneC = make(chan struct{})
	l.wg.Add(1)
	go l.readLoop(conn, l.reads, l.doneC)
	if l.cfg.PingInterval > 0 {
		l.wg.Add(1)
		go l.pingLoop(conn, l.doneC)
	}
	return nil
}

// Close 发送正常关闭帧后断开
func (l *Link) Close() error {
	l.mu.Lock()
	conn, done := l.conn, l.doneC
	l.conn = nil
	l.mu.Unlock()
	if conn == nil {
		return nil
	}
	close(done)
	l.wmu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	l.wmu.Unlock()
	err := conn.Close()
	l.wg.Wait()
	return err
}

// Write 发送一条消息
func (l *Link) Write(ctx context.Context, p []byte) error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return device.ErrLinkClosed
	}
	deadline := time.Now().Add(l.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	mt := websocket.BinaryMessage
	if l.cfg.Text {
		mt = websocket.TextMessage
	}
	l.wmu.Lock()
	defer l.wmu.Unlock()
	_ = conn.SetWriteDeadline(deadline)
	return conn.WriteMessage(mt, p)
}

// Reads 上行消息
func (l *Link) Reads() <-chan []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads
}

// Err 连接结束原因；正常关闭为 nil，其它关闭码为 *CloseError
func (l *Link) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *Link) readLoop(conn *websocket.Conn, reads chan<- []byte, done <-chan struct{}) {
	defer l.wg.Done()
	defer close(reads)
	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
			default:
				l.mu.Lock()
				l.err = closeReason(err)
				l.mu.Unlock()
				if l.err != nil {
					l.log.Info("websocket link ended", zap.Error(l.err))
				}
			}
			return
		}
		select {
		case reads <- p:
		case <-done:
			return
		}
	}
}

func (l *Link) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	defer l.wg.Done()
	t := time.NewTicker(l.cfg.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			l.wmu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(l.cfg.WriteTimeout))
			l.wmu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// closeReason 1000 视为正常结束
func closeReason(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		if ce.Code == websocket.CloseNormalClosure {
			return nil
		}
		return &CloseError{Code: ce.Code, Text: ce.Text}
	}
	return err
}

// Factory 链路工厂，info.Address 为 ws:// 地址
func Factory(cfg Config, log *zap.Logger) device.LinkFactory {
	if log == nil {
		log = zap.NewNop()
	}
	return func(info device.Info) (device.Link, error) {
		c := cfg
		if info.Family == device.FamilyAIY {
			c.Text = true
		}
		return NewLink(info.Address, c, log.With(zap.String("device", info.ID))), nil
	}
}
