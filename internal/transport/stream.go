// Package transport 流式链路的公共读写循环，串口与 TCP 共用
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/cwc-bridge/internal/device"
)

// Dialer 打开底层流
type Dialer func(ctx context.Context) (io.ReadWriteCloser, error)

// StreamConfig 读写参数
type StreamConfig struct {
	ReadBuffer   int           // 单次读取缓冲，默认 1024
	WriteQueue   int           // 写队列长度，默认 64
	WriteTimeout time.Duration // 入队超时，默认 5s
}

func (c *StreamConfig) defaults() {
	if c.ReadBuffer <= 0 {
		c.ReadBuffer = 1024
	}
	if c.WriteQueue <= 0 {
		c.WriteQueue = 64
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
}

// StreamLink 基于 io.ReadWriteCloser 的链路：写队列 + 读循环
type StreamLink struct {
	dial Dialer
	cfg  StreamConfig
	log  *zap.Logger

	mu     sync.Mutex
	rw     io.ReadWriteCloser
	reads  chan []byte
	writeC chan []byte
	doneC  chan struct{} // 主动关闭
	failC  chan struct{} // 读写出错，底层流已关闭
	err    error
	wg     sync.WaitGroup
}

var _ device.Link = (*StreamLink)(nil)

// NewStreamLink 创建链路
func NewStreamLink(dial Dialer, cfg StreamConfig, log *zap.Logger) *StreamLink {
	cfg.defaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &StreamLink{dial: dial, cfg: cfg, log: log}
}

// Open 建立底层流并启动读写循环；已打开时为空操作
func (l *StreamLink) Open(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rw != nil {
		return nil
	}
	rw, err := l.dial(ctx)
	if err != nil {
		return err
	}
	l.rw = rw
	l.err = nil
	l.reads = make(chan []byte, 64)
	l.writeC = make(chan []byte, l.cfg.WriteQueue)
	l.doneC = make(chan struct{})
	failC := make(chan struct{})
	l.failC = failC
	var once sync.Once
	fail := func(err error) {
		once.Do(func() {
			l.setErr(err)
			close(failC)
			_ = rw.Close()
		})
	}
	l.wg.Add(2)
	go l.writeLoop(rw, l.writeC, l.doneC, fail)
	go l.readLoop(rw, l.reads, l.doneC, fail)
	return nil
}

// Close 关闭底层流并等待循环退出
func (l *StreamLink) Close() error {
	l.mu.Lock()
	rw, done, failed := l.rw, l.doneC, l.failC
	l.rw = nil
	l.mu.Unlock()
	if rw == nil {
		return nil
	}
	close(done)
	var err error
	select {
	case <-failed:
	default:
		err = rw.Close()
	}
	l.wg.Wait()
	return err
}

// Write 入队，受写超时与 ctx 约束；读写出错后返回 ErrLinkClosed
func (l *StreamLink) Write(ctx context.Context, p []byte) error {
	l.mu.Lock()
	writeC, done, failed := l.writeC, l.doneC, l.failC
	open := l.rw != nil
	l.mu.Unlock()
	if !open {
		return device.ErrLinkClosed
	}
	select {
	case <-failed:
		return l.failure()
	default:
	}
	// 复制一份，避免调用方复用底层切片
	dup := append([]byte(nil), p...)
	timer := time.NewTimer(l.cfg.WriteTimeout)
	defer timer.Stop()
	select {
	case writeC <- dup:
		return nil
	case <-done:
		return device.ErrLinkClosed
	case <-failed:
		return l.failure()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.New("write queue timeout")
	}
}

// Reads 上行数据
func (l *StreamLink) Reads() <-chan []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads
}

// Err 读循环结束原因；主动关闭时为 nil
func (l *StreamLink) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *StreamLink) setErr(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

func (l *StreamLink) failure() error {
	if err := l.Err(); err != nil {
		return fmt.Errorf("%w: %v", device.ErrLinkClosed, err)
	}
	return device.ErrLinkClosed
}

// writeLoop 写失败时关闭底层流，读循环随之结束
func (l *StreamLink) writeLoop(w io.Writer, writeC <-chan []byte, done <-chan struct{}, fail func(error)) {
	defer l.wg.Done()
	for {
		select {
		case <-done:
			return
		case msg := <-writeC:
			if _, err := w.Write(msg); err != nil {
				l.log.Warn("stream write failed", zap.Error(err))
				fail(fmt.Errorf("write: %w", err))
				return
			}
		}
	}
}

func (l *StreamLink) readLoop(r io.Reader, reads chan<- []byte, done <-chan struct{}, fail func(error)) {
	defer l.wg.Done()
	defer close(reads)
	buf := make([]byte, l.cfg.ReadBuffer)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case reads <- append([]byte(nil), buf[:n]...):
			case <-done:
				return
			}
		}
		if err != nil {
			select {
			case <-done:
			default:
				fail(err)
			}
			return
		}
		// 串口读超时返回 0, nil
		select {
		case <-done:
			return
		default:
		}
	}
}
