package event

import (
	"sync"
	"time"
)

// Type 事件类型，由各设备族声明
type Type string

// Event 事件信封：{type, data, source}
// 创建后不应再修改，监听者同步消费
type Event struct {
	Type   Type        `json:"type"`
	Data   interface{} `json:"data"`
	Source string      `json:"source,omitempty"`
	At     time.Time   `json:"-"`
}

// New 创建事件
func New(t Type, data interface{}, source string) Event {
	return Event{Type: t, Data: data, Source: source, At: time.Now()}
}

// As 以具体类型读取事件载荷
func As[T any](ev Event) (T, bool) {
	v, ok := ev.Data.(T)
	return v, ok
}

type listener struct {
	fn func(Event)
}

type subscriber struct {
	ch     chan Event
	filter map[Type]struct{}
}

func (s *subscriber) accepts(t Type) bool {
	if len(s.filter) == 0 {
		return true
	}
	_, ok := s.filter[t]
	return ok
}

// Bus 显式的发布/订阅通道，通过构造参数注入到各组件
// 同步监听者在 Publish 调用方的 goroutine 内执行；
// 通道订阅者缓冲满时丢弃事件，避免阻塞轮询循环
type Bus struct {
	mu        sync.RWMutex
	listeners map[Type][]*listener
	subs      map[*subscriber]struct{}
	bufSize   int
}

// NewBus 创建事件总线
func NewBus() *Bus {
	return &Bus{
		listeners: make(map[Type][]*listener),
		subs:      make(map[*subscriber]struct{}),
		bufSize:   64,
	}
}

// Publish 发布事件
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.RLock()
	ls := append([]*listener(nil), b.listeners[ev.Type]...)
	for s := range b.subs {
		if !s.accepts(ev.Type) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
		}
	}
	b.mu.RUnlock()

	for _, l := range ls {
		l.fn(ev)
	}
}

// Listen 注册同步监听者，返回注销函数
func (b *Bus) Listen(t Type, fn func(Event)) (remove func()) {
	l := &listener{fn: fn}
	b.mu.Lock()
	b.listeners[t] = append(b.listeners[t], l)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			ls := b.listeners[t]
			for i, x := range ls {
				if x == l {
					b.listeners[t] = append(ls[:i:i], ls[i+1:]...)
					break
				}
			}
			if len(b.listeners[t]) == 0 {
				delete(b.listeners, t)
			}
		})
	}
}

// Subscribe 订阅事件通道；types 为空表示订阅全部类型
func (b *Bus) Subscribe(types ...Type) (<-chan Event, func()) {
	s := &subscriber{ch: make(chan Event, b.bufSize)}
	if len(types) > 0 {
		s.filter = make(map[Type]struct{}, len(types))
		for _, t := range types {
			s.filter[t] = struct{}{}
		}
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, s)
			b.mu.Unlock()
			close(s.ch)
		})
	}
}

// ListenerCount 返回某类型的同步监听者数量
func (b *Bus) ListenerCount(t Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[t])
}

// SubscriberCount 返回通道订阅者数量
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
