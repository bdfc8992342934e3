package ev3

import (
	"sync"
	"time"
)

type replyKind int

const (
	replyDeviceTypes replyKind = iota + 1
	replySensor
	replyMotorPosition
)

// request 等待应答的请求
type request struct {
	kind   replyKind
	input  InputPort
	output OutputPort
	mode   int
	at     time.Time
}

// Pending 按序号记录等待应答的请求，API 写入，Handler 取出
type Pending struct {
	mu   sync.Mutex
	reqs map[uint16]request
	ttl  time.Duration
	now  func() time.Time
}

// NewPending 创建请求表，超过 ttl 未应答的请求在下次写入时清理
func NewPending(ttl time.Duration) *Pending {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Pending{reqs: make(map[uint16]request), ttl: ttl, now: time.Now}
}

func (p *Pending) add(counter uint16, r request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	for c, old := range p.reqs {
		if now.Sub(old.at) > p.ttl {
			delete(p.reqs, c)
		}
	}
	r.at = now
	p.reqs[counter] = r
}

func (p *Pending) take(counter uint16) (request, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.reqs[counter]
	if ok {
		delete(p.reqs, counter)
	}
	return r, ok
}

// Len 等待中的请求数
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reqs)
}
