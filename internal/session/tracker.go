package session

import (
	"sync"
	"time"

	"github.com/taoyao-code/cwc-bridge/internal/device"
	"github.com/taoyao-code/cwc-bridge/internal/event"
)

// Tracker 订阅总线，把设备状态与遥测事件写入 Store
type Tracker struct {
	store Store
	now   func() time.Time

	stop func()
	wg   sync.WaitGroup
}

// NewTracker 开始订阅；Close 结束
func NewTracker(bus *event.Bus, store Store) *Tracker {
	t := &Tracker{store: store, now: time.Now}
	events, cancel := bus.Subscribe()
	t.stop = cancel
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for ev := range events {
			t.handle(ev)
		}
	}()
	return t
}

func (t *Tracker) handle(ev event.Event) {
	at := ev.At
	if at.IsZero() {
		at = t.now()
	}
	if ev.Type == device.EventStateChanged {
		sc, ok := event.As[device.StateChange](ev)
		if !ok {
			return
		}
		switch sc.State {
		case device.StateConnected:
			t.store.OnConnected(sc.Device.ID, sc.Device.Family, at)
		case device.StateDisconnected:
			t.store.OnDisconnected(sc.Device.ID, at)
		}
		return
	}
	// 其它事件的来源若是已记录的设备，视为遥测
	if ev.Source == "" {
		return
	}
	if _, ok := t.store.Get(ev.Source); ok {
		t.store.OnSeen(ev.Source, at)
	}
}

// Close 取消订阅并等待处理结束
func (t *Tracker) Close() {
	t.stop()
	t.wg.Wait()
}
