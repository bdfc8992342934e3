package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeTarget struct {
	id        string
	failUntil int32
	attempts  atomic.Int32
	connected atomic.Bool
}

func (f *fakeTarget) ID() string        { return f.id }
func (f *fakeTarget) IsConnected() bool { return f.connected.Load() }

func (f *fakeTarget) Connect(context.Context) error {
	n := f.attempts.Add(1)
	if n <= f.failUntil {
		return errors.New("unreachable")
	}
	f.connected.Store(true)
	return nil
}

func TestManager_FixedInterval(t *testing.T) {
	m := New(Config{Interval: 10 * time.Millisecond}, nil)
	var mu sync.Mutex
	var results []error
	m.OnAttempt = func(_ string, err error) {
		mu.Lock()
		results = append(results, err)
		mu.Unlock()
	}
	target := &fakeTarget{id: "d1", failUntil: 2}
	m.Watch(context.Background(), target)
	m.Watch(context.Background(), target)

	require.Eventually(t, target.IsConnected, time.Second, 5*time.Millisecond)
	assert.True(t, m.Watching("d1"))

	t.Run("连接后不再重试", func(t *testing.T) {
		n := target.attempts.Load()
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, n, target.attempts.Load())
	})

	t.Run("断开后再次重连", func(t *testing.T) {
		target.connected.Store(false)
		require.Eventually(t, target.IsConnected, time.Second, 5*time.Millisecond)
	})

	m.Stop()
	assert.False(t, m.Watching("d1"))
	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(results), 3)
	assert.Error(t, results[0])
	assert.NoError(t, results[2])
}

func TestManager_ExponentialBackoff(t *testing.T) {
	m := New(Config{Strategy: StrategyExponential, Interval: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond}, nil)
	target := &fakeTarget{id: "d2", failUntil: 3}
	m.Watch(context.Background(), target)
	require.Eventually(t, target.IsConnected, 2*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 4, target.attempts.Load())
	m.Stop()
}

func TestManager_Unwatch(t *testing.T) {
	m := New(Config{Interval: 5 * time.Millisecond}, nil)
	target := &fakeTarget{id: "d3", failUntil: 1 << 30}
	m.Watch(context.Background(), target)
	require.Eventually(t, func() bool { return target.attempts.Load() > 0 }, time.Second, time.Millisecond)
	m.Unwatch("d3")
	m.Unwatch("d3")
	m.Stop()
	assert.False(t, m.Watching("d3"))
}

// slowTarget Connect 阻塞到 ctx 取消
type slowTarget struct {
	id       string
	entered  chan struct{}
	once     sync.Once
	inFlight atomic.Int32
	attempts atomic.Int32
}

func (s *slowTarget) ID() string      { return s.id }
func (*slowTarget) IsConnected() bool { return false }

func (s *slowTarget) Connect(ctx context.Context) error {
	s.attempts.Add(1)
	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	s.once.Do(func() { close(s.entered) })
	<-ctx.Done()
	return ctx.Err()
}

func TestManager_UnwatchWaitsForLoop(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
	}{
		{"固定间隔", StrategyFixed},
		{"指数退避", StrategyExponential},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(Config{Strategy: tt.strategy, Interval: time.Millisecond}, nil)
			target := &slowTarget{id: "d4", entered: make(chan struct{})}
			m.Watch(context.Background(), target)
			<-target.entered

			m.Unwatch("d4")
			assert.Zero(t, target.inFlight.Load(), "no attempt may run after Unwatch returns")
			n := target.attempts.Load()
			time.Sleep(20 * time.Millisecond)
			assert.Equal(t, n, target.attempts.Load())
			assert.False(t, m.Watching("d4"))
			m.Stop()
		})
	}
}

func TestManager_CancelledContextSkipsAttempt(t *testing.T) {
	m := New(Config{Interval: time.Millisecond}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	target := &fakeTarget{id: "d5"}
	m.Watch(ctx, target)
	m.Unwatch("d5")
	assert.Zero(t, target.attempts.Load())
	m.Stop()
}
