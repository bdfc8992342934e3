package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taoyao-code/cwc-bridge/internal/config"
	"github.com/taoyao-code/cwc-bridge/internal/device"
	"github.com/taoyao-code/cwc-bridge/internal/event"
	redisstorage "github.com/taoyao-code/cwc-bridge/internal/storage/redis"
	"github.com/taoyao-code/cwc-bridge/internal/transport/ble"
	"github.com/taoyao-code/cwc-bridge/internal/transport/virtual"
	"go.uber.org/zap"
)

type fakeClients struct {
	current, max int
	rejected     int64
}

func (f fakeClients) Current() int    { return f.current }
func (f fakeClients) Max() int        { return f.max }
func (f fakeClients) Rejected() int64 { return f.rejected }

func TestRunnerChecker(t *testing.T) {
	tests := []struct {
		name    string
		clients fakeClients
		want    Status
	}{
		{"空闲", fakeClients{current: 0, max: 16}, StatusHealthy},
		{"接近上限", fakeClients{current: 15, max: 16, rejected: 3}, StatusDegraded},
		{"未设置上限", fakeClients{current: 2}, StatusHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewRunnerChecker(tt.clients).Check(context.Background())
			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, tt.clients.rejected, res.Details["rejected_total"])
		})
	}
}

func TestBluetoothChecker(t *testing.T) {
	state := ble.NewAdapterState(event.NewBus())
	c := NewBluetoothChecker(state)
	assert.Equal(t, "bluetooth", c.Name())

	res := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Equal(t, "adapter not available", res.Message)

	state.Update(true, false, false)
	assert.Equal(t, "adapter powered off", c.Check(context.Background()).Message)

	state.Update(true, true, true)
	res = c.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, true, res.Details["enabled"])
}

func TestDeviceChecker(t *testing.T) {
	reg := device.NewRegistry(event.NewBus(), zap.NewNop())
	reg.AddScanner(virtual.NewScanner(device.Info{Name: "Sphero-RGB", Family: device.FamilySphero}))
	reg.RegisterTransport(device.KindVirtual, virtual.Factory)
	require.NoError(t, reg.Update(context.Background()))
	defer reg.CloseAll()

	res := NewDeviceChecker(reg).Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, map[string]int{"virtual": 1}, res.Details["discovered"])
	assert.Empty(t, res.Details["connected"])
}

func TestHTTPRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	do := func(r *gin.Engine, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	t.Run("启动未完成", func(t *testing.T) {
		r := gin.New()
		ready := New()
		RegisterHTTPRoutes(r, NewAggregator(Options{}, &mockChecker{"db", StatusHealthy}), ready)
		assert.Equal(t, http.StatusServiceUnavailable, do(r, "/readyz").Code)

		ready.SetTransportsReady(true)
		ready.SetStoreReady(true)
		assert.Equal(t, http.StatusOK, do(r, "/readyz").Code)
		assert.Equal(t, http.StatusOK, do(r, "/livez").Code)
	})

	t.Run("组件不健康", func(t *testing.T) {
		r := gin.New()
		RegisterHTTPRoutes(r, NewAggregator(Options{}, &mockChecker{"db", StatusUnhealthy}), nil)
		assert.Equal(t, http.StatusServiceUnavailable, do(r, "/readyz").Code)

		w := do(r, "/healthz")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var report HealthReport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.Equal(t, StatusUnhealthy, report.Status)
		assert.Contains(t, report.Checks, "db")
	})

	t.Run("降级仍返回200", func(t *testing.T) {
		r := gin.New()
		RegisterHTTPRoutes(r, NewAggregator(Options{}, &mockChecker{"db", StatusDegraded}), nil)
		assert.Equal(t, http.StatusOK, do(r, "/healthz").Code)
	})
}

type fakeJournal struct{ written, dropped int64 }

func (f *fakeJournal) Written() int64 { return f.written }
func (f *fakeJournal) Dropped() int64 { return f.dropped }

func TestDatabaseChecker(t *testing.T) {
	var pingErr error
	acquired := int32(1)
	journal := &fakeJournal{written: 10}
	c := &DatabaseChecker{
		ping:    func(context.Context) error { return pingErr },
		conns:   func() (int32, int32) { return acquired, 4 },
		journal: journal,
	}
	assert.Equal(t, "database", c.Name())

	res := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, int64(10), res.Details["journal_written"])

	t.Run("帧日志丢弃后降级一次", func(t *testing.T) {
		journal.dropped = 3
		assert.Equal(t, StatusDegraded, c.Check(context.Background()).Status)
		assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)
	})

	t.Run("连接池满", func(t *testing.T) {
		acquired = 4
		res := c.Check(context.Background())
		assert.Equal(t, StatusDegraded, res.Status)
		assert.Equal(t, "connection pool near limit", res.Message)
		acquired = 1
	})

	t.Run("ping失败", func(t *testing.T) {
		pingErr = errors.New("connection refused")
		res := c.Check(context.Background())
		assert.Equal(t, StatusUnhealthy, res.Status)
		assert.Contains(t, res.Message, "connection refused")
	})
}

func TestRedisChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redisstorage.NewClient(context.Background(), config.RedisConfig{Addr: mr.Addr(), PoolSize: 2})
	require.NoError(t, err)
	defer client.Close()

	c := NewRedisChecker(client)
	res := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Contains(t, res.Details, "total_conns")

	mr.Close()
	res = c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)

	// 作为可选组件只影响到降级
	agg := NewAggregator(Options{})
	agg.AddOptional(c)
	assert.Equal(t, StatusDegraded, agg.OverallStatus(context.Background()))
}
