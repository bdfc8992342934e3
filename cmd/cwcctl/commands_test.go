package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/cwc-bridge/internal/event"
	"github.com/taoyao-code/cwc-bridge/internal/runner"
)

func TestParseScript(t *testing.T) {
	t.Run("完整脚本", func(t *testing.T) {
		s, err := parseScript([]byte(`
device: virtual:sphero
steps:
  - command: setRGB
    value: {red: 255, green: 0, blue: 0}
  - command: roll
    value: {speed: 80, heading: 90}
    delay: 200
    wait: 1s
  - command: stop
`))
		require.NoError(t, err)
		assert.Equal(t, "virtual:sphero", s.Device)
		require.Len(t, s.Steps, 3)
		assert.Equal(t, 200, s.Steps[1].Delay)
		assert.Equal(t, time.Second, s.Steps[1].Wait)

		req, err := s.Steps[0].request()
		require.NoError(t, err)
		assert.Equal(t, "setRGB", req.CommandName())
		assert.JSONEq(t, `{"red":255,"green":0,"blue":0}`, string(req.Value))

		req, err = s.Steps[2].request()
		require.NoError(t, err)
		assert.Nil(t, req.Value)
	})

	tests := []struct {
		name string
		data string
	}{
		{"没有步骤", "device: x\n"},
		{"缺少命令名", "steps:\n  - value: 1\n"},
		{"负延迟", "steps:\n  - command: roll\n    delay: -5\n"},
		{"格式错误", "steps: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseScript([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestStepFromArgs(t *testing.T) {
	st, err := stepFromArgs([]string{"setRGB", `{"red":1}`}, 100)
	require.NoError(t, err)
	assert.Equal(t, "setRGB", st.Command)
	assert.Equal(t, 100, st.Delay)
	assert.Equal(t, map[string]any{"red": float64(1)}, st.Value)

	_, err = stepFromArgs(nil, 0)
	assert.Error(t, err)
	_, err = stepFromArgs([]string{"roll", "{bad"}, 0)
	assert.Error(t, err)
	_, err = stepFromArgs([]string{"roll"}, -1)
	assert.Error(t, err)
}

func TestClient_RunnerURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"http://127.0.0.1:8090", "ws://127.0.0.1:8090/ws/runner"},
		{"https://bridge.local/", "wss://bridge.local/ws/runner"},
		{"http://host/prefix", "ws://host/prefix/ws/runner"},
	}
	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			c, err := newClient(tt.server, "", time.Second)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.runnerURL())
		})
	}

	_, err := newClient("tcp://x", "", time.Second)
	assert.Error(t, err)
}

func TestClient_Do(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "k1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
			return
		}
		_, _ = w.Write([]byte(`{"devices":[{"id":"virtual:sphero","name":"SK-1","kind":"virtual","family":"sphero","online":true}]}`))
	}))
	defer srv.Close()

	t.Run("带密钥", func(t *testing.T) {
		c, err := newClient(srv.URL, "k1", time.Second)
		require.NoError(t, err)
		var list deviceList
		require.NoError(t, c.do(context.Background(), http.MethodGet, "/api/devices", nil, &list))
		require.Len(t, list.Devices, 1)
		assert.True(t, list.Devices[0].Online)
	})

	t.Run("错误信息透传", func(t *testing.T) {
		c, err := newClient(srv.URL, "", time.Second)
		require.NoError(t, err)
		err = c.do(context.Background(), http.MethodGet, "/api/devices", nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401 invalid api key")
	})
}

// runnerServer 模拟命令通道：记录收到的命令，对 bad 回报错误
func runnerServer(t *testing.T) (*httptest.Server, func() []runner.Request) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []runner.Request
	)
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/mode":
			_, _ = w.Write([]byte(`{"active":true}`))
			return
		case "/ws/runner":
		default:
			http.NotFound(w, r)
			return
		}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var req runner.Request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			mu.Lock()
			reqs = append(reqs, req)
			mu.Unlock()
			if req.CommandName() == "bad" {
				_ = conn.WriteJSON(event.New(runner.EventError, runner.ErrorData{Command: "bad", Error: "runner: unknown command"}, ""))
			} else {
				_ = conn.WriteJSON(event.New("sphero.collision", map[string]int{"x": 1}, "virtual:sphero"))
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []runner.Request {
		mu.Lock()
		defer mu.Unlock()
		return append([]runner.Request(nil), reqs...)
	}
}

func TestRunSteps(t *testing.T) {
	srv, received := runnerServer(t)
	c, err := newClient(srv.URL, "", time.Second)
	require.NoError(t, err)

	t.Run("全部成功", func(t *testing.T) {
		conn, err := c.dialRunner(context.Background())
		require.NoError(t, err)
		var out bytes.Buffer
		steps := []Step{
			{Command: "setRGB", Value: map[string]any{"red": 255}},
			{Command: "roll", Delay: 50},
		}
		err = runSteps(context.Background(), conn, steps, 200*time.Millisecond, true, &out)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "→ setRGB")
		assert.Contains(t, out.String(), "sphero.collision")

		got := received()
		require.GreaterOrEqual(t, len(got), 2)
		assert.Equal(t, "setRGB", got[0].Command)
		assert.JSONEq(t, `{"red":255}`, string(got[0].Value))
		assert.Equal(t, 50, got[1].Delay)
	})

	t.Run("错误回报计入失败", func(t *testing.T) {
		conn, err := c.dialRunner(context.Background())
		require.NoError(t, err)
		var out bytes.Buffer
		err = runSteps(context.Background(), conn, []Step{{Command: "bad"}}, 200*time.Millisecond, false, &out)
		require.Error(t, err)
		assert.Contains(t, out.String(), "✗ bad: runner: unknown command")
		assert.NotContains(t, out.String(), "sphero.collision")
	})
}

func TestApp(t *testing.T) {
	srv, received := runnerServer(t)

	t.Run("run 脚本", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "square.yaml")
		require.NoError(t, os.WriteFile(path, []byte("device: virtual:sphero\nsteps:\n  - command: roll\n"), 0o644))

		var out bytes.Buffer
		code := run([]string{"cwcctl", "--server", srv.URL, "run", "--settle", "100ms", path}, &out)
		assert.Equal(t, 0, code)
		assert.Contains(t, out.String(), "using virtual:sphero")

		got := received()
		require.NotEmpty(t, got)
		assert.Equal(t, "roll", got[len(got)-1].Command)
	})

	t.Run("设备列表", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, printDevices(&out, deviceList{Devices: []deviceRow{
			{ID: "serial:/dev/ttyUSB0", Name: "Makeblock", Kind: "serial"},
		}}))
		assert.Contains(t, out.String(), "serial:/dev/ttyUSB0")
		assert.Contains(t, out.String(), "-")
	})

	t.Run("status 输出缩进 JSON", func(t *testing.T) {
		var out bytes.Buffer
		code := run([]string{"cwcctl", "-s", srv.URL, "use", "virtual:sphero"}, &out)
		assert.Equal(t, 0, code)
		var v map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &v))
		assert.Equal(t, true, v["active"])
	})
}
