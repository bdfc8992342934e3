package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/cwc-bridge/internal/device"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// 回显服务；收到 "bye" 时按 code 关闭
func echoServer(t *testing.T, code int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			mt, p, err := c.ReadMessage()
			if err != nil {
				return
			}
			if string(p) == "bye" {
				_ = c.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(code, "done"), time.Now().Add(time.Second))
				return
			}
			if err := c.WriteMessage(mt, p); err != nil {
				return
			}
		}
	}))
}

func wsURL(s *httptest.Server) string { return "ws" + strings.TrimPrefix(s.URL, "http") }

func TestLink_Echo(t *testing.T) {
	srv := echoServer(t, websocket.CloseNormalClosure)
	defer srv.Close()

	l := NewLink(wsURL(srv), Config{Text: true}, nil)
	ctx := context.Background()
	require.NoError(t, l.Open(ctx))
	require.NoError(t, l.Write(ctx, []byte(`{"type":"ping"}`)))
	select {
	case p := <-l.Reads():
		assert.JSONEq(t, `{"type":"ping"}`, string(p))
	case <-time.After(2 * time.Second):
		t.Fatal("no echo")
	}
	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.Write(ctx, []byte("x")), device.ErrLinkClosed)
}

func TestLink_CloseCodes(t *testing.T) {
	cases := []struct {
		name string
		code int
		want int
	}{
		{"正常关闭", websocket.CloseNormalClosure, 0},
		{"异常关闭码", websocket.CloseGoingAway, websocket.CloseGoingAway},
		{"策略违规", websocket.ClosePolicyViolation, websocket.ClosePolicyViolation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := echoServer(t, tc.code)
			defer srv.Close()
			l := NewLink(wsURL(srv), Config{}, nil)
			require.NoError(t, l.Open(context.Background()))
			require.NoError(t, l.Write(context.Background(), []byte("bye")))

			for range l.Reads() {
			}
			if tc.want == 0 {
				assert.NoError(t, l.Err())
			} else {
				var ce *CloseError
				require.ErrorAs(t, l.Err(), &ce)
				assert.Equal(t, tc.want, ce.Code)
			}
			_ = l.Close()
		})
	}
}

func TestLink_DialFailure(t *testing.T) {
	l := NewLink("ws://127.0.0.1:1/none", Config{}, nil)
	assert.Error(t, l.Open(context.Background()))
}
