package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

// envelope 总线事件 {type, data, source}
type envelope struct {
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
	Source string          `json:"source,omitempty"`
}

type connectedMsg struct{ conn *websocket.Conn }

type eventMsg struct {
	ev envelope
	at time.Time
}

type disconnectedMsg struct{ err error }

type retryMsg struct{}

func runnerURL(server string) (string, error) {
	u, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server %q: %w", server, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server %q: scheme must be http or https", server)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/runner"
	return u.String(), nil
}

func dial(addr, apiKey string) tea.Cmd {
	return func() tea.Msg {
		h := http.Header{}
		if apiKey != "" {
			h.Set("X-API-Key", apiKey)
		}
		d := &websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: 5 * time.Second}
		conn, _, err := d.Dial(addr, h)
		if err != nil {
			return disconnectedMsg{err: err}
		}
		return connectedMsg{conn: conn}
	}
}

// waitEvent 读取一条消息；每条 eventMsg 处理后再次调度
func waitEvent(conn *websocket.Conn) tea.Cmd {
	return func() tea.Msg {
		for {
			_, p, err := conn.ReadMessage()
			if err != nil {
				return disconnectedMsg{err: err}
			}
			var ev envelope
			if json.Unmarshal(p, &ev) != nil || ev.Type == "" {
				continue
			}
			return eventMsg{ev: ev, at: time.Now()}
		}
	}
}

func retryAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return retryMsg{} })
}
