package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"github.com/taoyao-code/cwc-bridge/internal/device"
	"github.com/taoyao-code/cwc-bridge/internal/runner"
)

const (
	maxLines   = 500
	retryDelay = 2 * time.Second
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// deviceRow 表格中的一台设备
type deviceRow struct {
	ID     string
	Name   string
	Family string
	State  string
	Reason string
}

// stateChange 状态事件中用到的字段
type stateChange struct {
	Device device.Info `json:"device"`
	State  string      `json:"state"`
	Reason string      `json:"reason"`
}

type model struct {
	addr   string
	apiKey string
	conn   *websocket.Conn

	devices map[string]deviceRow
	table   table.Model
	log     viewport.Model
	lines   []string

	paused bool
	status string
	err    error
	width  int
}

func newModel(addr, apiKey string) model {
	columns := []table.Column{
		{Title: "ID", Width: 28},
		{Title: "Name", Width: 16},
		{Title: "Family", Width: 8},
		{Title: "State", Width: 13},
		{Title: "Reason", Width: 24},
	}
	t := table.New(table.WithColumns(columns), table.WithHeight(6))
	s := table.DefaultStyles()
	s.Header = s.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("229")).Bold(true)
	t.SetStyles(s)

	return model{
		addr:    addr,
		apiKey:  apiKey,
		devices: make(map[string]deviceRow),
		table:   t,
		log:     viewport.New(100, 12),
		status:  "connecting " + addr,
	}
}

func (m model) Init() tea.Cmd {
	return dial(m.addr, m.apiKey)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.conn != nil {
				_ = m.conn.Close()
			}
			return m, tea.Quit
		case "p":
			m.paused = !m.paused
			if !m.paused {
				m.log.GotoBottom()
			}
			return m, nil
		case "c":
			m.lines = nil
			m.log.SetContent("")
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.log.Width = msg.Width
		// 标题、表格、状态与帮助行
		if h := msg.Height - 14; h > 3 {
			m.log.Height = h
		}
		return m, nil

	case connectedMsg:
		m.conn = msg.conn
		m.err = nil
		m.status = "connected " + m.addr
		return m, waitEvent(msg.conn)

	case disconnectedMsg:
		m.conn = nil
		m.err = msg.err
		m.status = "disconnected, retrying"
		return m, retryAfter(retryDelay)

	case retryMsg:
		m.status = "connecting " + m.addr
		return m, dial(m.addr, m.apiKey)

	case eventMsg:
		m.apply(msg.ev)
		m.appendLine(formatEvent(msg.ev, msg.at))
		if m.conn == nil {
			return m, nil
		}
		return m, waitEvent(m.conn)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	cmds = append(cmds, cmd)
	m.log, cmd = m.log.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// apply 根据设备事件更新表格
func (m *model) apply(ev envelope) {
	switch ev.Type {
	case string(device.EventDevicesUpdated):
		var list []device.Info
		if json.Unmarshal(ev.Data, &list) != nil {
			return
		}
		for _, info := range list {
			row, ok := m.devices[info.ID]
			if !ok {
				row.State = device.StateDisconnected.String()
			}
			row.ID, row.Name, row.Family = info.ID, info.Name, info.Family
			m.devices[info.ID] = row
		}
	case string(device.EventStateChanged):
		var sc stateChange
		if json.Unmarshal(ev.Data, &sc) != nil || sc.Device.ID == "" {
			return
		}
		m.devices[sc.Device.ID] = deviceRow{
			ID:     sc.Device.ID,
			Name:   sc.Device.Name,
			Family: sc.Device.Family,
			State:  sc.State,
			Reason: sc.Reason,
		}
	default:
		return
	}
	m.table.SetRows(m.rows())
}

func (m *model) rows() []table.Row {
	ids := make([]string, 0, len(m.devices))
	for id := range m.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rows := make([]table.Row, 0, len(ids))
	for _, id := range ids {
		d := m.devices[id]
		rows = append(rows, table.Row{d.ID, d.Name, d.Family, d.State, d.Reason})
	}
	return rows
}

func (m *model) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLines {
		m.lines = m.lines[len(m.lines)-maxLines:]
	}
	m.log.SetContent(strings.Join(m.lines, "\n"))
	if !m.paused {
		m.log.GotoBottom()
	}
}

func formatEvent(ev envelope, at time.Time) string {
	ts := dimStyle.Render(at.Format("15:04:05.000"))
	if ev.Type == string(runner.EventError) {
		var e runner.ErrorData
		_ = json.Unmarshal(ev.Data, &e)
		return fmt.Sprintf("%s %s", ts, errStyle.Render(fmt.Sprintf("error %s: %s", e.Command, e.Error)))
	}
	src := ""
	if ev.Source != "" {
		src = " [" + ev.Source + "]"
	}
	return fmt.Sprintf("%s %s%s %s", ts, ev.Type, src, ev.Data)
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("cwcmon · bridge events") + "\n")
	b.WriteString(m.table.View() + "\n\n")
	b.WriteString(m.log.View() + "\n")
	if m.err != nil {
		b.WriteString(errStyle.Render("error: "+m.err.Error()) + "\n")
	}
	status := m.status
	if m.paused {
		status += " (paused)"
	}
	b.WriteString(okStyle.Render(status) + "\n")
	b.WriteString(dimStyle.Render("p:pause  c:clear  ↑/↓:select  q:quit"))
	return b.String()
}
