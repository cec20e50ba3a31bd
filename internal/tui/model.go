// 文件路径: internal/tui/model.go
// 模块说明: 终端在线监控。列表页显示每个用户的在线设备数，回车进入该用户的设备明细。
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/creamcroissant/xboard-presence/internal/grpc/client"
)

// Source is where the monitor reads presence from.
type Source interface {
	OnlineCounts(ctx context.Context, userIDs []int64) (map[int64]int, error)
	UserDevices(ctx context.Context, userID int64) (int, []client.Device, error)
}

// ViewType 表示当前视图
type ViewType int

const (
	ViewUsers   ViewType = iota // 用户列表
	ViewDevices                 // 单个用户的设备列表
)

const refreshInterval = 5 * time.Second

// Model 是主 TUI 模型
type Model struct {
	source  Source
	userIDs []int64

	view    ViewType
	counts  map[int64]int
	users   table.Model
	devices table.Model

	detailUser  int64
	detailTotal int

	width   int
	height  int
	loading bool
	err     error
	updated time.Time

	keys keyMap
}

type keyMap struct {
	Enter   key.Binding
	Back    key.Binding
	Quit    key.Binding
	Refresh key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "devices"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
	}
}

// NewModel 创建监控模型，userIDs 为要观察的用户。
func NewModel(source Source, userIDs []int64) Model {
	users := table.New(
		table.WithColumns([]table.Column{
			{Title: "User", Width: 12},
			{Title: "Online", Width: 8},
			{Title: "State", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	users.SetStyles(tableStyles())

	devices := table.New(
		table.WithColumns([]table.Column{
			{Title: "IP", Width: 40},
			{Title: "Node", Width: 18},
			{Title: "Last seen", Width: 20},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	devices.SetStyles(tableStyles())

	return Model{
		source:  source,
		userIDs: append([]int64(nil), userIDs...),
		view:    ViewUsers,
		counts:  map[int64]int{},
		users:   users,
		devices: devices,
		loading: true,
		keys:    defaultKeyMap(),
	}
}

// Init 实现 tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCounts(), tickCmd())
}

type countsLoadedMsg struct {
	counts map[int64]int
}

type devicesLoadedMsg struct {
	userID  int64
	total   int
	devices []client.Device
}

type errorMsg struct {
	err error
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) loadCounts() tea.Cmd {
	source, ids := m.source, m.userIDs
	return func() tea.Msg {
		counts, err := source.OnlineCounts(context.Background(), ids)
		if err != nil {
			return errorMsg{err: err}
		}
		return countsLoadedMsg{counts: counts}
	}
}

func (m Model) loadDevices(userID int64) tea.Cmd {
	source := m.source
	return func() tea.Msg {
		total, devices, err := source.UserDevices(context.Background(), userID)
		if err != nil {
			return errorMsg{err: err}
		}
		return devicesLoadedMsg{userID: userID, total: total, devices: devices}
	}
}
