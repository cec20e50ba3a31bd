package tui

import (
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		height := msg.Height - 6
		if height < 5 {
			height = 5
		}
		m.users.SetHeight(height)
		m.devices.SetHeight(height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case countsLoadedMsg:
		m.loading = false
		m.err = nil
		m.counts = msg.counts
		m.updated = time.Now()
		m.users.SetRows(m.userRows())
		return m, nil

	case devicesLoadedMsg:
		if msg.userID != m.detailUser {
			return m, nil
		}
		m.loading = false
		m.err = nil
		m.detailTotal = msg.total
		rows := make([]table.Row, 0, len(msg.devices))
		for _, d := range msg.devices {
			node := d.NodeKey
			if node == "" {
				node = d.NodeType
			}
			seen := "-"
			if d.LastSeen > 0 {
				seen = time.Unix(d.LastSeen, 0).Format(time.DateTime)
			}
			rows = append(rows, table.Row{d.IP, node, seen})
		}
		m.devices.SetRows(rows)
		m.updated = time.Now()
		return m, nil

	case errorMsg:
		m.loading = false
		m.err = msg.err
		return m, nil

	case tickMsg:
		if m.view == ViewDevices {
			return m, tea.Batch(m.loadDevices(m.detailUser), tickCmd())
		}
		return m, tea.Batch(m.loadCounts(), tickCmd())
	}

	var cmd tea.Cmd
	if m.view == ViewDevices {
		m.devices, cmd = m.devices.Update(msg)
	} else {
		m.users, cmd = m.users.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		if m.view == ViewDevices {
			return m, m.loadDevices(m.detailUser)
		}
		return m, m.loadCounts()

	case key.Matches(msg, m.keys.Enter) && m.view == ViewUsers:
		idx := m.users.Cursor()
		if idx < 0 || idx >= len(m.userIDs) {
			return m, nil
		}
		m.view = ViewDevices
		m.detailUser = m.userIDs[idx]
		m.detailTotal = 0
		m.devices.SetRows(nil)
		m.loading = true
		return m, m.loadDevices(m.detailUser)

	case key.Matches(msg, m.keys.Back) && m.view == ViewDevices:
		m.view = ViewUsers
		m.detailUser = 0
		return m, nil
	}

	var cmd tea.Cmd
	if m.view == ViewDevices {
		m.devices, cmd = m.devices.Update(msg)
	} else {
		m.users, cmd = m.users.Update(msg)
	}
	return m, cmd
}

func (m Model) userRows() []table.Row {
	rows := make([]table.Row, 0, len(m.userIDs))
	for _, id := range m.userIDs {
		n := m.counts[id]
		state := styleIdle.Render("offline")
		if n > 0 {
			state = styleOnline.Render("online")
		}
		rows = append(rows, table.Row{strconv.FormatInt(id, 10), strconv.Itoa(n), state})
	}
	return rows
}
