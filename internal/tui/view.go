package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	switch m.view {
	case ViewDevices:
		b.WriteString(styleTitle.Render(fmt.Sprintf("User #%d · %d online", m.detailUser, m.detailTotal)))
		b.WriteString("\n")
		b.WriteString(m.devices.View())
	default:
		b.WriteString(styleTitle.Render(fmt.Sprintf("Presence · %d users", len(m.userIDs))))
		b.WriteString("\n")
		b.WriteString(m.users.View())
	}
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.helpLine())
	return b.String()
}

func (m Model) statusLine() string {
	switch {
	case m.err != nil:
		return styleError.Render("error: " + m.err.Error())
	case m.loading:
		return styleStatus.Render("loading…")
	case !m.updated.IsZero():
		return styleHelp.Render("updated " + m.updated.Format(time.TimeOnly))
	}
	return ""
}

func (m Model) helpLine() string {
	parts := []string{"↑/↓ move"}
	if m.view == ViewUsers {
		parts = append(parts, m.keys.Enter.Help().Key+" "+m.keys.Enter.Help().Desc)
	} else {
		parts = append(parts, m.keys.Back.Help().Key+" "+m.keys.Back.Help().Desc)
	}
	parts = append(parts,
		m.keys.Refresh.Help().Key+" "+m.keys.Refresh.Help().Desc,
		m.keys.Quit.Help().Key+" "+m.keys.Quit.Help().Desc,
	)
	return styleHelp.Render(lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(parts, " · ")))
}
