package monitor

import (
	"fmt"
	"strings"

	"github.com/vempat/vempat/internal/output"
)

const (
	// MinWidth is the minimum terminal width for proper display
	MinWidth = 40
	// chromeRows is everything in the view that is not an entry row
	chromeRows = 9
)

// visibleRows is how many queue entries fit on screen.
func (m Model) visibleRows() int {
	if m.Height == 0 {
		return 20
	}
	if n := m.Height - chromeRows; n > 1 {
		return n
	}
	return 1
}

func (m Model) renderView() string {
	if m.Width > 0 && m.Width < MinWidth {
		return "Terminal too small"
	}

	var sb strings.Builder

	header := titleStyle.Render("vempat monitor")
	if m.Version != "" {
		header += " " + subtleStyle.Render(m.Version)
	}
	sb.WriteString(header + "\n\n")

	sb.WriteString(m.renderStatus() + "\n")
	sb.WriteString(m.renderEntries() + "\n")

	switch {
	case m.FetchErr != nil:
		sb.WriteString(errorStyle.Render("Error: "+m.FetchErr.Error()) + "\n")
	case m.Err != nil:
		sb.WriteString(errorStyle.Render("Error: "+m.Err.Error()) + "\n")
	case m.Busy:
		sb.WriteString(m.spinner.View() + " " + m.Status + "\n")
	case m.Status != "":
		sb.WriteString(m.Status + "\n")
	default:
		sb.WriteString("\n")
	}

	sb.WriteString(m.renderFooter())
	return sb.String()
}

func (m Model) renderStatus() string {
	var conn string
	switch {
	case m.Online == nil:
		conn = unknownStyle.Render("● checking")
	case *m.Online:
		conn = onlineStyle.Render("● online")
	default:
		conn = offlineStyle.Render("● offline")
	}
	return conn + "   " + output.FormatQueueStats(m.Stats)
}

func (m Model) renderEntries() string {
	title := panelTitleStyle.Render(fmt.Sprintf("QUEUE (%d)", len(m.Entries)))
	if len(m.Entries) == 0 {
		return panelStyle.Render(title + "\n" + subtleStyle.Render("Nothing waiting to sync"))
	}

	now := m.now()
	rows := m.visibleRows()
	end := m.ScrollOffset + rows
	if end > len(m.Entries) {
		end = len(m.Entries)
	}
	lines := make([]string, 0, rows+1)
	lines = append(lines, title)
	for i := m.ScrollOffset; i < end; i++ {
		line := output.FormatQueueEntry(&m.Entries[i], now)
		if m.Width > 0 {
			line = output.Truncate(line, m.Width-6)
		}
		lines = append(lines, line)
	}
	if hidden := len(m.Entries) - end; hidden > 0 {
		lines = append(lines, subtleStyle.Render(fmt.Sprintf("… %d more (j/k to scroll)", hidden)))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderFooter() string {
	refreshed := "never"
	if !m.LastRefresh.IsZero() {
		refreshed = m.LastRefresh.Format("15:04:05")
	}
	keys := []string{"r refresh"}
	if m.Actions.Sync != nil {
		keys = append(keys, "s sync")
	}
	if m.Actions.Retry != nil {
		keys = append(keys, "R retry failed")
	}
	keys = append(keys, "j/k scroll", "q quit")
	return helpStyle.Render(strings.Join(keys, " · ")) +
		"  " + timestampStyle.Render("updated "+refreshed)
}
