package ui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a new Bubbles table with default styling.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{
			Title: c.Title,
			Width: c.Width,
		}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.
		Foreground(ColorPrimary)
	s.Selected = s.Selected.
		Foreground(ColorPrimary).
		Background(ColorMuted).
		Bold(false)

	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a non-interactive table string. This is the
// standard output for listing commands (vms, nodes, storages, templates).
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}

	t := NewTable(columns, tableRows)
	return t.View()
}

// StatusDot renders a colored indicator for a VM or node status string.
// "running" and "online" are green, "stopped" and "offline" gray,
// anything else yellow.
func StatusDot(status string) string {
	switch status {
	case "running", "online":
		return SuccessStyle().Render(SymbolComplete)
	case "stopped", "offline":
		return MutedStyle().Render(SymbolPending)
	default:
		return WarningStyle().Render(SymbolProgress)
	}
}

// KeyValue is one line of a key/value detail block.
type KeyValue struct {
	Key   string
	Value string
}

// RenderKeyValues renders an aligned key/value block, the format used by
// 'pmx status' and 'pmx daemon status'.
func RenderKeyValues(pairs []KeyValue) string {
	keyStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	width := 0
	for _, p := range pairs {
		if len(p.Key) > width {
			width = len(p.Key)
		}
	}

	var output string
	for _, p := range pairs {
		output += "  " + keyStyle.Render(padRight(p.Key, width+2)) + p.Value + "\n"
	}
	return output
}

// padRight pads a string to the given visible width.
func padRight(s string, width int) string {
	// Account for ANSI codes when calculating visible length
	visibleLen := lipgloss.Width(s)
	if visibleLen >= width {
		return s
	}
	padding := width - visibleLen
	for i := 0; i < padding; i++ {
		s += " "
	}
	return s
}
