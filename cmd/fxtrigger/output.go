package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	onStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	offStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

const columnGap = 2

// table lays out rows in left-aligned columns sized to the widest cell.
func table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range rows {
		for i, c := range r {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(c))
			}
		}
	}

	var b strings.Builder
	b.WriteString(tableRow(headerStyle, headers, widths))
	for _, r := range rows {
		b.WriteByte('\n')
		b.WriteString(tableRow(lipgloss.NewStyle(), r, widths))
	}
	return b.String()
}

func tableRow(style lipgloss.Style, cells []string, widths []int) string {
	parts := make([]string, 0, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		pad := 0
		if i < len(widths)-1 {
			pad = w - lipgloss.Width(cell) + columnGap
		}
		parts = append(parts, style.Render(cell)+strings.Repeat(" ", pad))
	}
	return strings.TrimRight(strings.Join(parts, ""), " ")
}

func onOff(active bool) string {
	if active {
		return onStyle.Render("on")
	}
	return offStyle.Render("off")
}
