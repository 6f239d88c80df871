package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const tableSeparator = " "

func tableSeparatorWidth() int {
	return lipgloss.Width(tableSeparator)
}

func formatHeaderLabel(label string) string {
	return strings.ToUpper(label)
}

func renderActiveHeaderLabel(label string) string {
	return "[" + label + "]"
}

func renderTableRow(cells []string, widths []int, style lipgloss.Style) string {
	var parts []string
	for i, cell := range cells {
		if i >= len(widths) {
			continue
		}
		parts = append(parts, style.Width(widths[i]).MaxHeight(1).Render(cell))
	}
	return strings.Join(parts, tableSeparator)
}

func renderTableDivider(widths []int) string {
	total := 0
	for _, w := range widths {
		total += w
	}
	if len(widths) > 1 {
		total += (len(widths) - 1) * tableSeparatorWidth()
	}
	return lipgloss.NewStyle().Foreground(ColorMuted).Render(strings.Repeat("─", total))
}
