package ui

import (
	"strings"

	"bitebook/internal/model"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// RenderHelp renders context-sensitive help footer.
func RenderHelp(keys KeyMap, screen model.Screen, mode model.Mode, width int) string {
	if mode == model.ModeInsert {
		return renderFormHelp(width)
	}

	switch screen {
	case model.ScreenPlaces:
		return renderHelpLine([]string{
			helpKey("j/k", "navigate"),
			bindingHelp(keys.Select),
			bindingHelp(keys.Add),
			bindingHelp(keys.ToggleVisited),
			bindingHelp(keys.Delete),
			bindingHelp(keys.Search),
			helpKey("t/f/o", "type/status/sort"),
			bindingHelp(keys.Refresh),
			bindingHelp(keys.Help),
		}, width)
	case model.ScreenPlaceDetail:
		return renderHelpLine([]string{
			bindingHelp(keys.Back),
			bindingHelp(keys.ToggleVisited),
			bindingHelp(keys.Edit),
			bindingHelp(keys.Delete),
			bindingHelp(keys.Map),
			bindingHelp(keys.QRCode),
		}, width)
	default:
		return renderHelpLine([]string{
			helpKey("j/k", "navigate"),
			helpKey("q", "quit"),
		}, width)
	}
}

func renderFormHelp(width int) string {
	keys := []string{
		helpKey("tab", "next field"),
		helpKey("shift+tab", "prev field"),
		helpKey("ctrl+s", "save"),
		helpKey("esc", "cancel"),
	}
	return renderHelpLine(keys, width)
}

func bindingHelp(b key.Binding) string {
	h := b.Help()
	return helpKey(h.Key, h.Desc)
}

func helpKey(key, desc string) string {
	return HelpKeyStyle.Render(key) + " " + HelpDescStyle.Render(desc)
}

func renderHelpLine(keys []string, width int) string {
	return FooterStyle.Width(width).Render(strings.Join(keys, "  "))
}

// RenderFullHelp renders the full help screen.
func RenderFullHelp(width, height int) string {
	content := lipgloss.NewStyle().
		Width(width-4).
		Height(height-6).
		Padding(1, 2)

	sections := []string{
		titleSection("Navigation"),
		helpSection([]helpItem{
			{"j / ↓", "Move down"},
			{"k / ↑", "Move up"},
			{"gg / G", "Jump to top / bottom"},
			{"ctrl+d / ctrl+u", "Half page down / up"},
			{"enter / l", "Open place"},
			{"h / esc", "Back"},
			{"R", "Refresh from the server"},
			{"q", "Quit (from the list)"},
			{"?", "Toggle help"},
		}),
		titleSection("Places"),
		helpSection([]helpItem{
			{"a", "Add a place"},
			{"v", "Mark visited (rate) / not visited"},
			{"d", "Delete"},
			{"tab / shift+tab", "Cycle active column"},
			{"c / C", "Hide active column / show all"},
		}),
		titleSection("Filters"),
		helpSection([]helpItem{
			{"/", "Search by name or location"},
			{"t", "Cycle type"},
			{"f", "Cycle visited status"},
			{"o", "Cycle sort order"},
			{"x", "Clear filters"},
		}),
		titleSection("Place Details"),
		helpSection([]helpItem{
			{"e", "Edit fields"},
			{"m", "Show static map"},
			{"q", "Show QR code of the Google Maps link"},
		}),
		titleSection("Forms and Dialogs"),
		helpSection([]helpItem{
			{"tab / shift+tab", "Next / previous field"},
			{"ctrl+s", "Save"},
			{"esc", "Cancel"},
		}),
	}

	helpText := content.Render(strings.Join(sections, "\n\n"))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		TitleStyle.Width(width).Render("Help"),
		helpText,
		FooterStyle.Width(width).Render(HelpKeyStyle.Render("esc")+" "+HelpDescStyle.Render("close help")),
	)
}

type helpItem struct {
	key  string
	desc string
}

func titleSection(title string) string {
	return LabelStyle.Render(title)
}

func helpSection(items []helpItem) string {
	var lines []string
	for _, item := range items {
		lines = append(lines, "  "+HelpKeyStyle.Render(item.key)+" - "+HelpDescStyle.Render(item.desc))
	}
	return strings.Join(lines, "\n")
}
