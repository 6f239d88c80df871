package ui

import (
	"strings"
	"time"

	"bitebook/internal/model"
	"bitebook/internal/util"

	"github.com/charmbracelet/lipgloss"
)

type detailPanel int

const (
	panelInfo detailPanel = iota
	panelMap
	panelQR
)

// PlaceDetailModel represents the place detail screen.
type PlaceDetailModel struct {
	place    model.Place
	fallback bool

	panel      detailPanel
	mapArt     string
	mapLoading bool
	qrArt      string
}

// NewPlaceDetailModel creates a detail view. fallback marks a held copy shown
// because the fresh fetch failed.
func NewPlaceDetailModel(p model.Place, fallback bool) *PlaceDetailModel {
	return &PlaceDetailModel{place: p, fallback: fallback}
}

// Place returns the place being shown.
func (m *PlaceDetailModel) Place() model.Place { return m.place }

// SetPlace replaces the shown place, dropping artwork that depends on it.
func (m *PlaceDetailModel) SetPlace(p model.Place) {
	if p.Address() != m.place.Address() || p.Name != m.place.Name {
		m.mapArt = ""
		m.qrArt = ""
		m.panel = panelInfo
	}
	m.place = p
}

// ShowInfo returns to the info panel. It reports whether anything changed.
func (m *PlaceDetailModel) ShowInfo() bool {
	if m.panel == panelInfo {
		return false
	}
	m.panel = panelInfo
	return true
}

// ToggleQR switches the QR code panel, rendering it on first use.
func (m *PlaceDetailModel) ToggleQR() error {
	if m.panel == panelQR {
		m.panel = panelInfo
		return nil
	}
	if m.qrArt == "" {
		art, err := RenderQRCode(m.place.MapsURL())
		if err != nil {
			return err
		}
		m.qrArt = art
	}
	m.panel = panelQR
	return nil
}

// View renders the place detail.
func (m *PlaceDetailModel) View(width, height int, now time.Time) string {
	shortcuts := HelpDescStyle.Render("v visited  e edit  d delete  m map  q qr  h back")
	header := lipgloss.NewStyle().
		Width(width - 4).
		Align(lipgloss.Right).
		Render(shortcuts)

	var body string
	switch m.panel {
	case panelMap:
		body = m.renderMap()
	case panelQR:
		body = lipgloss.JoinVertical(lipgloss.Left,
			LabelStyle.Render("Scan to open in Google Maps"),
			"",
			m.qrArt,
		)
	default:
		body = m.renderInfo(width, now)
	}

	info := PanelStyle.
		Width(width - 4).
		Render(body)

	return lipgloss.JoinVertical(lipgloss.Left, header, info)
}

func (m *PlaceDetailModel) renderMap() string {
	if m.mapLoading {
		return HelpDescStyle.Render("Loading map...")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		LabelStyle.Render(m.place.Address()),
		"",
		m.mapArt,
	)
}

func (m *PlaceDetailModel) renderInfo(width int, now time.Time) string {
	p := m.place
	var sections []string

	title := lipgloss.NewStyle().Bold(true).Foreground(ColorText).Render(p.Name)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", m.renderBadges(now)))

	var fields []string
	fields = append(fields, renderField("Type", string(p.Type)))
	fields = append(fields, renderField("Cuisine", p.Cuisine))
	if p.Influence != "" {
		fields = append(fields, renderField("Influence", p.Influence))
	}
	fields = append(fields, renderField("Location", p.Location))
	if p.FullAddress != "" && p.FullAddress != p.Location {
		fields = append(fields, renderField("Address", p.FullAddress))
	}
	if p.Visited {
		rating := util.FormatRating(p.Rating)
		if p.Rating != nil {
			rating = RatingStyle.Render(util.FormatRatingStars(p.Rating)) + " " + rating
		}
		fields = append(fields, LabelStyle.Render("Rating:")+" "+rating)
	}
	if p.Website != "" {
		fields = append(fields, renderField("Website", p.Website))
	}
	if p.SocialMedia != "" {
		fields = append(fields, renderField("Social", p.SocialMedia))
	}
	fields = append(fields, renderField("Added", util.FormatDate(p.CreatedAt)))
	if p.UpdatedAt != nil {
		fields = append(fields, renderField("Edited", util.FormatDateHuman(p.UpdatedAt, now)))
	}
	sections = append(sections, strings.Join(fields, "\n"))

	if p.Notes != "" {
		sections = append(sections, LabelStyle.Render("Notes:")+"\n"+NormalRowStyle.Width(width-10).Render(p.Notes))
	}

	divider := lipgloss.NewStyle().
		Foreground(ColorMuted).
		Render(strings.Repeat("─", max(0, width-10)))
	sections = append(sections, divider)

	if len(p.OpeningHours) > 0 && !p.IsPermanentlyClosed() {
		sections = append(sections, LabelStyle.Render("Opening Hours:"))
		sections = append(sections, renderHours(p.OpeningHours, now))
	} else if !p.IsPermanentlyClosed() {
		sections = append(sections, HelpDescStyle.Render("No opening hours on record."))
	}

	if m.fallback {
		sections = append(sections, HelpDescStyle.Render("Showing saved copy; the latest details could not be loaded."))
	}

	return strings.Join(sections, "\n\n")
}

func (m *PlaceDetailModel) renderBadges(now time.Time) string {
	p := m.place
	var badges []string
	if p.Visited {
		badges = append(badges, VisitedBadge.Render("Visited"))
	} else {
		badges = append(badges, WantBadge.Render("Want to Visit"))
	}

	switch {
	case p.IsPermanentlyClosed():
		badges = append(badges, ClosedBadge.Render("Permanently Closed"))
	case len(p.OpeningHours) > 0 && model.IsOpenAt(p.OpeningHours, now):
		badges = append(badges, OpenBadge.Render("Open Now"))
	case len(p.OpeningHours) > 0:
		badges = append(badges, ClosedBadge.Render("Closed Now"))
	}
	return strings.Join(badges, " ")
}

func renderHours(hours model.OpeningHours, now time.Time) string {
	var lines []string
	for _, day := range model.Weekdays {
		name := day.String()
		line := lipgloss.NewStyle().Width(11).Render(name) + util.FormatPeriods(hours[name])
		if day == now.Weekday() {
			line = BreadcrumbActiveStyle.Bold(true).Render(line)
		} else {
			line = NormalRowStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func renderField(label, value string) string {
	if value == "" {
		value = "—"
	}
	return LabelStyle.Render(label+":") + " " + NormalRowStyle.Render(value)
}
