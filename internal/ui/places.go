package ui

import (
	"fmt"
	"strings"
	"time"

	"bitebook/internal/model"
	"bitebook/internal/util"

	"github.com/charmbracelet/lipgloss"
)

type placeColumn struct {
	key    string
	label  string
	width  int
	hidden bool
}

// PlacesModel is the table of derived places.
type PlacesModel struct {
	rows   []model.Place
	total  int
	cursor int
	offset int

	viewportHeight int

	columns      []placeColumn
	activeColumn int
}

// NewPlacesModel creates an empty places table.
func NewPlacesModel() *PlacesModel {
	return &PlacesModel{
		columns: []placeColumn{
			{key: "name", label: "name", width: 24},
			{key: "type", label: "type", width: 10},
			{key: "location", label: "location", width: 20},
			{key: "cuisine", label: "cuisine", width: 14},
			{key: "status", label: "status", width: 9},
			{key: "rating", label: "rating", width: 7},
			{key: "added", label: "added", width: 11},
		},
	}
}

// SetRows replaces the visible rows, keeping the cursor on the same place
// when it is still present. total is the size of the unfiltered list.
func (m *PlacesModel) SetRows(rows []model.Place, total int) {
	selectedID := ""
	if sel := m.Selected(); sel != nil {
		selectedID = sel.ID
	}

	m.rows = rows
	m.total = total

	if selectedID != "" {
		for i, p := range rows {
			if p.ID == selectedID {
				m.cursor = i
				break
			}
		}
	}
	m.clampCursor()
}

// Selected returns the place under the cursor.
func (m *PlacesModel) Selected() *model.Place {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	p := m.rows[m.cursor]
	return &p
}

// Len returns the number of visible rows.
func (m *PlacesModel) Len() int { return len(m.rows) }

func (m *PlacesModel) ApplyPrefs(prefs TablePrefs) {
	hidden := make(map[string]bool, len(prefs.HiddenColumns))
	for _, c := range prefs.HiddenColumns {
		hidden[c] = true
	}
	for i := range m.columns {
		m.columns[i].hidden = hidden[m.columns[i].key]
	}
	if prefs.ActiveColumn != "" {
		for i, c := range m.columns {
			if c.key == prefs.ActiveColumn {
				m.activeColumn = i
				break
			}
		}
	}
	m.ensureVisibleActiveColumn()
}

func (m *PlacesModel) Prefs() TablePrefs {
	var hidden []string
	for _, c := range m.columns {
		if c.hidden {
			hidden = append(hidden, c.key)
		}
	}
	return TablePrefs{
		HiddenColumns: hidden,
		ActiveColumn:  m.columns[m.activeColumn].key,
	}
}

func (m *PlacesModel) clampCursor() {
	if len(m.rows) == 0 {
		m.cursor = 0
		m.offset = 0
		return
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.offset > m.cursor {
		m.offset = m.cursor
	}
}

func (m *PlacesModel) visibleColumnIndexes() []int {
	var idxs []int
	for i, c := range m.columns {
		if !c.hidden {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

func (m *PlacesModel) ensureVisibleActiveColumn() {
	if !m.columns[m.activeColumn].hidden {
		return
	}
	for i := range m.columns {
		if !m.columns[i].hidden {
			m.activeColumn = i
			return
		}
	}
	m.columns[0].hidden = false
	m.activeColumn = 0
}

func (m *PlacesModel) NextColumn() {
	start := m.activeColumn
	for {
		m.activeColumn = (m.activeColumn + 1) % len(m.columns)
		if !m.columns[m.activeColumn].hidden || m.activeColumn == start {
			return
		}
	}
}

func (m *PlacesModel) PrevColumn() {
	start := m.activeColumn
	for {
		m.activeColumn--
		if m.activeColumn < 0 {
			m.activeColumn = len(m.columns) - 1
		}
		if !m.columns[m.activeColumn].hidden || m.activeColumn == start {
			return
		}
	}
}

// HideActiveColumn hides the active column unless it is the last one shown.
func (m *PlacesModel) HideActiveColumn() bool {
	if len(m.visibleColumnIndexes()) <= 1 {
		return false
	}
	m.columns[m.activeColumn].hidden = true
	m.ensureVisibleActiveColumn()
	return true
}

func (m *PlacesModel) ShowAllColumns() {
	for i := range m.columns {
		m.columns[i].hidden = false
	}
}

func (m *PlacesModel) ActiveColumnLabel() string {
	return strings.ToUpper(m.columns[m.activeColumn].label)
}

func (m *PlacesModel) cell(p model.Place, key string, width int, now time.Time) string {
	switch key {
	case "name":
		name := p.Name
		if p.IsPermanentlyClosed() {
			name += " (closed)"
		}
		return util.TruncateString(name, width)
	case "type":
		return string(p.Type)
	case "location":
		return util.TruncateString(p.Location, width)
	case "cuisine":
		return util.TruncateString(p.Cuisine, width)
	case "status":
		if p.Visited {
			return lipgloss.NewStyle().Foreground(ColorGreen).Render("visited")
		}
		return lipgloss.NewStyle().Foreground(ColorBlue).Render("to visit")
	case "rating":
		if p.Rating == nil {
			return "—"
		}
		return RatingStyle.Render(util.FormatRatingWithStar(p.Rating))
	case "added":
		return util.FormatDateHuman(p.CreatedAt, now)
	default:
		return ""
	}
}

// View renders the table.
func (m *PlacesModel) View(width, height int, now time.Time) string {
	if len(m.rows) == 0 {
		emptyMsg := `    No places yet.
    Press  a  to add your first place!`
		if m.total > 0 {
			emptyMsg = `    Nothing matches the current filters.
    Press  x  to clear them.`
		}
		return EmptyStateStyle.
			Width(width).
			Height(height).
			Render(emptyMsg)
	}

	visible := m.visibleColumnIndexes()
	widths := make([]int, 0, len(visible))
	headers := make([]string, 0, len(visible))
	totalFixed := 0
	for _, idx := range visible {
		col := m.columns[idx]
		label := formatHeaderLabel(col.label)
		if idx == m.activeColumn {
			label = renderActiveHeaderLabel(label)
		}
		cellWidth := max(col.width+2, lipgloss.Width(label)+2)
		totalFixed += cellWidth
		widths = append(widths, cellWidth)
		headers = append(headers, label)
	}
	if len(widths) > 0 {
		sepTotal := (len(widths) - 1) * tableSeparatorWidth()
		extra := width - totalFixed - sepTotal - 2
		if extra > 0 {
			widths[len(widths)-1] += extra
		}
	}

	header := renderTableRow(headers, widths, TableHeaderStyle)
	divider := renderTableDivider(widths)

	visibleHeight := max(1, height-3)
	m.viewportHeight = visibleHeight
	if m.cursor >= m.offset+visibleHeight {
		m.offset = m.cursor - visibleHeight + 1
	}

	var rows []string
	for i := m.offset; i < len(m.rows) && i < m.offset+visibleHeight; i++ {
		p := m.rows[i]
		style := NormalRowStyle
		if i == m.cursor {
			style = SelectedRowStyle
		}
		cells := make([]string, 0, len(visible))
		for _, idx := range visible {
			col := m.columns[idx]
			cells = append(cells, m.cell(p, col.key, col.width, now))
		}
		rows = append(rows, renderTableRow(cells, widths, style))
	}

	filterInfo := ""
	if len(m.rows) != m.total {
		filterInfo = fmt.Sprintf("  ·  filtered: %d/%d", len(m.rows), m.total)
	}
	status := StatusBarStyle.Render(fmt.Sprintf("%d places  ·  row %d/%d%s  ·  col %s",
		len(m.rows), m.cursor+1, len(m.rows), filterInfo, m.ActiveColumnLabel()))

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		divider,
		strings.Join(rows, "\n"),
	)
	spacerHeight := max(0, height-lipgloss.Height(content)-lipgloss.Height(status))
	spacer := lipgloss.NewStyle().Height(spacerHeight).Render("")

	return lipgloss.JoinVertical(lipgloss.Left, content, spacer, status)
}

func (m *PlacesModel) pageHeight() int {
	if m.viewportHeight == 0 {
		return 10
	}
	return m.viewportHeight
}

// MoveDown moves the cursor down.
func (m *PlacesModel) MoveDown() {
	if m.cursor < len(m.rows)-1 {
		m.cursor++
		if m.cursor >= m.offset+m.pageHeight() {
			m.offset++
		}
	}
}

// MoveUp moves the cursor up.
func (m *PlacesModel) MoveUp() {
	if m.cursor > 0 {
		m.cursor--
		if m.cursor < m.offset {
			m.offset--
		}
	}
}

// JumpToTop jumps to the first item.
func (m *PlacesModel) JumpToTop() {
	m.cursor = 0
	m.offset = 0
}

// JumpToBottom jumps to the last item.
func (m *PlacesModel) JumpToBottom() {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = len(m.rows) - 1
	if vh := m.pageHeight(); m.cursor >= vh {
		m.offset = m.cursor - vh + 1
	}
}

// HalfPageDown moves down half a page.
func (m *PlacesModel) HalfPageDown() {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = min(m.cursor+m.pageHeight()/2, len(m.rows)-1)
	if vh := m.pageHeight(); m.cursor >= m.offset+vh {
		m.offset = m.cursor - vh + 1
	}
}

// HalfPageUp moves up half a page.
func (m *PlacesModel) HalfPageUp() {
	m.cursor = max(0, m.cursor-m.pageHeight()/2)
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
}
