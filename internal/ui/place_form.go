package ui

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"bitebook/internal/model"
	"bitebook/internal/search"
	"bitebook/internal/util"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const debounceDelay = 300 * time.Millisecond

// Message types for autocomplete
type autocompleteResultMsg struct {
	seq     int
	results []search.Suggestion
	err     error
}

type debounceTick struct {
	seq int
}

type suggestionDetailsMsg struct {
	placeID string
	details *search.Details
	err     error
}

const (
	fieldName = iota
	fieldType
	fieldLocation
	fieldCuisine
	fieldInfluence
	fieldVisited
	fieldRating
	fieldNotes
	placeFormFields
)

// PlaceFormModel is the add-place form.
type PlaceFormModel struct {
	svc          PlacesService
	provider     MapsProvider
	keys         FormKeyMap
	focusedField int
	inputs       []textinput.Model
	notes        textarea.Model
	error        string
	saving       bool

	// Filled from a picked suggestion
	selectedName  string
	googlePlaceID string
	fullAddress   string
	website       string

	// Autocomplete state
	searchSeq     int
	searchResults []search.Suggestion
	searchCursor  int
	showDropdown  bool
	searching     bool
	searchSpinner spinner.Model
}

// NewPlaceFormModel creates an empty add form. A nil provider means manual
// entry only.
func NewPlaceFormModel(svc PlacesService, provider MapsProvider) *PlaceFormModel {
	inputs := make([]textinput.Model, placeFormFields)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].CharLimit = 100
	}

	inputs[fieldName].Placeholder = "Search for a place..."
	if provider == nil {
		inputs[fieldName].Placeholder = "Place name"
	}
	inputs[fieldName].Focus()

	inputs[fieldType].Placeholder = "Restaurant, Bar or Cafe"
	inputs[fieldType].SetValue(string(model.TypeRestaurant))
	inputs[fieldType].CharLimit = 16

	inputs[fieldLocation].Placeholder = "City, Country"
	inputs[fieldLocation].CharLimit = 200

	inputs[fieldCuisine].Placeholder = "e.g. Thai"
	inputs[fieldInfluence].Placeholder = "e.g. Street food"

	inputs[fieldVisited].Placeholder = "y/n"
	inputs[fieldVisited].SetValue("n")
	inputs[fieldVisited].CharLimit = 3

	inputs[fieldRating].Placeholder = "0-5 (decimals ok)"
	inputs[fieldRating].CharLimit = 4

	notes := textarea.New()
	notes.Placeholder = "Your notes..."
	notes.CharLimit = 1000
	notes.ShowLineNumbers = false
	notes.SetHeight(3)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &PlaceFormModel{
		svc:           svc,
		provider:      provider,
		keys:          DefaultFormKeyMap(),
		inputs:        inputs,
		notes:         notes,
		searchSpinner: sp,
	}
}

// SetError returns the form to editing after a failed save. Inputs are kept.
func (m *PlaceFormModel) SetError(err error) {
	m.saving = false
	m.error = err.Error()
}

func (m PlaceFormModel) visited() bool {
	switch strings.ToLower(strings.TrimSpace(m.inputs[fieldVisited].Value())) {
	case "y", "yes", "1", "true":
		return true
	}
	return false
}

// Update handles all messages.
func (m PlaceFormModel) Update(msg tea.Msg) (PlaceFormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case debounceTick:
		if msg.seq == m.searchSeq && m.provider != nil {
			return m, m.doSearch(m.inputs[fieldName].Value(), msg.seq)
		}
		return m, nil
	case autocompleteResultMsg:
		if msg.seq == m.searchSeq {
			m.searching = false
			if msg.err != nil {
				m.error = fmt.Sprintf("Search error: %v", msg.err)
				m.showDropdown = false
			} else {
				m.error = ""
				m.searchResults = msg.results
				m.searchCursor = 0
				m.showDropdown = len(msg.results) > 0
			}
		}
		return m, nil
	case suggestionDetailsMsg:
		if msg.placeID != m.googlePlaceID {
			return m, nil
		}
		if msg.err != nil {
			log.Printf("Warning: failed to load details for %s: %v", msg.placeID, msg.err)
			return m, nil
		}
		m.applyDetails(msg.details)
		return m, nil
	case spinner.TickMsg:
		if !m.searching {
			return m, nil
		}
		var cmd tea.Cmd
		m.searchSpinner, cmd = m.searchSpinner.Update(msg)
		return m, cmd
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.saving {
		return m, nil
	}

	if m.showDropdown && m.focusedField == fieldName {
		switch keyMsg.String() {
		case "esc":
			m.showDropdown = false
			return m, nil
		case "down", "ctrl+n":
			if m.searchCursor < len(m.searchResults)-1 {
				m.searchCursor++
			}
			return m, nil
		case "up", "ctrl+p":
			if m.searchCursor > 0 {
				m.searchCursor--
			}
			return m, nil
		case "enter", "tab":
			if m.searchCursor < len(m.searchResults) {
				cmd := m.selectSuggestion(m.searchResults[m.searchCursor])
				m.showDropdown = false
				m.nextField()
				return m, cmd
			}
			return m, nil
		}
	}

	switch {
	case key.Matches(keyMsg, m.keys.Cancel):
		return m, func() tea.Msg { return model.FormCancelledMsg{} }
	case key.Matches(keyMsg, m.keys.Save):
		np, err := m.build()
		if err != nil {
			m.error = err.Error()
			return m, nil
		}
		m.error = ""
		m.saving = true
		return m, addPlaceCmd(m.svc, np)
	case key.Matches(keyMsg, m.keys.NextField):
		m.nextField()
		return m, nil
	case key.Matches(keyMsg, m.keys.PrevField):
		m.showDropdown = false
		m.prevField()
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	if m.focusedField == fieldNotes {
		m.notes, cmd = m.notes.Update(keyMsg)
		return m, cmd
	}
	m.inputs[m.focusedField], cmd = m.inputs[m.focusedField].Update(keyMsg)
	cmds = append(cmds, cmd)

	if m.focusedField == fieldName {
		if strings.TrimSpace(m.inputs[fieldName].Value()) != m.selectedName {
			m.googlePlaceID = ""
			m.fullAddress = ""
			m.website = ""
		}
		if m.provider != nil {
			cmds = append(cmds, m.scheduleSearch())
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *PlaceFormModel) scheduleSearch() tea.Cmd {
	query := m.inputs[fieldName].Value()
	if len([]rune(strings.TrimSpace(query))) < search.MinQueryLength {
		m.showDropdown = false
		m.searchResults = nil
		m.searching = false
		return nil
	}

	m.searchSeq++
	seq := m.searchSeq
	m.searching = true
	m.showDropdown = false
	return tea.Batch(
		m.searchSpinner.Tick,
		tea.Tick(debounceDelay, func(time.Time) tea.Msg {
			return debounceTick{seq: seq}
		}),
	)
}

func (m *PlaceFormModel) doSearch(query string, seq int) tea.Cmd {
	provider := m.provider
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		results, err := provider.Autocomplete(ctx, query)
		return autocompleteResultMsg{seq: seq, results: results, err: err}
	}
}

func (m *PlaceFormModel) selectSuggestion(s search.Suggestion) tea.Cmd {
	m.inputs[fieldName].SetValue(s.Name)
	m.selectedName = s.Name
	m.googlePlaceID = s.PlaceID
	m.fullAddress = s.Address
	if loc := cityFromAddress(s.Address); loc != "" {
		m.inputs[fieldLocation].SetValue(loc)
	}

	provider := m.provider
	placeID := s.PlaceID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		d, err := provider.Details(ctx, placeID)
		return suggestionDetailsMsg{placeID: placeID, details: d, err: err}
	}
}

func (m *PlaceFormModel) applyDetails(d *search.Details) {
	if d == nil {
		return
	}
	if d.FormattedAddress != "" {
		m.fullAddress = d.FormattedAddress
		if strings.TrimSpace(m.inputs[fieldLocation].Value()) == "" {
			m.inputs[fieldLocation].SetValue(cityFromAddress(d.FormattedAddress))
		}
	}
	if d.Website != "" {
		m.website = d.Website
	}
	m.inputs[fieldType].SetValue(string(d.SuggestedType()))
}

var nonCityChars = regexp.MustCompile(`[^\p{L}\s]`)

// cityFromAddress reduces "12 Main St, Toronto, ON M5V 2T6, Canada" style
// addresses to "City, Country" using the last two components.
func cityFromAddress(address string) string {
	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return strings.TrimSpace(address)
	}
	city := strings.TrimSpace(nonCityChars.ReplaceAllString(parts[len(parts)-2], ""))
	country := strings.TrimSpace(parts[len(parts)-1])
	if city == "" {
		return country
	}
	return city + ", " + country
}

// build validates the inputs into a NewPlace.
func (m PlaceFormModel) build() (model.NewPlace, error) {
	name := strings.TrimSpace(m.inputs[fieldName].Value())
	if name == "" {
		return model.NewPlace{}, fmt.Errorf("name is required")
	}
	placeType, err := model.ParsePlaceType(m.inputs[fieldType].Value())
	if err != nil {
		return model.NewPlace{}, err
	}
	location := strings.TrimSpace(m.inputs[fieldLocation].Value())
	if location == "" {
		return model.NewPlace{}, fmt.Errorf("location is required")
	}

	np := model.NewPlace{
		Name:          name,
		Type:          placeType,
		Location:      location,
		FullAddress:   m.fullAddress,
		Cuisine:       strings.TrimSpace(m.inputs[fieldCuisine].Value()),
		Influence:     strings.TrimSpace(m.inputs[fieldInfluence].Value()),
		Visited:       m.visited(),
		GooglePlaceID: m.googlePlaceID,
		Website:       m.website,
	}

	if np.Visited {
		if s := strings.TrimSpace(m.inputs[fieldRating].Value()); s != "" {
			r, err := util.ParseRatingInput(s)
			if err != nil {
				return model.NewPlace{}, err
			}
			np.Rating = &r
		}
		np.Notes = strings.TrimSpace(m.notes.Value())
	}
	return np, nil
}

func (m *PlaceFormModel) fieldHidden(i int) bool {
	return (i == fieldRating || i == fieldNotes) && !m.visited()
}

func (m *PlaceFormModel) focus(i int) {
	if m.focusedField == fieldNotes {
		m.notes.Blur()
	} else {
		m.inputs[m.focusedField].Blur()
	}
	m.focusedField = i
	if i == fieldNotes {
		m.notes.Focus()
	} else {
		m.inputs[i].Focus()
	}
}

func (m *PlaceFormModel) nextField() {
	next := m.focusedField
	for {
		next = (next + 1) % placeFormFields
		if !m.fieldHidden(next) {
			break
		}
	}
	m.focus(next)
	m.showDropdown = false
}

func (m *PlaceFormModel) prevField() {
	prev := m.focusedField
	for {
		prev--
		if prev < 0 {
			prev = placeFormFields - 1
		}
		if !m.fieldHidden(prev) {
			break
		}
	}
	m.focus(prev)
}

// View renders the form.
func (m *PlaceFormModel) View(width, height int) string {
	var fields []string

	nameLabel := "Name *"
	if m.provider != nil {
		nameLabel = "Name * (type to search)"
	}
	nameField := renderFormField(nameLabel, m.inputs[fieldName].View(), m.focusedField == fieldName)
	switch {
	case m.showDropdown && len(m.searchResults) > 0:
		nameField = lipgloss.JoinVertical(lipgloss.Left, nameField, m.renderDropdown(width-8))
	case m.searching && m.focusedField == fieldName:
		nameField = lipgloss.JoinVertical(lipgloss.Left, nameField, HelpDescStyle.Render(m.searchSpinner.View()+" Searching..."))
	case m.provider == nil && m.focusedField == fieldName:
		nameField = lipgloss.JoinVertical(lipgloss.Left, nameField, HelpDescStyle.Render("Autocomplete is off (no Google Maps API key); enter details manually."))
	}
	fields = append(fields, nameField)

	fields = append(fields, renderFormField("Type *", m.inputs[fieldType].View(), m.focusedField == fieldType))
	fields = append(fields, renderFormField("Location *", m.inputs[fieldLocation].View(), m.focusedField == fieldLocation))
	fields = append(fields, renderFormField("Cuisine", m.inputs[fieldCuisine].View(), m.focusedField == fieldCuisine))
	fields = append(fields, renderFormField("Influence", m.inputs[fieldInfluence].View(), m.focusedField == fieldInfluence))
	fields = append(fields, renderFormField("Already visited? (y/n)", m.inputs[fieldVisited].View(), m.focusedField == fieldVisited))
	if m.visited() {
		fields = append(fields, renderFormField("Rating (0-5)", m.inputs[fieldRating].View(), m.focusedField == fieldRating))
		m.notes.SetWidth(max(20, width-14))
		fields = append(fields, renderFormField("Notes", m.notes.View(), m.focusedField == fieldNotes))
	}

	if m.googlePlaceID != "" && m.fullAddress != "" {
		fields = append(fields, HelpDescStyle.Render("Google Maps: "+m.fullAddress))
	}
	if m.saving {
		fields = append(fields, HelpDescStyle.Render("Saving..."))
	}
	if m.error != "" {
		fields = append(fields, ErrorStyle.Render(m.error))
	}

	return PanelStyle.
		Width(width - 4).
		Height(height - 4).
		Render(strings.Join(fields, "\n"))
}

func (m *PlaceFormModel) renderDropdown(width int) string {
	var items []string
	for i, result := range m.searchResults {
		style := NormalRowStyle
		if i == m.searchCursor {
			style = SelectedRowStyle
		}

		left := util.TruncateString(result.Name, 40)
		right := HelpDescStyle.Render(util.TruncateString(result.Address, max(10, width-lipgloss.Width(left)-10)))

		availableWidth := width - 4
		padding := max(0, availableWidth-lipgloss.Width(left)-lipgloss.Width(right))
		items = append(items, style.Width(availableWidth).Render(left+strings.Repeat(" ", padding)+right))
	}
	items = append(items, HelpDescStyle.Render("↑/↓ move  enter/tab select  esc close"))

	return BorderStyle.
		Width(width).
		Render(strings.Join(items, "\n"))
}

func renderFormField(label, input string, focused bool) string {
	style := BorderStyle
	if focused {
		style = ActiveBorderStyle
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, LabelStyle.Render(label), input))
}
