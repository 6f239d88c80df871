package ui

import (
	"fmt"
	"strings"

	"bitebook/internal/model"
	"bitebook/internal/util"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	editName = iota
	editType
	editLocation
	editAddress
	editCuisine
	editRating
	editNotes
	editFields
)

// EditFormModel edits an existing place in place of its detail view.
type EditFormModel struct {
	svc          PlacesService
	keys         FormKeyMap
	original     model.Place
	focusedField int
	inputs       []textinput.Model
	notes        textarea.Model
	error        string
	saving       bool

	// confirmLeave is set while the unsaved-changes prompt is shown.
	confirmLeave bool
}

// NewEditFormModel creates an edit form prefilled from p.
func NewEditFormModel(svc PlacesService, p model.Place) *EditFormModel {
	inputs := make([]textinput.Model, editNotes)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].CharLimit = 200
	}
	inputs[editName].SetValue(p.Name)
	inputs[editType].SetValue(string(p.Type))
	inputs[editType].Placeholder = "Restaurant, Bar or Cafe"
	inputs[editLocation].SetValue(p.Location)
	inputs[editAddress].SetValue(p.FullAddress)
	inputs[editCuisine].SetValue(p.Cuisine)
	inputs[editRating].Placeholder = "0-5"
	inputs[editRating].CharLimit = 4
	if p.Rating != nil {
		inputs[editRating].SetValue(util.FormatRatingNumber(*p.Rating))
	}
	inputs[editName].Focus()

	notes := textarea.New()
	notes.ShowLineNumbers = false
	notes.CharLimit = 1000
	notes.SetHeight(4)
	notes.SetValue(p.Notes)

	return &EditFormModel{
		svc:      svc,
		keys:     DefaultFormKeyMap(),
		original: p,
		inputs:   inputs,
		notes:    notes,
	}
}

// PlaceID returns the id of the place being edited.
func (m *EditFormModel) PlaceID() string { return m.original.ID }

// SetError keeps the form open after a failed save.
func (m *EditFormModel) SetError(err error) {
	m.saving = false
	m.error = err.Error()
}

// Dirty reports whether any field differs from the loaded place.
func (m EditFormModel) Dirty() bool {
	u, err := m.diff()
	return err != nil || !u.IsEmpty()
}

// diff returns the partial update for the fields the user changed. Cleared
// optional fields are sent as null.
func (m EditFormModel) diff() (model.PlaceUpdate, error) {
	var u model.PlaceUpdate
	p := m.original

	name := strings.TrimSpace(m.inputs[editName].Value())
	if name == "" {
		return u, fmt.Errorf("name is required")
	}
	if name != p.Name {
		u.Name = model.Value(name)
	}

	placeType, err := model.ParsePlaceType(m.inputs[editType].Value())
	if err != nil {
		return u, err
	}
	if placeType != p.Type {
		u.Type = model.Value(placeType)
	}

	u.Location = optionalString(m.inputs[editLocation].Value(), p.Location)
	u.FullAddress = optionalString(m.inputs[editAddress].Value(), p.FullAddress)
	u.Cuisine = optionalString(m.inputs[editCuisine].Value(), p.Cuisine)

	if p.Visited {
		u.Notes = optionalString(m.notes.Value(), p.Notes)
		ratingStr := strings.TrimSpace(m.inputs[editRating].Value())
		switch {
		case ratingStr == "" && p.Rating != nil:
			u.Rating = model.Null[float64]()
		case ratingStr != "":
			r, err := util.ParseRatingInput(ratingStr)
			if err != nil {
				return u, err
			}
			if p.Rating == nil || *p.Rating != r {
				u.Rating = model.Value(r)
			}
		}
	}
	return u, nil
}

func optionalString(input, current string) model.Nullable[string] {
	v := strings.TrimSpace(input)
	switch {
	case v == current:
		return model.Nullable[string]{}
	case v == "":
		return model.Null[string]()
	default:
		return model.Value(v)
	}
}

// Update handles input.
func (m EditFormModel) Update(msg tea.Msg) (EditFormModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.saving {
		return m, nil
	}

	if m.confirmLeave {
		switch keyMsg.String() {
		case "s", "y":
			m.confirmLeave = false
			return m.save()
		case "d":
			m.confirmLeave = false
			return m, func() tea.Msg { return model.FormCancelledMsg{} }
		case "k", "n", "esc":
			m.confirmLeave = false
		}
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Cancel):
		if m.Dirty() {
			m.confirmLeave = true
			return m, nil
		}
		return m, func() tea.Msg { return model.FormCancelledMsg{} }
	case key.Matches(keyMsg, m.keys.Save):
		return m.save()
	case key.Matches(keyMsg, m.keys.NextField):
		m.moveFocus(1)
		return m, nil
	case key.Matches(keyMsg, m.keys.PrevField):
		m.moveFocus(-1)
		return m, nil
	}

	var cmd tea.Cmd
	if m.focusedField == editNotes {
		m.notes, cmd = m.notes.Update(keyMsg)
	} else {
		m.inputs[m.focusedField], cmd = m.inputs[m.focusedField].Update(keyMsg)
	}
	return m, cmd
}

func (m EditFormModel) save() (EditFormModel, tea.Cmd) {
	u, err := m.diff()
	if err != nil {
		m.error = err.Error()
		return m, nil
	}
	if u.IsEmpty() {
		return m, func() tea.Msg { return model.FormCancelledMsg{} }
	}
	m.error = ""
	m.saving = true
	return m, updatePlaceCmd(m.svc, m.original.ID, u, model.SourceEdit)
}

// fieldHidden reports whether field i is skipped. Rating and notes only
// apply to visited places.
func (m *EditFormModel) fieldHidden(i int) bool {
	return (i == editRating || i == editNotes) && !m.original.Visited
}

func (m *EditFormModel) moveFocus(delta int) {
	if m.focusedField == editNotes {
		m.notes.Blur()
	} else {
		m.inputs[m.focusedField].Blur()
	}
	next := m.focusedField
	for {
		next = (next + delta + editFields) % editFields
		if !m.fieldHidden(next) {
			break
		}
	}
	m.focusedField = next
	if next == editNotes {
		m.notes.Focus()
	} else {
		m.inputs[next].Focus()
	}
}

// View renders the form.
func (m *EditFormModel) View(width, height int) string {
	if m.confirmLeave {
		return renderDialog(width, height, "Unsaved changes",
			fmt.Sprintf("You have unsaved edits to %s.", m.original.Name),
			"s save  ·  d discard  ·  esc keep editing")
	}

	var fields []string
	fields = append(fields, renderFormField("Name *", m.inputs[editName].View(), m.focusedField == editName))
	fields = append(fields, renderFormField("Type *", m.inputs[editType].View(), m.focusedField == editType))
	fields = append(fields, renderFormField("Location", m.inputs[editLocation].View(), m.focusedField == editLocation))
	fields = append(fields, renderFormField("Full Address", m.inputs[editAddress].View(), m.focusedField == editAddress))
	fields = append(fields, renderFormField("Cuisine", m.inputs[editCuisine].View(), m.focusedField == editCuisine))
	if m.original.Visited {
		fields = append(fields, renderFormField("Rating (0-5)", m.inputs[editRating].View(), m.focusedField == editRating))
		m.notes.SetWidth(max(20, width-14))
		fields = append(fields, renderFormField("Notes", m.notes.View(), m.focusedField == editNotes))
	}

	if m.saving {
		fields = append(fields, HelpDescStyle.Render("Saving..."))
	}
	if m.error != "" {
		fields = append(fields, ErrorStyle.Render(m.error))
	}

	title := LabelStyle.Render("Editing " + m.original.Name)
	return PanelStyle.
		Width(width - 4).
		Height(height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, "", strings.Join(fields, "\n")))
}
