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

type dialogCancelledMsg struct{}

// RateDialogModel captures a rating and notes before marking a place visited.
type RateDialogModel struct {
	svc        PlacesService
	keys       FormKeyMap
	place      model.Place
	rating     textinput.Model
	notes      textarea.Model
	onNotes    bool
	error      string
	submitting bool
}

// NewRateDialogModel opens the dialog for p.
func NewRateDialogModel(svc PlacesService, p model.Place) *RateDialogModel {
	rating := textinput.New()
	rating.Placeholder = "0-5 (decimals ok)"
	rating.CharLimit = 4
	rating.Focus()

	notes := textarea.New()
	notes.Placeholder = "What did you think? (optional)"
	notes.ShowLineNumbers = false
	notes.CharLimit = 1000
	notes.SetHeight(3)
	notes.SetWidth(40)

	return &RateDialogModel{
		svc:    svc,
		keys:   DefaultFormKeyMap(),
		place:  p,
		rating: rating,
		notes:  notes,
	}
}

// PlaceID returns the id of the place being rated.
func (m *RateDialogModel) PlaceID() string { return m.place.ID }

// Update handles input.
func (m RateDialogModel) Update(msg tea.Msg) (RateDialogModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.submitting {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Cancel):
		return m, func() tea.Msg { return dialogCancelledMsg{} }
	case key.Matches(keyMsg, m.keys.Save), keyMsg.String() == "enter" && !m.onNotes:
		r, err := util.ParseRatingInput(m.rating.Value())
		if err != nil {
			m.error = err.Error()
			return m, nil
		}
		m.error = ""
		m.submitting = true
		u := model.VisitUpdate(r, strings.TrimSpace(m.notes.Value()))
		return m, updatePlaceCmd(m.svc, m.place.ID, u, model.SourceVisit)
	case key.Matches(keyMsg, m.keys.NextField), key.Matches(keyMsg, m.keys.PrevField):
		m.onNotes = !m.onNotes
		if m.onNotes {
			m.rating.Blur()
			m.notes.Focus()
		} else {
			m.notes.Blur()
			m.rating.Focus()
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.onNotes {
		m.notes, cmd = m.notes.Update(keyMsg)
	} else {
		m.rating, cmd = m.rating.Update(keyMsg)
	}
	return m, cmd
}

// View renders the dialog centered in the content area.
func (m *RateDialogModel) View(width, height int) string {
	body := []string{
		renderFormField("Rating * (0-5)", m.rating.View(), !m.onNotes),
		renderFormField("Notes", m.notes.View(), m.onNotes),
	}
	if m.submitting {
		body = append(body, HelpDescStyle.Render("Saving..."))
	}
	if m.error != "" {
		body = append(body, ErrorStyle.Render(m.error))
	}
	return renderDialog(width, height,
		fmt.Sprintf("Rate %s", m.place.Name),
		strings.Join(body, "\n"),
		"enter/ctrl+s save  ·  tab notes  ·  esc cancel")
}

type confirmKind int

const (
	confirmUnvisit confirmKind = iota
	confirmDelete
)

// ConfirmDialog asks before a destructive change.
type ConfirmDialog struct {
	kind  confirmKind
	place model.Place
}

func (d ConfirmDialog) View(width, height int) string {
	switch d.kind {
	case confirmUnvisit:
		return renderDialog(width, height,
			"Mark as not visited?",
			fmt.Sprintf("%s will move back to your want-to-visit list.\nThis clears its rating and notes.", d.place.Name),
			"y confirm  ·  n/esc cancel")
	default:
		return renderDialog(width, height,
			"Delete place?",
			fmt.Sprintf("%s will be removed permanently.", d.place.Name),
			"y delete  ·  n/esc cancel")
	}
}

func renderDialog(width, height int, title, body, help string) string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		LabelStyle.Render(title),
		"",
		NormalRowStyle.Render(body),
		"",
		HelpDescStyle.Render(help),
	)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, DialogStyle.Render(content))
}
