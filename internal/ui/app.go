package ui

import (
	"context"
	"fmt"
	"image"
	"log"
	"strings"
	"time"

	"bitebook/internal/cache"
	"bitebook/internal/model"
	"bitebook/internal/search"
	"bitebook/internal/util"
	"bitebook/internal/view"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PlacesService is the remote places API. *places.Client satisfies it.
type PlacesService interface {
	List(ctx context.Context) ([]model.Place, error)
	Lookup(ctx context.Context, id string) *model.Place
	Add(ctx context.Context, p model.NewPlace) error
	Update(ctx context.Context, id string, u model.PlaceUpdate) error
	Delete(ctx context.Context, id string) error
}

// MapsProvider powers autocomplete and static maps. *search.GoogleClient
// satisfies it.
type MapsProvider interface {
	Autocomplete(ctx context.Context, query string) ([]search.Suggestion, error)
	Details(ctx context.Context, placeID string) (*search.Details, error)
	StaticMap(ctx context.Context, query string, width, height int) (image.Image, error)
}

// Options configures a new root model. Service is required.
type Options struct {
	Service PlacesService
	// Provider may be nil, which limits the add form to manual entry.
	Provider MapsProvider
	// Cache defaults to a fresh session cache.
	Cache *cache.Session
	// PrefsPath is where UI preferences live. Empty disables persistence.
	PrefsPath string
	Now       func() time.Time
}

type mapLoadedMsg struct {
	placeID string
	art     string
	err     error
}

// Model is the root Bubble Tea model. It owns the canonical place list and
// the session cache; commands only perform I/O and report back.
type Model struct {
	svc       PlacesService
	provider  MapsProvider
	cache     *cache.Session
	prefsPath string
	now       func() time.Time

	screen model.Screen
	mode   model.Mode
	gState GState

	width  int
	height int

	error       string
	info        string
	showingHelp bool
	loading     bool

	places  []model.Place
	filters view.Filters
	search  textinput.Model

	// Screen models
	table     *PlacesModel
	detail    *PlaceDetailModel
	placeForm *PlaceFormModel
	editForm  *EditFormModel
	rate      *RateDialogModel
	confirm   *ConfirmDialog

	keys  KeyMap
	prefs UIPreferences
}

// New creates a new root model.
func New(opts Options) Model {
	c := opts.Cache
	if c == nil {
		c = cache.NewSession()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	prefs := loadUIPreferences(opts.PrefsPath)
	table := NewPlacesModel()
	table.ApplyPrefs(prefs.Places)

	si := textinput.New()
	si.Placeholder = "name or location"
	si.Prompt = "/ "
	si.CharLimit = 80

	return Model{
		svc:       opts.Service,
		provider:  opts.Provider,
		cache:     c,
		prefsPath: opts.PrefsPath,
		now:       now,
		screen:    model.ScreenPlaces,
		mode:      model.ModeNav,
		gState:    GStateIdle,
		loading:   true,
		filters:   prefs.Filters,
		search:    si,
		table:     table,
		keys:      DefaultKeyMap(),
		prefs:     prefs,
	}
}

// Init loads the list, from the session cache when it is fresh.
func (m Model) Init() tea.Cmd {
	return m.fetchPlaces(false)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.showingHelp {
			switch msg.String() {
			case "esc", "?", "q":
				m.showingHelp = false
			}
			return m, nil
		}

		if m.confirm != nil {
			return m.handleConfirm(msg)
		}

		if m.mode == model.ModeNav {
			if key.Matches(msg, m.keys.Help) {
				m.showingHelp = true
				return m, nil
			}
			return m.handleNavMode(msg)
		}
		return m.handleInsertMode(msg)

	case model.ErrorMsg:
		m.error = msg.Err.Error()
		return m, nil

	case model.PlacesLoadFailedMsg:
		m.error = msg.Err.Error()
		m.loading = false
		return m, nil

	case model.PlacesLoadedMsg:
		m.places = msg.Places
		if !msg.FromCache {
			m.cache.Set(msg.Places)
		}
		m.loading = false
		m.error = ""
		m.rederive()
		return m, nil

	case model.PlaceDetailLoadedMsg:
		m.detail = NewPlaceDetailModel(msg.Place, msg.Fallback)
		m.screen = model.ScreenPlaceDetail
		return m, nil

	case model.PlaceAddedMsg:
		m.placeForm = nil
		m.mode = model.ModeNav
		m.screen = model.ScreenPlaces
		m.error = ""
		m.info = addedMessage(msg.Place)
		m.loading = true
		return m, m.fetchPlaces(true)

	case model.PlaceAddFailedMsg:
		if m.placeForm != nil {
			m.placeForm.SetError(msg.Err)
		}
		m.error = fmt.Sprintf("Failed to add place: %v", msg.Err)
		return m, nil

	case model.PlaceUpdatedMsg:
		return m.applyUpdate(msg), nil

	case model.PlaceUpdateFailedMsg:
		switch msg.Source {
		case model.SourceVisit:
			m.rate = nil
			m.mode = model.ModeNav
		case model.SourceEdit:
			if m.editForm != nil && m.editForm.PlaceID() == msg.ID {
				m.editForm.SetError(msg.Err)
			}
		}
		m.error = fmt.Sprintf("Failed to update place: %v", msg.Err)
		return m, nil

	case model.PlaceDeletedMsg:
		m.removePlace(msg.ID)
		if m.detail != nil && m.detail.Place().ID == msg.ID {
			m.detail = nil
			m.screen = model.ScreenPlaces
		}
		m.error = ""
		m.info = fmt.Sprintf("Deleted %s", msg.Name)
		return m, nil

	case model.FormCancelledMsg:
		m.mode = model.ModeNav
		if m.editForm != nil {
			m.editForm = nil
			m.screen = model.ScreenPlaceDetail
			if m.detail == nil {
				m.screen = model.ScreenPlaces
			}
			return m, nil
		}
		m.placeForm = nil
		m.screen = model.ScreenPlaces
		return m, nil

	case dialogCancelledMsg:
		m.rate = nil
		m.mode = model.ModeNav
		return m, nil

	case mapLoadedMsg:
		if m.detail == nil || m.detail.Place().ID != msg.placeID {
			return m, nil
		}
		m.detail.mapLoading = false
		if msg.err != nil {
			m.detail.ShowInfo()
			m.error = fmt.Sprintf("Failed to load map: %v", msg.err)
			return m, nil
		}
		m.detail.mapArt = msg.art
		return m, nil

	case debounceTick, autocompleteResultMsg, suggestionDetailsMsg, spinner.TickMsg:
		if m.placeForm != nil {
			updated, cmd := m.placeForm.Update(msg)
			m.placeForm = &updated
			return m, cmd
		}
		return m, nil
	}

	return m, nil
}

// applyUpdate merges a confirmed update into the canonical list, the cache
// and an open detail view.
func (m Model) applyUpdate(msg model.PlaceUpdatedMsg) Model {
	name := ""
	places := make([]model.Place, len(m.places))
	copy(places, m.places)
	for i, p := range places {
		if p.ID == msg.ID {
			places[i] = msg.Update.Apply(p)
			name = places[i].Name
			break
		}
	}
	m.places = places
	m.cache.Set(places)

	if m.detail != nil && m.detail.Place().ID == msg.ID {
		updated := msg.Update.Apply(m.detail.Place())
		m.detail.SetPlace(updated)
		name = updated.Name
	}

	m.error = ""
	switch msg.Source {
	case model.SourceVisit:
		m.rate = nil
		m.mode = model.ModeNav
		m.info = fmt.Sprintf("Marked %s as visited", name)
	case model.SourceUnvisit:
		m.info = fmt.Sprintf("Marked %s as not visited", name)
	case model.SourceEdit:
		m.editForm = nil
		m.mode = model.ModeNav
		m.screen = model.ScreenPlaceDetail
		if m.detail == nil {
			m.screen = model.ScreenPlaces
		}
		m.info = fmt.Sprintf("Saved %s", name)
	}
	m.rederive()
	return m
}

func (m *Model) removePlace(id string) {
	places := make([]model.Place, 0, len(m.places))
	for _, p := range m.places {
		if p.ID != id {
			places = append(places, p)
		}
	}
	m.places = places
	m.cache.Set(places)
	m.rederive()
}

func (m *Model) rederive() {
	m.table.SetRows(view.Derive(m.places, m.filters), len(m.places))
}

func (m *Model) persistPrefs() {
	m.prefs.Filters = m.filters
	m.prefs.Places = m.table.Prefs()
	if err := saveUIPreferences(m.prefsPath, m.prefs); err != nil {
		log.Printf("Warning: %v", err)
	}
}

func addedMessage(p model.NewPlace) string {
	switch {
	case p.Visited && p.Rating != nil:
		return fmt.Sprintf("Added %s as visited (rated %s)", p.Name, util.FormatRating(p.Rating))
	case p.Visited:
		return fmt.Sprintf("Added %s as visited", p.Name)
	default:
		return fmt.Sprintf("Added %s", p.Name)
	}
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	if m.showingHelp {
		return RenderFullHelp(m.width, m.height)
	}

	now := m.now()
	var content string
	var breadcrumbParts []string

	showFilters := m.screen == model.ScreenPlaces
	contentHeight := m.height - 4
	if showFilters {
		contentHeight -= 3
	}
	if m.error != "" {
		contentHeight--
	}
	if m.info != "" {
		contentHeight--
	}

	switch m.screen {
	case model.ScreenPlaces:
		breadcrumbParts = []string{"Places"}
		if m.loading && len(m.places) == 0 {
			content = EmptyStateStyle.Render("Loading places...")
		} else {
			content = m.table.View(m.width, contentHeight, now)
		}
	case model.ScreenPlaceDetail:
		breadcrumbParts = []string{"Places", "Detail"}
		if m.detail != nil {
			breadcrumbParts = []string{"Places", m.detail.Place().Name}
			content = m.detail.View(m.width, contentHeight, now)
		}
	case model.ScreenPlaceForm:
		breadcrumbParts = []string{"Places", "Add"}
		if m.placeForm != nil {
			content = m.placeForm.View(m.width, contentHeight)
		}
	case model.ScreenEditForm:
		breadcrumbParts = []string{"Places", "Edit"}
		if m.editForm != nil {
			content = m.editForm.View(m.width, contentHeight)
		}
	}

	switch {
	case m.confirm != nil:
		content = m.confirm.View(m.width, contentHeight)
	case m.rate != nil:
		content = m.rate.View(m.width, contentHeight)
	}

	header := renderHeader(breadcrumbParts, m.loading, m.width, now)
	footer := RenderHelp(m.keys, m.screen, m.mode, m.width)

	content = lipgloss.NewStyle().
		Width(m.width).
		Height(contentHeight).
		Render(content)

	parts := []string{header}
	if showFilters {
		parts = append(parts, m.renderFilterBar())
	}
	if m.error != "" {
		parts = append(parts, ErrorStyle.Width(m.width).Render("Error: "+m.error))
	}
	if m.info != "" {
		parts = append(parts, SuccessStyle.Width(m.width).Render(m.info))
	}
	parts = append(parts, content, footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderFilterBar() string {
	total, visited, toVisit := view.Stats(m.places)
	counts := map[string]int{view.StatusAll: total, view.StatusVisited: visited, view.StatusToVisit: toVisit}

	var tabs []string
	for _, opt := range view.StatusOptions {
		style := lipgloss.NewStyle().Padding(0, 2).Foreground(ColorMuted)
		if m.filters.VisitedStatus == opt.Value {
			style = style.Foreground(ColorText).Bold(true).Underline(true)
		}
		tabs = append(tabs, style.Render(fmt.Sprintf("%s (%d)", opt.Label, counts[opt.Value])))
	}
	tabBar := lipgloss.JoinHorizontal(lipgloss.Left, tabs...)

	chip := func(label string, active bool) string {
		if active {
			return FilterChipActiveStyle.Render(label)
		}
		return FilterChipStyle.Render(label)
	}
	searchView := chip("/ search", false)
	switch {
	case m.mode == model.ModeInsert && m.screen == model.ScreenPlaces:
		searchView = m.search.View()
	case m.filters.Search != "":
		searchView = chip(fmt.Sprintf("/ %q", m.filters.Search), true)
	}
	chips := lipgloss.JoinHorizontal(lipgloss.Left,
		searchView, " ",
		chip("t "+view.Label(view.TypeOptions, m.filters.Type), m.filters.Type != view.TypeAll), " ",
		chip("o "+view.Label(view.SortOptions, m.filters.SortBy), false),
	)

	return lipgloss.NewStyle().
		Width(m.width).
		Padding(0, 2).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		Render(lipgloss.JoinVertical(lipgloss.Left, tabBar, chips))
}

func renderHeader(breadcrumbParts []string, loading bool, width int, now time.Time) string {
	title := HeaderStyle.Render("bitebook")

	var breadcrumb string
	if len(breadcrumbParts) > 0 {
		separator := BreadcrumbStyle.Render(" › ")
		parts := make([]string, len(breadcrumbParts))
		for i, part := range breadcrumbParts {
			if i == len(breadcrumbParts)-1 {
				parts[i] = BreadcrumbActiveStyle.Render(part)
			} else {
				parts[i] = BreadcrumbStyle.Render(part)
			}
		}
		breadcrumb = separator + strings.Join(parts, separator)
	}

	left := "  " + title + breadcrumb

	right := BreadcrumbStyle.Render(now.Format("Mon 02 Jan")) + "  "
	if loading {
		right = HelpDescStyle.Render("Refreshing…") + "  " + right
	}

	padding := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	return TitleStyle.Width(width).Render(left + strings.Repeat(" ", padding) + right)
}

// handleNavMode handles navigation mode input.
func (m Model) handleNavMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Refresh) {
		m.loading = true
		m.info = ""
		return m, m.fetchPlaces(true)
	}

	switch m.screen {
	case model.ScreenPlaces:
		return m.handlePlacesNav(msg)
	case model.ScreenPlaceDetail:
		return m.handleDetailNav(msg)
	}
	return m, nil
}

func (m Model) handlePlacesNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "g" {
		if m.gState == GStateFirstG {
			m.table.JumpToTop()
			m.gState = GStateIdle
			return m, nil
		}
		m.gState = GStateFirstG
		return m, nil
	}
	m.gState = GStateIdle

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Down):
		m.table.MoveDown()
	case key.Matches(msg, m.keys.Up):
		m.table.MoveUp()
	case key.Matches(msg, m.keys.Bottom):
		m.table.JumpToBottom()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.table.HalfPageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		m.table.HalfPageUp()
	case key.Matches(msg, m.keys.Select):
		if p := m.table.Selected(); p != nil {
			return m, selectPlaceCmd(m.svc, *p)
		}
	case key.Matches(msg, m.keys.Add):
		m.placeForm = NewPlaceFormModel(m.svc, m.provider)
		m.screen = model.ScreenPlaceForm
		m.mode = model.ModeInsert
		m.info = ""
	case key.Matches(msg, m.keys.ToggleVisited):
		if p := m.table.Selected(); p != nil {
			return m.toggleVisited(*p)
		}
	case key.Matches(msg, m.keys.Delete):
		if p := m.table.Selected(); p != nil {
			m.confirm = &ConfirmDialog{kind: confirmDelete, place: *p}
		}
	case key.Matches(msg, m.keys.Search):
		m.search.SetValue(m.filters.Search)
		m.search.CursorEnd()
		m.search.Focus()
		m.mode = model.ModeInsert
	case key.Matches(msg, m.keys.CycleType):
		m.filters.Type = view.Next(view.TypeOptions, m.filters.Type)
		m.filtersChanged()
	case key.Matches(msg, m.keys.CycleStatus):
		m.filters.VisitedStatus = view.Next(view.StatusOptions, m.filters.VisitedStatus)
		m.filtersChanged()
	case key.Matches(msg, m.keys.CycleSort):
		m.filters.SortBy = view.Next(view.SortOptions, m.filters.SortBy)
		m.info = "Sorted by " + view.Label(view.SortOptions, m.filters.SortBy)
		m.filtersChanged()
	case key.Matches(msg, m.keys.ClearFilters):
		m.filters = view.DefaultFilters()
		m.info = "Filters cleared"
		m.filtersChanged()
	case key.Matches(msg, m.keys.NextColumn):
		m.table.NextColumn()
		m.persistPrefs()
	case key.Matches(msg, m.keys.PrevColumn):
		m.table.PrevColumn()
		m.persistPrefs()
	case key.Matches(msg, m.keys.HideColumn):
		if m.table.HideActiveColumn() {
			m.persistPrefs()
		} else {
			m.info = "Cannot hide the last visible column"
		}
	case key.Matches(msg, m.keys.ShowColumns):
		m.table.ShowAllColumns()
		m.persistPrefs()
	}
	return m, nil
}

func (m *Model) filtersChanged() {
	m.rederive()
	m.persistPrefs()
}

func (m Model) handleDetailNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.detail == nil {
		m.screen = model.ScreenPlaces
		return m, nil
	}
	p := m.detail.Place()

	switch {
	case key.Matches(msg, m.keys.Back):
		if m.detail.ShowInfo() {
			return m, nil
		}
		m.detail = nil
		m.screen = model.ScreenPlaces
	case key.Matches(msg, m.keys.ToggleVisited):
		return m.toggleVisited(p)
	case key.Matches(msg, m.keys.Edit):
		m.editForm = NewEditFormModel(m.svc, p)
		m.screen = model.ScreenEditForm
		m.mode = model.ModeInsert
		m.info = ""
	case key.Matches(msg, m.keys.Delete):
		m.confirm = &ConfirmDialog{kind: confirmDelete, place: p}
	case key.Matches(msg, m.keys.Map):
		if m.detail.panel == panelMap {
			m.detail.ShowInfo()
			return m, nil
		}
		if m.provider == nil {
			m.error = "Maps need a Google Maps API key (set GOOGLE_MAPS_API_KEY)"
			return m, nil
		}
		m.detail.panel = panelMap
		if m.detail.mapArt != "" {
			return m, nil
		}
		m.detail.mapLoading = true
		return m, loadMapCmd(m.provider, p, max(20, m.width-12), max(8, m.height-14))
	case key.Matches(msg, m.keys.QRCode):
		if err := m.detail.ToggleQR(); err != nil {
			m.error = err.Error()
		}
	}
	return m, nil
}

// toggleVisited opens the rate dialog for unvisited places and the
// confirmation for visited ones. Neither calls the service yet.
func (m Model) toggleVisited(p model.Place) (tea.Model, tea.Cmd) {
	if p.Visited {
		m.confirm = &ConfirmDialog{kind: confirmUnvisit, place: p}
		return m, nil
	}
	m.rate = NewRateDialogModel(m.svc, p)
	m.mode = model.ModeInsert
	m.info = ""
	return m, nil
}

func (m Model) handleConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := *m.confirm
	switch msg.String() {
	case "y", "Y", "enter":
		m.confirm = nil
		switch d.kind {
		case confirmUnvisit:
			return m, updatePlaceCmd(m.svc, d.place.ID, model.UnvisitUpdate(), model.SourceUnvisit)
		case confirmDelete:
			return m, deletePlaceCmd(m.svc, d.place)
		}
	case "n", "N", "esc", "q":
		m.confirm = nil
	}
	return m, nil
}

// handleInsertMode routes keys to the open form, dialog or search box.
func (m Model) handleInsertMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case m.rate != nil:
		updated, cmd := m.rate.Update(msg)
		m.rate = &updated
		return m, cmd
	case m.screen == model.ScreenPlaceForm && m.placeForm != nil:
		updated, cmd := m.placeForm.Update(msg)
		m.placeForm = &updated
		return m, cmd
	case m.screen == model.ScreenEditForm && m.editForm != nil:
		updated, cmd := m.editForm.Update(msg)
		m.editForm = &updated
		return m, cmd
	case m.screen == model.ScreenPlaces:
		return m.handleSearchInput(msg)
	}
	m.mode = model.ModeNav
	return m, nil
}

func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.search.Blur()
		m.mode = model.ModeNav
		m.persistPrefs()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != m.filters.Search {
		m.filters.Search = v
		m.rederive()
	}
	return m, cmd
}

// Commands

// fetchPlaces serves a fresh cached list without touching the network unless
// force is set.
func (m Model) fetchPlaces(force bool) tea.Cmd {
	if cached, ok := m.cache.Get(force); ok {
		return func() tea.Msg {
			return model.PlacesLoadedMsg{Places: cached, FromCache: true}
		}
	}
	svc := m.svc
	return func() tea.Msg {
		places, err := svc.List(context.Background())
		if err != nil {
			return model.PlacesLoadFailedMsg{Err: fmt.Errorf("failed to load places: %w", err)}
		}
		return model.PlacesLoadedMsg{Places: places}
	}
}

func addPlaceCmd(svc PlacesService, p model.NewPlace) tea.Cmd {
	return func() tea.Msg {
		if err := svc.Add(context.Background(), p); err != nil {
			return model.PlaceAddFailedMsg{Err: err}
		}
		return model.PlaceAddedMsg{Place: p}
	}
}

func updatePlaceCmd(svc PlacesService, id string, u model.PlaceUpdate, source model.UpdateSource) tea.Cmd {
	return func() tea.Msg {
		if err := svc.Update(context.Background(), id, u); err != nil {
			return model.PlaceUpdateFailedMsg{ID: id, Err: err, Source: source}
		}
		return model.PlaceUpdatedMsg{ID: id, Update: u, Source: source}
	}
}

func deletePlaceCmd(svc PlacesService, p model.Place) tea.Cmd {
	return func() tea.Msg {
		if err := svc.Delete(context.Background(), p.ID); err != nil {
			return model.ErrorMsg{Err: fmt.Errorf("failed to delete %s: %w", p.Name, err)}
		}
		return model.PlaceDeletedMsg{ID: p.ID, Name: p.Name}
	}
}

// selectPlaceCmd fetches the freshest copy of held, falling back to held when
// the lookup fails or finds nothing.
func selectPlaceCmd(svc PlacesService, held model.Place) tea.Cmd {
	return func() tea.Msg {
		if fresh := svc.Lookup(context.Background(), held.ID); fresh != nil {
			return model.PlaceDetailLoadedMsg{Place: *fresh}
		}
		return model.PlaceDetailLoadedMsg{Place: held, Fallback: true}
	}
}

func loadMapCmd(provider MapsProvider, p model.Place, width, height int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		img, err := provider.StaticMap(ctx, p.Address(), 640, 400)
		if err != nil {
			return mapLoadedMsg{placeID: p.ID, err: err}
		}
		return mapLoadedMsg{placeID: p.ID, art: RenderMapImage(img, width, height)}
	}
}
