package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bitebook/internal/ui"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// OnboardingSettings records the first-run choices.
type OnboardingSettings struct {
	Completed   bool `json:"completed"`
	MapsEnabled bool `json:"maps_enabled"`
}

func onboardingPath(configDir string) string {
	return filepath.Join(configDir, "onboarding.json")
}

func loadOnboardingSettings(configDir string) (OnboardingSettings, error) {
	data, err := os.ReadFile(onboardingPath(configDir))
	if err != nil {
		if os.IsNotExist(err) {
			return OnboardingSettings{}, nil
		}
		return OnboardingSettings{}, err
	}

	var settings OnboardingSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return OnboardingSettings{}, err
	}
	return settings, nil
}

func saveOnboardingSettings(configDir string, settings OnboardingSettings) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(onboardingPath(configDir), data, 0644)
}

func mapsKeyPath(configDir string) string {
	return filepath.Join(configDir, "maps_api_key")
}

func saveMapsAPIKey(configDir, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}
	// Owner read/write only.
	return os.WriteFile(mapsKeyPath(configDir), []byte(key+"\n"), 0600)
}

func loadMapsAPIKey(configDir string) (string, error) {
	data, err := os.ReadFile(mapsKeyPath(configDir))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func isInteractive() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// applyOnboarding runs first-run setup when needed and fills in the maps key
// saved by an earlier run.
func applyOnboarding(cfg *Config) error {
	settings, err := loadOnboardingSettings(cfg.ConfigDir)
	if err != nil {
		return fmt.Errorf("failed to load onboarding settings: %w", err)
	}

	if !settings.Completed && isInteractive() {
		settings, err = runOnboarding(cfg.ConfigDir, cfg.MapsAPIKey)
		if err != nil {
			return fmt.Errorf("failed to run onboarding: %w", err)
		}
	}

	if cfg.MapsAPIKey == "" && settings.MapsEnabled {
		key, err := loadMapsAPIKey(cfg.ConfigDir)
		if err != nil {
			return fmt.Errorf("failed to load saved maps key: %w", err)
		}
		cfg.MapsAPIKey = key
	}
	cfg.MapsEnabled = cfg.MapsAPIKey != ""
	return nil
}

type onboardingStep int

const (
	stepEnable onboardingStep = iota
	stepKey
	stepDone
)

type onboardingModel struct {
	step        onboardingStep
	enable      bool
	existingKey string
	keyInput    textinput.Model
	settings    OnboardingSettings
	capturedKey string
	status      string
	width       int
	height      int
}

var onboardingCard = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(ui.ColorMuted).
	Padding(1, 2)

func newOnboardingModel(existingKey string) onboardingModel {
	in := textinput.New()
	in.Placeholder = "Paste Google Maps API key here"
	in.CharLimit = 200
	in.Prompt = "key> "
	in.Focus()

	return onboardingModel{
		step:        stepEnable,
		enable:      true,
		existingKey: strings.TrimSpace(existingKey),
		keyInput:    in,
		settings:    OnboardingSettings{Completed: true, MapsEnabled: true},
	}
}

func (m onboardingModel) Init() tea.Cmd { return nil }

func (m onboardingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.finish(false, "Setup canceled. Autocomplete disabled.")
		}
		switch m.step {
		case stepEnable:
			switch msg.String() {
			case "y", "Y":
				m.enable = true
				return m.nextStep()
			case "n", "N":
				m.enable = false
				return m.nextStep()
			case "up", "k", "left", "h":
				m.enable = true
			case "down", "j", "right", "l":
				m.enable = false
			case "enter":
				return m.nextStep()
			case "q":
				return m.finish(false, "Setup canceled. Autocomplete disabled.")
			}
			return m, nil
		case stepKey:
			switch msg.String() {
			case "enter":
				key := strings.TrimSpace(m.keyInput.Value())
				if key == "" {
					return m.finish(false, "No key entered. Autocomplete disabled.")
				}
				m.capturedKey = key
				return m.finish(true, "Google Maps API key saved.")
			case "esc":
				return m.finish(false, "Skipped key setup. Autocomplete disabled.")
			}
			var cmd tea.Cmd
			m.keyInput, cmd = m.keyInput.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m onboardingModel) finish(enabled bool, status string) (tea.Model, tea.Cmd) {
	m.settings.MapsEnabled = enabled
	m.status = status
	m.step = stepDone
	return m, tea.Quit
}

func (m onboardingModel) nextStep() (tea.Model, tea.Cmd) {
	if !m.enable {
		return m.finish(false, "Autocomplete disabled.")
	}
	if m.existingKey != "" {
		m.capturedKey = m.existingKey
		return m.finish(true, "Using GOOGLE_MAPS_API_KEY from the environment.")
	}
	m.step = stepKey
	return m, nil
}

func (m onboardingModel) View() string {
	width, height := m.width, m.height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 28
	}

	left := "  " + ui.HeaderStyle.Render("bitebook") + ui.BreadcrumbStyle.Render(" › Setup")
	right := ui.BreadcrumbStyle.Render(time.Now().Format("Mon 02 Jan")) + "  "
	padding := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	header := ui.TitleStyle.Width(width).Render(left + strings.Repeat(" ", padding) + right)

	var footer string
	switch m.step {
	case stepEnable:
		footer = "↑↓/jk choose  y/n enter confirm  q cancel"
	case stepKey:
		footer = "enter save  esc skip"
	default:
		footer = "Setup complete"
	}

	content := lipgloss.Place(width, max(8, height-4), lipgloss.Center, lipgloss.Top, m.renderCard(width))
	return lipgloss.JoinVertical(lipgloss.Left, header, content, ui.FooterStyle.Width(width).Render(footer))
}

func (m onboardingModel) renderCard(width int) string {
	cardWidth := min(92, width-6)
	if cardWidth < 40 {
		cardWidth = width - 2
	}

	option := func(label string, selected bool) string {
		if selected {
			return "  " + ui.HelpKeyStyle.Bold(true).Render("→ "+label)
		}
		return "    " + ui.NormalRowStyle.Render(label)
	}

	var body string
	switch m.step {
	case stepEnable:
		body = lipgloss.JoinVertical(lipgloss.Left,
			ui.LabelStyle.Render("Use Google Maps to autocomplete new places?"),
			"",
			option("Enable autocomplete and maps", m.enable),
			option("Enter places manually", !m.enable),
			"",
			ui.HelpDescStyle.Render("You can change this later in ~/.bitebook/onboarding.json"),
		)
	case stepKey:
		body = lipgloss.JoinVertical(lipgloss.Left,
			ui.LabelStyle.Render("Get a Google Maps API key:"),
			"",
			ui.HelpDescStyle.Render("1) https://console.cloud.google.com/google/maps-apis"),
			ui.HelpDescStyle.Render("2) Enable Places API (New) and Maps Static API"),
			ui.HelpDescStyle.Render("3) Create an API key and copy it"),
			"",
			ui.LabelStyle.Render("Google Maps API Key"),
			ui.ActiveBorderStyle.Width(max(30, cardWidth-14)).Render(m.keyInput.View()),
		)
	default:
		status := ui.SuccessStyle.Render(m.status)
		if !m.settings.MapsEnabled {
			status = ui.ErrorStyle.Render(m.status)
		}
		body = lipgloss.JoinVertical(lipgloss.Left, ui.LabelStyle.Render("Onboarding Complete"), "", status)
	}
	return onboardingCard.Width(cardWidth).Render(body)
}

func runOnboarding(configDir, existingKey string) (OnboardingSettings, error) {
	prog := tea.NewProgram(newOnboardingModel(existingKey), tea.WithAltScreen())
	finalModel, err := prog.Run()
	if err != nil {
		return OnboardingSettings{}, fmt.Errorf("onboarding tui failed: %w", err)
	}
	m, ok := finalModel.(onboardingModel)
	if !ok {
		return OnboardingSettings{}, fmt.Errorf("unexpected onboarding model type")
	}
	// A quit before any choice still completes onboarding, with maps off.
	if m.step != stepDone {
		m.settings.MapsEnabled = false
	}
	if err := saveMapsAPIKey(configDir, m.capturedKey); err != nil {
		return OnboardingSettings{}, err
	}
	if err := saveOnboardingSettings(configDir, m.settings); err != nil {
		return OnboardingSettings{}, err
	}
	return m.settings, nil
}
