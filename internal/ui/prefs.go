package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"bitebook/internal/view"
)

// TablePrefs stores table layout preferences.
type TablePrefs struct {
	HiddenColumns []string `json:"hidden_columns"`
	ActiveColumn  string   `json:"active_column"`
}

// UIPreferences stores persisted app preferences.
type UIPreferences struct {
	Filters view.Filters `json:"filters"`
	Places  TablePrefs   `json:"places"`
}

func defaultUIPreferences() UIPreferences {
	return UIPreferences{Filters: view.DefaultFilters()}
}

// DefaultPrefsPath returns ~/.bitebook/ui_prefs.json.
func DefaultPrefsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}
	return filepath.Join(home, ".bitebook", "ui_prefs.json"), nil
}

// loadUIPreferences reads path. Missing or invalid files yield the defaults.
// The search text is never restored and unknown filter values are reset.
func loadUIPreferences(path string) UIPreferences {
	if path == "" {
		return defaultUIPreferences()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return defaultUIPreferences()
	}

	prefs := defaultUIPreferences()
	if err := json.Unmarshal(data, &prefs); err != nil {
		return defaultUIPreferences()
	}

	def := view.DefaultFilters()
	prefs.Filters.Search = ""
	if view.Validate(view.TypeOptions, prefs.Filters.Type, "type") != nil {
		prefs.Filters.Type = def.Type
	}
	if view.Validate(view.StatusOptions, prefs.Filters.VisitedStatus, "status") != nil {
		prefs.Filters.VisitedStatus = def.VisitedStatus
	}
	if view.Validate(view.SortOptions, prefs.Filters.SortBy, "sort") != nil {
		prefs.Filters.SortBy = def.SortBy
	}
	return prefs
}

func saveUIPreferences(path string, prefs UIPreferences) error {
	if path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create prefs dir: %w", err)
	}

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal prefs: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write prefs: %w", err)
	}
	return nil
}
