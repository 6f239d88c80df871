package ui

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bitebook/internal/model"
	"bitebook/internal/view"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlacesModelKeepsSelectionAcrossRederive(t *testing.T) {
	rows := samplePlaces()
	table := NewPlacesModel()
	table.SetRows(rows, len(rows))
	table.MoveDown()
	require.Equal(t, "p2", table.Selected().ID)

	table.SetRows([]model.Place{rows[2], rows[1]}, len(rows))
	assert.Equal(t, "p2", table.Selected().ID)

	table.SetRows(rows[:1], len(rows))
	assert.Equal(t, "p1", table.Selected().ID)

	table.SetRows(nil, len(rows))
	assert.Nil(t, table.Selected())
}

func TestPlacesModelMovementBounds(t *testing.T) {
	rows := samplePlaces()
	table := NewPlacesModel()
	table.SetRows(rows, len(rows))

	table.MoveUp()
	assert.Equal(t, "p1", table.Selected().ID)

	table.JumpToBottom()
	assert.Equal(t, "p3", table.Selected().ID)
	table.MoveDown()
	assert.Equal(t, "p3", table.Selected().ID)

	table.JumpToTop()
	assert.Equal(t, "p1", table.Selected().ID)
}

func TestPlacesModelColumns(t *testing.T) {
	table := NewPlacesModel()
	assert.Equal(t, "NAME", table.ActiveColumnLabel())

	table.NextColumn()
	assert.Equal(t, "TYPE", table.ActiveColumnLabel())
	require.True(t, table.HideActiveColumn())
	assert.Equal(t, []string{"type"}, table.Prefs().HiddenColumns)
	assert.NotEqual(t, "TYPE", table.ActiveColumnLabel())

	table.PrevColumn()
	table.ShowAllColumns()
	assert.Empty(t, table.Prefs().HiddenColumns)
}

func TestPlacesModelNeverHidesLastColumn(t *testing.T) {
	table := NewPlacesModel()
	for table.HideActiveColumn() {
	}
	assert.Len(t, table.visibleColumnIndexes(), 1)
}

func TestPlacesModelEmptyStates(t *testing.T) {
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	table := NewPlacesModel()

	table.SetRows(nil, 0)
	assert.Contains(t, table.View(100, 20, now), "No places yet")

	table.SetRows(nil, 4)
	assert.Contains(t, table.View(100, 20, now), "Nothing matches the current filters")
}

func TestUIPreferencesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ui_prefs.json")

	prefs := UIPreferences{
		Filters: view.Filters{Search: "thai", Type: "bar", VisitedStatus: view.StatusToVisit, SortBy: view.SortRating},
		Places:  TablePrefs{HiddenColumns: []string{"cuisine"}, ActiveColumn: "rating"},
	}
	require.NoError(t, saveUIPreferences(path, prefs))

	loaded := loadUIPreferences(path)
	assert.Equal(t, "", loaded.Filters.Search, "search text is not restored")
	assert.Equal(t, "bar", loaded.Filters.Type)
	assert.Equal(t, view.StatusToVisit, loaded.Filters.VisitedStatus)
	assert.Equal(t, view.SortRating, loaded.Filters.SortBy)
	assert.Equal(t, prefs.Places, loaded.Places)
}

func TestUIPreferencesResetInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui_prefs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"filters":{"type":"bakery","visitedStatus":"maybe","sortBy":"distance"}}`), 0644))

	loaded := loadUIPreferences(path)
	assert.Equal(t, view.DefaultFilters(), loaded.Filters)
}

func TestUIPreferencesMissingOrCorrupt(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, defaultUIPreferences(), loadUIPreferences(filepath.Join(dir, "missing.json")))
	assert.Equal(t, defaultUIPreferences(), loadUIPreferences(""))

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0644))
	assert.Equal(t, defaultUIPreferences(), loadUIPreferences(corrupt))

	assert.NoError(t, saveUIPreferences("", defaultUIPreferences()))
}

func TestRenderQRCode(t *testing.T) {
	art, err := RenderQRCode("https://www.google.com/maps/search/?api=1&query=Thai")
	require.NoError(t, err)
	assert.Contains(t, art, "█")
}
