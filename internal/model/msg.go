package model

// Bubble Tea message types

// ErrorMsg represents an error message.
type ErrorMsg struct {
	Err error
}

// PlacesLoadFailedMsg is sent when fetching the list failed. The list on
// screen is kept.
type PlacesLoadFailedMsg struct {
	Err error
}

// PlacesLoadedMsg is sent when the full list has been fetched or read from cache.
type PlacesLoadedMsg struct {
	Places    []Place
	FromCache bool
}

// PlaceDetailLoadedMsg is sent when a card has been opened. Fallback is true
// when the fresh fetch failed and the held copy is shown instead.
type PlaceDetailLoadedMsg struct {
	Place    Place
	Fallback bool
}

// PlaceAddedMsg is sent when the service accepted a new place.
type PlaceAddedMsg struct {
	Place NewPlace
}

// PlaceAddFailedMsg routes an add failure back to the open form.
type PlaceAddFailedMsg struct {
	Err error
}

// PlaceUpdatedMsg is sent when the service confirmed an update.
type PlaceUpdatedMsg struct {
	ID     string
	Update PlaceUpdate
	Source UpdateSource
}

// PlaceUpdateFailedMsg reports a rejected update to the dialog or form that issued it.
type PlaceUpdateFailedMsg struct {
	ID     string
	Err    error
	Source UpdateSource
}

// PlaceDeletedMsg is sent when the service confirmed a delete.
type PlaceDeletedMsg struct {
	ID   string
	Name string
}

// FormCancelledMsg is sent when a form is cancelled.
type FormCancelledMsg struct{}

// UpdateSource identifies which interaction issued an update.
type UpdateSource int

const (
	SourceVisit UpdateSource = iota
	SourceUnvisit
	SourceEdit
)

// Screen represents different app screens.
type Screen int

const (
	ScreenPlaces Screen = iota
	ScreenPlaceDetail
	ScreenPlaceForm
	ScreenEditForm
)

// Mode represents the current interaction mode.
type Mode int

const (
	ModeNav Mode = iota
	ModeInsert
)
