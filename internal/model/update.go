package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Nullable is an optional field with three states: absent, explicitly null,
// or holding a value. Absent fields are dropped from JSON (via omitzero),
// null fields encode as JSON null.
type Nullable[T any] struct {
	value T
	set   bool
	null  bool
}

// Value returns a Nullable holding v.
func Value[T any](v T) Nullable[T] {
	return Nullable[T]{value: v, set: true}
}

// Null returns a Nullable that encodes as JSON null.
func Null[T any]() Nullable[T] {
	return Nullable[T]{set: true, null: true}
}

// IsZero reports whether the field is absent.
func (n Nullable[T]) IsZero() bool { return !n.set }

// IsNull reports whether the field was explicitly set to null.
func (n Nullable[T]) IsNull() bool { return n.set && n.null }

// Get returns the value and whether one is present.
func (n Nullable[T]) Get() (T, bool) {
	return n.value, n.set && !n.null
}

// Ptr returns nil for absent or null, else a pointer to a copy of the value.
func (n Nullable[T]) Ptr() *T {
	if v, ok := n.Get(); ok {
		return &v
	}
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.set || n.null {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.null = true
		var zero T
		n.value = zero
		return nil
	}
	n.null = false
	return json.Unmarshal(data, &n.value)
}

// PlaceUpdate is a partial update. Only fields that are set are sent;
// a null Rating or Notes tells the service to clear it.
type PlaceUpdate struct {
	Name          Nullable[string]    `json:"name,omitzero"`
	Type          Nullable[PlaceType] `json:"type,omitzero"`
	Location      Nullable[string]    `json:"location,omitzero"`
	FullAddress   Nullable[string]    `json:"fullAddress,omitzero"`
	Cuisine       Nullable[string]    `json:"cuisine,omitzero"`
	Influence     Nullable[string]    `json:"influence,omitzero"`
	Visited       Nullable[bool]      `json:"visited,omitzero"`
	Rating        Nullable[float64]   `json:"rating,omitzero"`
	Notes         Nullable[string]    `json:"notes,omitzero"`
	GooglePlaceID Nullable[string]    `json:"googlePlaceId,omitzero"`
	Website       Nullable[string]    `json:"website,omitzero"`
	SocialMedia   Nullable[string]    `json:"socialMedia,omitzero"`
}

// VisitUpdate marks a place visited with the given rating and notes.
// Empty notes are sent as null.
func VisitUpdate(rating float64, notes string) PlaceUpdate {
	u := PlaceUpdate{
		Visited: Value(true),
		Rating:  Value(rating),
		Notes:   Null[string](),
	}
	if notes != "" {
		u.Notes = Value(notes)
	}
	return u
}

// UnvisitUpdate marks a place not visited and clears rating and notes.
func UnvisitUpdate() PlaceUpdate {
	return PlaceUpdate{
		Visited: Value(false),
		Rating:  Null[float64](),
		Notes:   Null[string](),
	}
}

// IsEmpty reports whether no field is set.
func (u PlaceUpdate) IsEmpty() bool {
	return u.Name.IsZero() && u.Type.IsZero() && u.Location.IsZero() &&
		u.FullAddress.IsZero() && u.Cuisine.IsZero() && u.Influence.IsZero() &&
		u.Visited.IsZero() && u.Rating.IsZero() && u.Notes.IsZero() &&
		u.GooglePlaceID.IsZero() && u.Website.IsZero() && u.SocialMedia.IsZero()
}

// Validate checks rating range and type, and rejects null for name,
// type and visited.
func (u PlaceUpdate) Validate() error {
	switch {
	case u.Name.IsNull():
		return fmt.Errorf("%w: name", ErrRequiredField)
	case u.Type.IsNull():
		return fmt.Errorf("%w: type", ErrRequiredField)
	case u.Visited.IsNull():
		return fmt.Errorf("%w: visited", ErrRequiredField)
	}
	if r, ok := u.Rating.Get(); ok {
		if err := ValidateRating(r); err != nil {
			return err
		}
	}
	if t, ok := u.Type.Get(); ok {
		if _, err := ParsePlaceType(string(t)); err != nil {
			return err
		}
	}
	return nil
}

// Apply returns p with the update merged in. Null clears the field.
func (u PlaceUpdate) Apply(p Place) Place {
	applyString(&p.Name, u.Name)
	applyString(&p.Location, u.Location)
	applyString(&p.FullAddress, u.FullAddress)
	applyString(&p.Cuisine, u.Cuisine)
	applyString(&p.Influence, u.Influence)
	applyString(&p.Notes, u.Notes)
	applyString(&p.GooglePlaceID, u.GooglePlaceID)
	applyString(&p.Website, u.Website)
	applyString(&p.SocialMedia, u.SocialMedia)

	if !u.Type.IsZero() {
		t, _ := u.Type.Get()
		p.Type = t
	}
	if !u.Visited.IsZero() {
		v, _ := u.Visited.Get()
		p.Visited = v
	}
	if !u.Rating.IsZero() {
		p.Rating = u.Rating.Ptr()
	}
	return p
}

func applyString(dst *string, n Nullable[string]) {
	if n.IsZero() {
		return
	}
	v, _ := n.Get()
	*dst = v
}
