package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrInvalidRating is returned when a rating falls outside [MinRating, MaxRating].
	ErrInvalidRating = errors.New("rating must be between 0 and 5")
	// ErrInvalidType is returned for a place type other than Restaurant, Bar or Cafe.
	ErrInvalidType = errors.New("type must be one of Restaurant, Bar, Cafe")
	// ErrRequiredField is returned when an update tries to clear a field every place must have.
	ErrRequiredField = errors.New("field cannot be cleared")
)

const (
	MinRating = 0.0
	MaxRating = 5.0
)

// PlaceType is the kind of establishment.
type PlaceType string

const (
	TypeRestaurant PlaceType = "Restaurant"
	TypeBar        PlaceType = "Bar"
	TypeCafe       PlaceType = "Cafe"
)

// PlaceTypes lists the known types in display order.
var PlaceTypes = []PlaceType{TypeRestaurant, TypeBar, TypeCafe}

// ParsePlaceType matches s case-insensitively against the known types.
// Plural forms ("bars") are accepted.
func ParsePlaceType(s string) (PlaceType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range PlaceTypes {
		lower := strings.ToLower(string(t))
		if s == lower || s == lower+"s" {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// Place is a single eating or drinking establishment tracked by the user.
type Place struct {
	ID                string       `json:"placeId"`
	Name              string       `json:"name"`
	Type              PlaceType    `json:"type"`
	Location          string       `json:"location"`
	FullAddress       string       `json:"fullAddress,omitempty"`
	Cuisine           string       `json:"cuisine,omitempty"`
	Influence         string       `json:"influence,omitempty"`
	Visited           bool         `json:"visited"`
	Rating            *float64     `json:"rating"`
	Notes             string       `json:"notes,omitempty"`
	GooglePlaceID     string       `json:"googlePlaceId,omitempty"`
	Website           string       `json:"website,omitempty"`
	SocialMedia       string       `json:"socialMedia,omitempty"`
	OpeningHours      OpeningHours `json:"openingHours,omitempty"`
	PermanentlyClosed *bool        `json:"isPermanentlyClosed,omitempty"`
	CreatedAt         *time.Time   `json:"createdDateTime,omitempty"`
	UpdatedAt         *time.Time   `json:"lastUpdatedDateTime,omitempty"`
}

// UnmarshalJSON normalizes the loosely typed fields the service may send:
// visited as bool, number or string, and timestamps as strings or epoch millis.
func (p *Place) UnmarshalJSON(data []byte) error {
	type alias Place
	aux := struct {
		*alias
		Visited   any             `json:"visited"`
		CreatedAt json.RawMessage `json:"createdDateTime"`
		UpdatedAt json.RawMessage `json:"lastUpdatedDateTime"`
	}{alias: (*alias)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	p.Visited = ParseVisited(aux.Visited)
	p.CreatedAt = ParseTimestamp(aux.CreatedAt)
	p.UpdatedAt = ParseTimestamp(aux.UpdatedAt)
	return nil
}

// IsPermanentlyClosed reports whether the provider marked the place as closed for good.
func (p Place) IsPermanentlyClosed() bool {
	return p.PermanentlyClosed != nil && *p.PermanentlyClosed
}

// MapsURL links to the place on Google Maps, preferring the provider id.
func (p Place) MapsURL() string {
	query := p.Name
	if addr := p.Address(); addr != "" {
		query += " " + addr
	}
	u := "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(strings.TrimSpace(query))
	if p.GooglePlaceID != "" {
		u += "&query_place_id=" + url.QueryEscape(p.GooglePlaceID)
	}
	return u
}

// Address returns the full address when known, else the short location.
func (p Place) Address() string {
	if p.FullAddress != "" {
		return p.FullAddress
	}
	return p.Location
}

// ParseVisited coerces the service's visited value to a bool.
func ParseVisited(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1", "visited", "yes":
			return true
		}
	}
	return false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-07:00",
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp decodes a JSON string or epoch-millisecond number.
// Missing, null or unparseable values yield nil.
func ParseTimestamp(raw json.RawMessage) *time.Time {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}

	if s[0] != '"' {
		var ms float64
		if err := json.Unmarshal(raw, &ms); err != nil {
			return nil
		}
		t := time.UnixMilli(int64(ms)).UTC()
		return &t
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			return &t
		}
	}
	return nil
}

// ValidateRating checks r against the allowed range.
func ValidateRating(r float64) error {
	if math.IsNaN(r) || r < MinRating || r > MaxRating {
		return fmt.Errorf("%w: got %g", ErrInvalidRating, r)
	}
	return nil
}

// NewPlace represents data for creating a place. The service assigns
// the id and both timestamps.
type NewPlace struct {
	Name          string    `json:"name"`
	Type          PlaceType `json:"type"`
	Location      string    `json:"location"`
	FullAddress   string    `json:"fullAddress,omitempty"`
	Cuisine       string    `json:"cuisine,omitempty"`
	Influence     string    `json:"influence,omitempty"`
	Visited       bool      `json:"visited"`
	Rating        *float64  `json:"rating,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	GooglePlaceID string    `json:"googlePlaceId,omitempty"`
	Website       string    `json:"website,omitempty"`
	SocialMedia   string    `json:"socialMedia,omitempty"`
}

// Validate checks the fields the service requires.
func (n NewPlace) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return errors.New("name is required")
	}
	if _, err := ParsePlaceType(string(n.Type)); err != nil {
		return err
	}
	if n.Rating != nil {
		if err := ValidateRating(*n.Rating); err != nil {
			return err
		}
	}
	return nil
}
