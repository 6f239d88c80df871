package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnvisitUpdateSendsExplicitNulls(t *testing.T) {
	data, err := json.Marshal(UnvisitUpdate())
	require.NoError(t, err)
	assert.JSONEq(t, `{"visited":false,"rating":null,"notes":null}`, string(data))
}

func TestVisitUpdate(t *testing.T) {
	data, err := json.Marshal(VisitUpdate(4, "great noodles"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"visited":true,"rating":4,"notes":"great noodles"}`, string(data))

	data, err = json.Marshal(VisitUpdate(3.5, ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"visited":true,"rating":3.5,"notes":null}`, string(data))
}

func TestPlaceUpdateOmitsAbsentFields(t *testing.T) {
	data, err := json.Marshal(PlaceUpdate{Name: Value("New name")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"New name"}`, string(data))

	data, err = json.Marshal(PlaceUpdate{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestPlaceUpdateDecodeDistinguishesNullFromAbsent(t *testing.T) {
	var u PlaceUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"rating":null,"name":"X"}`), &u))

	assert.True(t, u.Rating.IsNull())
	assert.False(t, u.Rating.IsZero())
	assert.True(t, u.Notes.IsZero())
	name, ok := u.Name.Get()
	assert.True(t, ok)
	assert.Equal(t, "X", name)
}

func TestPlaceUpdateApply(t *testing.T) {
	rating := 4.0
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := Place{
		ID:        "1",
		Name:      "Thai Spice",
		Type:      TypeRestaurant,
		Location:  "135 Chinatown St",
		Cuisine:   "Thai",
		Visited:   true,
		Rating:    &rating,
		Notes:     "spicy",
		CreatedAt: &created,
	}

	got := UnvisitUpdate().Apply(p)
	assert.False(t, got.Visited)
	assert.Nil(t, got.Rating)
	assert.Empty(t, got.Notes)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Cuisine, got.Cuisine)
	assert.Equal(t, p.Location, got.Location)
	assert.Equal(t, p.CreatedAt, got.CreatedAt)

	// original untouched
	assert.True(t, p.Visited)
	require.NotNil(t, p.Rating)

	got = PlaceUpdate{Cuisine: Value("Lao"), Type: Value(TypeCafe)}.Apply(p)
	assert.Equal(t, "Lao", got.Cuisine)
	assert.Equal(t, TypeCafe, got.Type)
	assert.Equal(t, "spicy", got.Notes)
}

func TestPlaceUpdateValidate(t *testing.T) {
	assert.NoError(t, UnvisitUpdate().Validate())
	assert.ErrorIs(t, PlaceUpdate{Rating: Value(9.0)}.Validate(), ErrInvalidRating)
	assert.ErrorIs(t, PlaceUpdate{Type: Value(PlaceType("Diner"))}.Validate(), ErrInvalidType)
	assert.ErrorIs(t, PlaceUpdate{Name: Null[string]()}.Validate(), ErrRequiredField)
	assert.ErrorIs(t, PlaceUpdate{Type: Null[PlaceType]()}.Validate(), ErrRequiredField)
	assert.ErrorIs(t, PlaceUpdate{Visited: Null[bool]()}.Validate(), ErrRequiredField)
	assert.NoError(t, PlaceUpdate{Rating: Null[float64](), Notes: Null[string]()}.Validate())
	assert.True(t, PlaceUpdate{}.IsEmpty())
	assert.False(t, UnvisitUpdate().IsEmpty())
}

func TestIsOpenAt(t *testing.T) {
	hours := OpeningHours{
		"Monday": {{OpeningHour: 9, OpeningMinute: 0, ClosingHour: 17, ClosingMinute: 0}},
	}
	monday := func(h, m int) time.Time {
		// 2024-03-04 is a Monday
		return time.Date(2024, 3, 4, h, m, 0, 0, time.UTC)
	}

	assert.True(t, IsOpenAt(hours, monday(9, 0)))
	assert.True(t, IsOpenAt(hours, monday(12, 15)))
	assert.True(t, IsOpenAt(hours, monday(17, 0)))
	assert.False(t, IsOpenAt(hours, monday(17, 1)))
	assert.False(t, IsOpenAt(hours, monday(8, 59)))
	assert.False(t, IsOpenAt(hours, monday(12, 0).AddDate(0, 0, 1)))
	assert.False(t, IsOpenAt(nil, monday(12, 0)))
}
