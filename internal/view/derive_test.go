package view

import (
	"testing"
	"time"

	"bitebook/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func ids(places []model.Place) []string {
	out := make([]string, len(places))
	for i, p := range places {
		out[i] = p.ID
	}
	return out
}

func samplePlaces() []model.Place {
	day := func(d int) *time.Time { return ptr(time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)) }
	return []model.Place{
		{ID: "thai", Name: "Thai Spice Kitchen", Location: "135 Chinatown St", Type: "Restaurant", Visited: true, Rating: ptr(3.5), CreatedAt: day(1), UpdatedAt: day(9)},
		{ID: "bar", Name: "Velvet Bar", Location: "9 Main St", Type: "Bar", Visited: false, CreatedAt: day(3), UpdatedAt: day(4)},
		{ID: "cafe", Name: "éclair café", Location: "1 Rue", Type: "Cafe", Visited: true, Rating: ptr(4.8), CreatedAt: day(2)},
		{ID: "diner", Name: "Anchor Diner", Location: "2 Harbor", Type: "Restaurants", Visited: false},
	}
}

func TestDeriveSearch(t *testing.T) {
	all := samplePlaces()[:1]

	for _, q := range []string{"thai", "CHINATOWN", "spice", "  spice  "} {
		assert.Len(t, Derive(all, Filters{Search: q}), 1, "query %q", q)
	}
	assert.Empty(t, Derive(all, Filters{Search: "sushi"}))
}

func TestDeriveTypeFilter(t *testing.T) {
	all := []model.Place{
		{ID: "1", Type: "Restaurant"},
		{ID: "2", Type: "Restaurants"},
		{ID: "3", Type: "Bar"},
	}

	assert.Equal(t, []string{"1", "2"}, ids(Derive(all, Filters{Type: "restaurant"})))
	assert.Equal(t, []string{"3"}, ids(Derive(all, Filters{Type: "bar"})))
	assert.Len(t, Derive(all, Filters{Type: TypeAll}), 3)
	assert.Len(t, Derive(all, Filters{}), 3)
}

func TestDeriveVisitedStatus(t *testing.T) {
	all := samplePlaces()

	assert.ElementsMatch(t, []string{"thai", "cafe"}, ids(Derive(all, Filters{VisitedStatus: StatusVisited})))
	assert.ElementsMatch(t, []string{"bar", "diner"}, ids(Derive(all, Filters{VisitedStatus: StatusToVisit})))
	assert.Len(t, Derive(all, Filters{VisitedStatus: StatusAll}), 4)
}

func TestDeriveRatingSort(t *testing.T) {
	all := []model.Place{
		{ID: "a", Rating: ptr(3.5)},
		{ID: "b"},
		{ID: "c", Rating: ptr(4.8)},
	}
	got := Derive(all, Filters{SortBy: SortRating})
	assert.Equal(t, []string{"c", "a", "b"}, ids(got))
}

func TestDeriveDateSorts(t *testing.T) {
	all := samplePlaces()

	assert.Equal(t, []string{"bar", "cafe", "thai", "diner"}, ids(Derive(all, Filters{SortBy: SortRecentlyAdded})))
	assert.Equal(t, []string{"thai", "bar", "cafe", "diner"}, ids(Derive(all, Filters{SortBy: SortRecentlyEdited})))
}

func TestDeriveAlphabetical(t *testing.T) {
	got := Derive(samplePlaces(), Filters{SortBy: SortAlphabetical})
	assert.Equal(t, []string{"diner", "cafe", "thai", "bar"}, ids(got))
}

func TestDeriveUnknownSortKeepsOrder(t *testing.T) {
	all := samplePlaces()
	assert.Equal(t, ids(all), ids(Derive(all, Filters{SortBy: "bogus"})))
}

func TestDeriveIsPure(t *testing.T) {
	all := samplePlaces()
	before := ids(all)

	f := Filters{Search: "a", Type: "restaurant", VisitedStatus: StatusAll, SortBy: SortRating}
	first := Derive(all, f)
	second := Derive(all, f)

	assert.Equal(t, before, ids(all))
	assert.Equal(t, ids(first), ids(second))
}

func TestDeriveStableOnTies(t *testing.T) {
	all := []model.Place{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	assert.Equal(t, []string{"1", "2", "3"}, ids(Derive(all, Filters{SortBy: SortRating})))
	assert.Equal(t, []string{"1", "2", "3"}, ids(Derive(all, Filters{SortBy: SortRecentlyAdded})))
}

func TestStats(t *testing.T) {
	total, visited, toVisit := Stats(samplePlaces())
	assert.Equal(t, 4, total)
	assert.Equal(t, 2, visited)
	assert.Equal(t, 2, toVisit)
}

func TestOptions(t *testing.T) {
	assert.Equal(t, SortRecentlyEdited, Next(SortOptions, SortRecentlyAdded))
	assert.Equal(t, SortRecentlyAdded, Next(SortOptions, SortRating))
	assert.Equal(t, TypeAll, Next(TypeOptions, "unknown"))
	assert.Equal(t, "Want to Visit", Label(StatusOptions, StatusToVisit))
	require.NoError(t, Validate(SortOptions, SortRating, "sort"))
	assert.Error(t, Validate(SortOptions, "price", "sort"))
}
