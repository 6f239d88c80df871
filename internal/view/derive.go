package view

import (
	"sort"
	"strings"
	"time"

	"bitebook/internal/model"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Visited status filter values.
const (
	StatusAll     = "all"
	StatusVisited = "visited"
	StatusToVisit = "toVisit"
)

// Type filter value that matches every place.
const TypeAll = "all"

// Sort keys.
const (
	SortRecentlyAdded  = "recentlyAdded"
	SortRecentlyEdited = "recentlyEdited"
	SortAlphabetical   = "alphabetical"
	SortRating         = "rating"
)

// Filters selects and orders the visible places.
type Filters struct {
	Search        string `json:"search"`
	Type          string `json:"type"`
	VisitedStatus string `json:"visitedStatus"`
	SortBy        string `json:"sortBy"`
}

// DefaultFilters shows everything, newest first.
func DefaultFilters() Filters {
	return Filters{Type: TypeAll, VisitedStatus: StatusAll, SortBy: SortRecentlyAdded}
}

// Derive returns the places matching f in f.SortBy order. The input slice is
// never modified. An unknown sort key keeps the input order.
func Derive(all []model.Place, f Filters) []model.Place {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	typ := strings.ToLower(strings.TrimSpace(f.Type))
	status := normalizeStatus(f.VisitedStatus)

	out := make([]model.Place, 0, len(all))
	for _, p := range all {
		if !matchesSearch(p, search) || !matchesType(p, typ) || !matchesStatus(p, status) {
			continue
		}
		out = append(out, p)
	}

	sortPlaces(out, f.SortBy)
	return out
}

func matchesSearch(p model.Place, q string) bool {
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Location), q)
}

// matchesType is lenient about plurals and pluralized service values.
func matchesType(p model.Place, typ string) bool {
	if typ == "" || typ == TypeAll {
		return true
	}
	t := strings.ToLower(strings.TrimSpace(string(p.Type)))
	return t == typ || t == typ+"s" || strings.Contains(t, typ)
}

func matchesStatus(p model.Place, status string) bool {
	switch status {
	case StatusVisited:
		return p.Visited
	case StatusToVisit:
		return !p.Visited
	default:
		return true
	}
}

func normalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "visited":
		return StatusVisited
	case "tovisit", "to-visit", "to_visit", "want":
		return StatusToVisit
	default:
		return StatusAll
	}
}

func sortPlaces(places []model.Place, by string) {
	switch by {
	case SortRecentlyAdded:
		sort.SliceStable(places, func(i, j int) bool {
			return newerFirst(places[i].CreatedAt, places[j].CreatedAt)
		})
	case SortRecentlyEdited:
		sort.SliceStable(places, func(i, j int) bool {
			return newerFirst(places[i].UpdatedAt, places[j].UpdatedAt)
		})
	case SortAlphabetical:
		c := collate.New(language.English)
		sort.SliceStable(places, func(i, j int) bool {
			return c.CompareString(places[i].Name, places[j].Name) < 0
		})
	case SortRating:
		sort.SliceStable(places, func(i, j int) bool {
			a, b := places[i].Rating, places[j].Rating
			if a == nil || b == nil {
				return a != nil && b == nil
			}
			return *a > *b
		})
	}
}

// newerFirst orders by descending time with nil values last.
func newerFirst(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a != nil && b == nil
	}
	return a.After(*b)
}

// Stats counts places by visited status.
func Stats(all []model.Place) (total, visited, toVisit int) {
	for _, p := range all {
		if p.Visited {
			visited++
		} else {
			toVisit++
		}
	}
	return len(all), visited, toVisit
}
