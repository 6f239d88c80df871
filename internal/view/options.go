package view

import "fmt"

// Option is a selectable filter value with its display label.
type Option struct {
	Value string
	Label string
}

var TypeOptions = []Option{
	{TypeAll, "All types"},
	{"restaurant", "Restaurants"},
	{"bar", "Bars"},
	{"cafe", "Cafes"},
}

var StatusOptions = []Option{
	{StatusAll, "All"},
	{StatusVisited, "Visited"},
	{StatusToVisit, "Want to Visit"},
}

var SortOptions = []Option{
	{SortRecentlyAdded, "Recently Added"},
	{SortRecentlyEdited, "Recently Edited"},
	{SortAlphabetical, "A-Z"},
	{SortRating, "Top Rated"},
}

// Next returns the option after current, wrapping around. Unknown values
// start from the first option.
func Next(opts []Option, current string) string {
	for i, o := range opts {
		if o.Value == current {
			return opts[(i+1)%len(opts)].Value
		}
	}
	return opts[0].Value
}

// Label returns the display label for value, or value itself.
func Label(opts []Option, value string) string {
	for _, o := range opts {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

// Validate checks value against opts.
func Validate(opts []Option, value, name string) error {
	for _, o := range opts {
		if o.Value == value {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q", name, value)
}
