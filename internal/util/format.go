package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"bitebook/internal/model"
)

// FormatDate formats a timestamp for display, or "Unknown" if nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return "Unknown"
	}
	return t.Local().Format("Jan 02, 2006")
}

// FormatDateHuman formats a timestamp relative to now.
// "Today", "Yesterday", "3d ago", "Jan 15", "Jan 15 '24"
func FormatDateHuman(t *time.Time, now time.Time) string {
	if t == nil {
		return "—"
	}
	local := t.In(now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, now.Location())

	days := int(today.Sub(day).Hours() / 24)
	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days > 1 && days < 7:
		return fmt.Sprintf("%dd ago", days)
	case local.Year() == now.Year():
		return local.Format("Jan 02")
	default:
		return local.Format("Jan 02 '06")
	}
}

// FormatRating formats a rating as "4.5/5" or "—" if nil.
func FormatRating(rating *float64) string {
	if rating == nil {
		return "—"
	}
	return FormatRatingNumber(*rating) + "/5"
}

// FormatRatingWithStar formats a rating as "4.5 ★" for display.
func FormatRatingWithStar(rating *float64) string {
	if rating == nil {
		return "—"
	}
	return FormatRatingNumber(*rating) + " ★"
}

// FormatRatingStars formats a rating as stars (e.g., "★★★★☆").
func FormatRatingStars(rating *float64) string {
	if rating == nil {
		return "—"
	}
	stars := int(math.Round(*rating))
	stars = max(0, min(stars, int(model.MaxRating)))
	return strings.Repeat("★", stars) + strings.Repeat("☆", int(model.MaxRating)-stars)
}

// FormatRatingNumber keeps one decimal at most and drops a trailing ".0".
func FormatRatingNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}

// ParseRatingInput parses a user-entered rating. Empty input is an error.
func ParseRatingInput(input string) (float64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, fmt.Errorf("rating is required (0-5)")
	}
	r, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(r) {
		return 0, fmt.Errorf("rating must be a number between 0 and 5")
	}
	if err := model.ValidateRating(r); err != nil {
		return 0, err
	}
	return r, nil
}

// FormatClock formats an hour/minute pair as "9:30 AM".
func FormatClock(hour, minute int) string {
	t := time.Date(2000, 1, 1, hour, minute, 0, 0, time.UTC)
	return t.Format("3:04 PM")
}

// FormatPeriods formats a day's opening periods, or "Closed" if there are none.
func FormatPeriods(periods []model.OpeningPeriod) string {
	if len(periods) == 0 {
		return "Closed"
	}
	parts := make([]string, 0, len(periods))
	for _, p := range periods {
		parts = append(parts, FormatClock(p.OpeningHour, p.OpeningMinute)+" - "+FormatClock(p.ClosingHour, p.ClosingMinute))
	}
	return strings.Join(parts, ", ")
}

// TruncateString truncates a string to maxLen and adds "..." if needed.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
