// Package period canonicalises revenue periods to the first day of a month.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout is the canonical wire and storage form of a period.
const Layout = "2006-01-02"

// ErrInvalidPeriod is returned for inputs that are not a real calendar month.
var ErrInvalidPeriod = errors.New("invalid period")

// MonthLabels are the Italian short month names used in trend series.
var MonthLabels = [12]string{"gen", "feb", "mar", "apr", "mag", "giu", "lug", "ago", "set", "ott", "nov", "dic"}

// Normalize accepts "YYYY-MM", "YYYY-MM-DD" or an RFC 3339 timestamp and
// returns midnight UTC of the first day of that month.
func Normalize(input string) (time.Time, error) {
	value := strings.TrimSpace(input)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidPeriod)
	}
	if len(value) == 7 {
		value += "-01"
	}
	if len(value) == len(Layout) {
		t, err := time.Parse(Layout, value)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, input)
		}
		return FromTime(t), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, input)
	}
	// Keep the month as written, not the month after shifting to UTC.
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
}

// FromTime truncates t to the first day of its month in UTC.
func FromTime(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Format renders a period as "YYYY-MM-01".
func Format(t time.Time) string {
	return FromTime(t).Format(Layout)
}

// Canonical normalizes input and renders it in canonical form.
func Canonical(input string) (string, error) {
	t, err := Normalize(input)
	if err != nil {
		return "", err
	}
	return Format(t), nil
}

// YearBounds returns the first and last period of an inclusive year range.
func YearBounds(fromYear, toYear int) (time.Time, time.Time) {
	return time.Date(fromYear, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(toYear, time.December, 1, 0, 0, 0, 0, time.UTC)
}

// Label returns the short month label for a period.
func Label(t time.Time) string {
	return MonthLabels[t.Month()-1]
}
