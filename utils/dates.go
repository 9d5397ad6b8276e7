package utils

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// DateOnly returns the civil date of t in loc, normalised to midnight UTC so that
// date columns compare consistently on every driver.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays adds whole calendar days to a civil date.
func AddDays(date time.Time, days int) time.Time {
	return date.AddDate(0, 0, days)
}

// ParseDate parses a YYYY-MM-DD string into a civil date.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

// FormatDate renders a civil date; nil and zero render as "".
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

// AtLocalTime places the civil date at hour:minute wall-clock time in loc and returns it in UTC.
func AtLocalTime(date time.Time, hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, loc).UTC()
}
