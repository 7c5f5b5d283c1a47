package care

import (
	"fmt"
	"time"
)

// dayLayout is the wire and storage format for occurrence days.
const dayLayout = "2006-01-02"

// Day is the calendar date, in the deployment timezone, identifying one
// day's instance of a slot. A job keyed to yesterday's day is never touched
// by a confirmation carrying today's.
type Day string

// DayOf derives the occurrence day for t in the given location.
func DayOf(t time.Time, loc *time.Location) Day {
	return Day(t.In(loc).Format(dayLayout))
}

// Today derives the occurrence day for the current instant in loc.
func Today(loc *time.Location) Day {
	return DayOf(time.Now(), loc)
}

// ParseDay validates a wire-format occurrence day. The round-trip comparison
// rejects values like "2024-1-1" that time.Parse would otherwise accept.
func ParseDay(raw string) (Day, error) {
	t, err := time.Parse(dayLayout, raw)
	if err != nil {
		return "", fmt.Errorf("invalid occurrence day %q: %w", raw, err)
	}
	if t.Format(dayLayout) != raw {
		return "", fmt.Errorf("invalid occurrence day %q: not in YYYY-MM-DD form", raw)
	}
	return Day(raw), nil
}
