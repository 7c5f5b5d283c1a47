package care

import (
	"fmt"
	"strconv"
	"strings"
)

// ClockTime is a wall-clock time of day for a daily trigger.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" in 24-hour form.
func ParseClock(raw string) (ClockTime, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: want HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: hour out of range", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: minute out of range", raw)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}
