package domain

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the canonical date key format.
	DateLayout = "2006-01-02"
	// DateTimeLayout is used wherever a timestamp is rendered into a prompt.
	DateTimeLayout = "2006-01-02 15:04:05"
	// ClockLayout is the HH:MM wall-clock format used by schedule config.
	ClockLayout = "15:04"
)

var dateLayouts = []string{DateLayout, "2006/01/02", "2006.01.02"}

// ParseDate normalizes a user-supplied date string to YYYY-MM-DD. Accepts
// the canonical layout plus slash/dot variants and the relative words
// "today" and "yesterday".
func ParseDate(input string, now time.Time) (string, error) {
	switch input {
	case "today":
		return now.Format(DateLayout), nil
	case "yesterday":
		return now.AddDate(0, 0, -1).Format(DateLayout), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, input); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q (want YYYY-MM-DD)", input)
}
