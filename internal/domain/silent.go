package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SilentWindow is a time-of-day range during which automated reactions are
// suppressed. A window with End before Start wraps past midnight
// (e.g. 22:00-07:00).
type SilentWindow struct {
	Start int // minutes after midnight
	End   int
}

// Contains reports whether t falls inside the window.
func (w SilentWindow) Contains(t time.Time) bool {
	minutes := t.Hour()*60 + t.Minute()
	if w.Start <= w.End {
		return minutes >= w.Start && minutes <= w.End
	}
	return minutes >= w.Start || minutes <= w.End
}

// SilentWindows is the parsed silent-hours configuration.
type SilentWindows []SilentWindow

// ParseSilentWindows parses a config string like "22:00-07:00,12:30-13:00".
// An empty string means no silent windows. Malformed segments are rejected
// rather than skipped so a typo does not silently disable the feature.
func ParseSilentWindows(config string) (SilentWindows, error) {
	config = strings.TrimSpace(config)
	if config == "" {
		return nil, nil
	}
	var windows SilentWindows
	for _, segment := range strings.Split(config, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		parts := strings.SplitN(segment, "-", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("silent hours segment %q: missing '-'", segment)
		}
		start, err := parseClockMinutes(parts[0])
		if err != nil {
			return nil, fmt.Errorf("silent hours segment %q: %w", segment, err)
		}
		end, err := parseClockMinutes(parts[1])
		if err != nil {
			return nil, fmt.Errorf("silent hours segment %q: %w", segment, err)
		}
		windows = append(windows, SilentWindow{Start: start, End: end})
	}
	return windows, nil
}

// Active reports whether t falls inside any window.
func (ws SilentWindows) Active(t time.Time) bool {
	for _, w := range ws {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

func parseClockMinutes(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("bad clock time %q", s)
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	return hour*60 + minute, nil
}
