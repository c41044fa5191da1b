package company

import (
	"strings"
	"time"
)

// Layouts accepted for category window bounds. Day-first slash dates come
// from spreadsheet imports, ISO dates from the API.
var windowLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseWindowDate parses a window bound in any accepted encoding and returns
// the local calendar date it denotes.
func ParseWindowDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range windowLayouts {
		t, err := time.ParseInLocation(layout, value, time.Local)
		if err == nil {
			return calendarDate(t.In(time.Local)), true
		}
	}
	return time.Time{}, false
}

// DateInRange reports whether now falls inside [from, to], comparing local
// calendar dates. An absent or unparseable bound yields false.
func DateInRange(now time.Time, from, to string) bool {
	start, ok := ParseWindowDate(from)
	if !ok {
		return false
	}
	end, ok := ParseWindowDate(to)
	if !ok {
		return false
	}
	today := calendarDate(now.In(time.Local))
	return !today.Before(start) && !today.After(end)
}

// IsActive reports whether the window covers now.
func (w CategoryWindow) IsActive(now time.Time) bool {
	return DateInRange(now, w.From, w.To)
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}
