// Package dateparse turns request date strings into calendar days.
//
// Request payloads send dates as DD/MM/YYYY. Older clients also send ISO
// dates or full timestamps, so those are accepted as a fallback. Every
// ledger operation works on whole calendar days in the configured zone.
package dateparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned for strings that are not a recognizable date.
var ErrInvalidDate = errors.New("invalid date")

// KeyLayout is the layout of a calendar-day key (e.g. "2024-03-05").
const KeyLayout = "2006-01-02"

// DisplayLayout is the DD/MM/YYYY layout used in messages.
const DisplayLayout = "02/01/2006"

// fallbackLayouts are tried, in order, when the DD/MM/YYYY form does not match.
var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	KeyLayout,
	"2006/01/02",
	"Mon Jan 02 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// Parse parses s and returns the start of that calendar day in loc.
// DD/MM/YYYY (one- or two-digit day and month) is tried first.
func Parse(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	if loc == nil {
		loc = time.Local
	}

	if parts := strings.Split(s, "/"); len(parts) == 3 && len(parts[2]) == 4 {
		return fromDMY(s, parts, loc)
	}

	for _, layout := range fallbackLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return StartOfDay(t.In(loc)), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func fromDMY(s string, parts []string, loc *time.Location) (time.Time, error) {
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalizes 31/02 into March; reject instead.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayBounds returns [00:00:00, 23:59:59.999] of t's calendar day in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfDay(t.In(loc))
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end
}

// MonthStart returns midnight on the first day of t's month in t's location.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// Key returns the YYYY-MM-DD key of t's calendar day in loc.
func Key(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(KeyLayout)
}

// Display formats t as DD/MM/YYYY in loc.
func Display(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DisplayLayout)
}
