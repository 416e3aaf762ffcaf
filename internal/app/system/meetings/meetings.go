// Package meetings decides which calendar days a group may hold a recovery
// session on.
//
// A group configures up to two days of the month. A candidate date is
// allowed when its day of month matches one of them. Groups with no
// configured days are unconstrained.
package meetings

import (
	"fmt"
	"sort"
	"time"

	"github.com/dalemusser/shgledger/internal/app/system/dateparse"
	"github.com/dalemusser/shgledger/internal/domain/models"
)

// Schedule is a group's configured meeting days (nil = not configured).
type Schedule struct {
	Day1 *int
	Day2 *int
}

// ForGroup returns the schedule configured on g.
func ForGroup(g models.Group) Schedule {
	return Schedule{Day1: g.MeetingDay1, Day2: g.MeetingDay2}
}

// IneligibleDateError reports a date that is not a meeting day. Next is the
// suggested next meeting date.
type IneligibleDateError struct {
	Date time.Time
	Next time.Time
}

func (e *IneligibleDateError) Error() string {
	loc := e.Date.Location()
	if e.Next.IsZero() {
		return fmt.Sprintf("%s is not a meeting day for this group", dateparse.Display(e.Date, loc))
	}
	return fmt.Sprintf("%s is not a meeting day for this group; next meeting date is %s",
		dateparse.Display(e.Date, loc), dateparse.Display(e.Next, loc))
}

// days returns the distinct valid meeting days; Day1 == Day2 is one day.
func (s Schedule) days() []int {
	var out []int
	for _, d := range []*int{s.Day1, s.Day2} {
		if d == nil || *d < 1 || *d > 31 {
			continue
		}
		if len(out) == 1 && out[0] == *d {
			continue
		}
		out = append(out, *d)
	}
	return out
}

// Configured reports whether at least one meeting day is set.
func (s Schedule) Configured() bool {
	return len(s.days()) > 0
}

// MeetingsPerMonth returns 2 when two different days are configured, otherwise 1.
func (s Schedule) MeetingsPerMonth() int {
	if len(s.days()) == 2 {
		return 2
	}
	return 1
}

// Allows reports whether date falls on a configured meeting day.
func (s Schedule) Allows(date time.Time) bool {
	days := s.days()
	if len(days) == 0 {
		return true
	}
	dom := date.Day()
	for _, d := range days {
		if d == dom {
			return true
		}
	}
	return false
}

// NextEligible returns the first meeting date on or after today among the
// configured days realized in today's month and the next month. Days that
// do not exist in a month (31 in a 30-day month) have no occurrence there.
// When nothing qualifies it falls back to the earliest computed date. The
// second result is false when no meeting day is configured.
func (s Schedule) NextEligible(today time.Time) (time.Time, bool) {
	days := s.days()
	if len(days) == 0 {
		return time.Time{}, false
	}
	today = dateparse.StartOfDay(today)
	loc := today.Location()

	var candidates []time.Time
	first := dateparse.MonthStart(today)
	for _, month := range []time.Time{first, first.AddDate(0, 1, 0)} {
		for _, d := range days {
			c := time.Date(month.Year(), month.Month(), d, 0, 0, 0, 0, loc)
			if c.Month() != month.Month() {
				continue
			}
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return time.Time{}, false
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })

	for _, c := range candidates {
		if !c.Before(today) {
			return c, true
		}
	}
	return candidates[0], true
}

// Check returns nil when date is allowed, otherwise an *IneligibleDateError
// carrying the next eligible date relative to today.
func (s Schedule) Check(date, today time.Time) error {
	if s.Allows(date) {
		return nil
	}
	next, _ := s.NextEligible(today)
	return &IneligibleDateError{Date: date, Next: next}
}
