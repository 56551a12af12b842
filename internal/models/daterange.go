package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the only accepted date format on the wire.
	DateLayout = "2006-01-02"

	// MaxRangeDays bounds the lookback window searched at the news provider.
	MaxRangeDays = 30

	// Lookback slider bounds used by the web form.
	MinLookbackDays = 1
	MaxLookbackDays = 7

	MinQueryLength = 2
)

// DateRange is a normalized search window. From <= To, both are at most
// today and the span is at most MaxRangeDays. Values are calendar dates at
// UTC midnight.
type DateRange struct {
	From time.Time
	To   time.Time
}

// FromString returns the start date as YYYY-MM-DD.
func (r DateRange) FromString() string { return r.From.Format(DateLayout) }

// ToString returns the end date as YYYY-MM-DD.
func (r DateRange) ToString() string { return r.To.Format(DateLayout) }

// Days returns the span of the range in whole days.
func (r DateRange) Days() int {
	return int(r.To.Sub(r.From).Hours() / 24)
}

// Contains reports whether t falls on a day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := dateOf(t)
	return !d.Before(r.From) && !d.After(r.To)
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.FromString(), r.ToString())
}

// NormalizeDateRange parses a raw (from, to) pair and coerces it into a
// valid DateRange. Out-of-order dates are swapped, future dates are clamped
// to today and a window wider than MaxRangeDays is shortened from the
// front. Each adjustment is reported as a note; only unparseable input is
// an error.
func NormalizeDateRange(rawFrom, rawTo string, now time.Time) (DateRange, []string, error) {
	from, err := ParseDate(rawFrom)
	if err != nil {
		return DateRange{}, nil, err
	}
	to, err := ParseDate(rawTo)
	if err != nil {
		return DateRange{}, nil, err
	}

	var notes []string
	today := dateOf(now)

	if from.After(to) {
		from, to = to, from
		notes = append(notes, "date_from was after date_to; swapped them")
	}

	if from.After(today) {
		from = today
		notes = append(notes, "date_from was in the future; clamped to today")
	}
	if to.After(today) {
		to = today
		notes = append(notes, "date_to was in the future; clamped to today")
	}

	if to.Sub(from) > MaxRangeDays*24*time.Hour {
		from = to.AddDate(0, 0, -MaxRangeDays)
		notes = append(notes, fmt.Sprintf("range exceeded %d days; shortened to end at date_to", MaxRangeDays))
	}

	return DateRange{From: from, To: to}, notes, nil
}

// LookbackRange builds the range [today-days, today] used by the web form.
// days is clamped to the slider bounds.
func LookbackRange(days int, now time.Time) DateRange {
	if days < MinLookbackDays {
		days = MinLookbackDays
	}
	if days > MaxLookbackDays {
		days = MaxLookbackDays
	}
	today := dateOf(now)
	return DateRange{From: today.AddDate(0, 0, -days), To: today}
}

// ParseDate parses a strict YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(DateLayout) {
		return time.Time{}, ErrInvalidDateFormat
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	return t, nil
}

// dateOf truncates t to its calendar date at UTC midnight, using t's own
// location to decide which day it is.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
