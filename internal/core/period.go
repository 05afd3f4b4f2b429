package core

import (
	"regexp"
	"time"
)

// Period is a calendar-month bucket in yyyy-MM form, e.g. "2026-02".
type Period string

const periodLayout = "2006-01"

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ParsePeriod validates s and returns it as a Period.
func ParsePeriod(s string) (Period, error) {
	if !periodPattern.MatchString(s) {
		return "", Invalidf("invalid period %q, expected yyyy-MM", s)
	}
	return Period(s), nil
}

// PeriodOf derives the period a date falls into.
func PeriodOf(t time.Time) Period {
	return Period(t.Format(periodLayout))
}

func (p Period) String() string { return string(p) }
