// Package dateparse turns the date shorthands accepted on the command line
// into ISO 8601 (YYYY-MM-DD) dates.
package dateparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// layouts are the absolute formats accepted, tried in order. Slash dates
// are day first.
var layouts = []string{isoDate, "02/01/2006", "2/1/2006", "02-01-2006"}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseDate parses input relative to the current time.
func ParseDate(input string) (string, error) {
	return ParseDateFrom(input, time.Now())
}

// ParseDateFrom parses input relative to now. Accepted forms:
//
//	2024-06-01, 01/06/2024   absolute, day first
//	today, tomorrow
//	+3d, +2w, +1m            days, weeks or months ahead
//	fri, friday              next occurrence, never today
func ParseDateFrom(input string, now time.Time) (string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return "", fmt.Errorf("empty date")
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate), nil
		}
	}

	switch s {
	case "today":
		return now.Format(isoDate), nil
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format(isoDate), nil
	}

	if day, ok := weekdays[s]; ok {
		ahead := (int(day) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return now.AddDate(0, 0, ahead).Format(isoDate), nil
	}

	if strings.HasPrefix(s, "+") && len(s) >= 3 {
		n, err := strconv.Atoi(s[1 : len(s)-1])
		if err != nil || n < 0 {
			return "", fmt.Errorf("bad offset in %q", input)
		}
		switch s[len(s)-1] {
		case 'd':
			return now.AddDate(0, 0, n).Format(isoDate), nil
		case 'w':
			return now.AddDate(0, 0, 7*n).Format(isoDate), nil
		case 'm':
			return now.AddDate(0, n, 0).Format(isoDate), nil
		}
		return "", fmt.Errorf("unknown unit in %q (use d, w or m)", input)
	}

	return "", fmt.Errorf("unrecognized date %q", input)
}

// NotBefore parses input like ParseDateFrom and rejects dates earlier than
// now's calendar day.
func NotBefore(input string, now time.Time) (string, error) {
	d, err := ParseDateFrom(input, now)
	if err != nil {
		return "", err
	}
	if d < now.Format(isoDate) {
		return "", fmt.Errorf("%s is in the past", d)
	}
	return d, nil
}
