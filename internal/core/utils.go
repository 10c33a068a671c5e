package core

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	mdRegex  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})$`)
	relRegex = regexp.MustCompile(`^([dwmy])-(\d+)$`)
)

// ProgressPrint writes msg to stderr unless quiet is true.
func ProgressPrint(msg string, quiet bool) {
	if !quiet {
		fmt.Fprintln(os.Stderr, msg)
	}
}

// ParseDate parses a YYYY-MM-DD string into a time.Time (midnight UTC).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(APIDateFmt, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date '%s' (expected YYYY-MM-DD)", s)
	}
	return t, nil
}

// ParseDateSpec returns a concrete date for flexible spec strings, relative to now.
// Supports:
// 1. Exact YYYY-MM-DD
// 2. M/D or MM/DD (most recent past occurrence)
// 3. Relative forms like d-7 (days), w-2 (weeks), m-3 (months), y-1 (years)
// 4. today, yesterday
func ParseDateSpec(spec string, now time.Time) (time.Time, error) {
	today := DateOnly(now)

	switch strings.ToLower(spec) {
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	if t, err := time.Parse(APIDateFmt, spec); err == nil {
		return t, nil
	}

	if matches := mdRegex.FindStringSubmatch(spec); matches != nil {
		month, _ := strconv.Atoi(matches[1])
		day, _ := strconv.Atoi(matches[2])
		target := time.Date(today.Year(), time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if target.After(today) {
			target = time.Date(today.Year()-1, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		}
		return target, nil
	}

	if matches := relRegex.FindStringSubmatch(strings.ToLower(spec)); matches != nil {
		num, _ := strconv.Atoi(matches[2])
		switch matches[1] {
		case "d":
			return today.AddDate(0, 0, -num), nil
		case "w":
			return today.AddDate(0, 0, -num*7), nil
		case "m":
			return today.AddDate(0, -num, 0), nil
		case "y":
			return today.AddDate(-num, 0, 0), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date specification: '%s'", spec)
}

// NormalizeDateSpec resolves a flexible date spec to YYYY-MM-DD.
// An empty spec stays empty.
func NormalizeDateSpec(spec string, now time.Time) (string, error) {
	if spec == "" {
		return "", nil
	}
	t, err := ParseDateSpec(spec, now)
	if err != nil {
		return "", err
	}
	return FormatDate(t), nil
}

// GetTimeRange returns the first and last day of a named period.
// Supported periods: today, yesterday, this-week, last-week, this-month,
// last-month, this-quarter, last-quarter.
func GetTimeRange(period string, now time.Time) (time.Time, time.Time, error) {
	today := DateOnly(now)

	mondayOf := func(t time.Time) time.Time {
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		return t.AddDate(0, 0, -(weekday - 1))
	}

	switch period {
	case "today":
		return today, today, nil

	case "yesterday":
		d := today.AddDate(0, 0, -1)
		return d, d, nil

	case "this-week":
		start := mondayOf(today)
		return start, start.AddDate(0, 0, 6), nil

	case "last-week":
		start := mondayOf(today).AddDate(0, 0, -7)
		return start, start.AddDate(0, 0, 6), nil

	case "this-month":
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first, first.AddDate(0, 1, -1), nil

	case "last-month":
		first := time.Date(today.Year(), today.Month()-1, 1, 0, 0, 0, 0, time.UTC)
		return first, first.AddDate(0, 1, -1), nil

	case "this-quarter":
		q := (int(today.Month()) - 1) / 3
		first := time.Date(today.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
		return first, first.AddDate(0, 3, -1), nil

	case "last-quarter":
		q := (int(today.Month()) - 1) / 3
		first := time.Date(today.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -3, 0)
		return first, first.AddDate(0, 3, -1), nil
	}

	return time.Time{}, time.Time{}, fmt.Errorf("unknown period: %s", period)
}

// DateOnly returns a time.Time with only the date portion (midnight UTC).
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate formats a time.Time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(APIDateFmt)
}

// Today returns the UTC calendar day of now as YYYY-MM-DD.
func Today(now time.Time) string {
	return FormatDate(DateOnly(now))
}

// ShiftDate adds days to a YYYY-MM-DD string.
func ShiftDate(s string, days int) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return FormatDate(t.AddDate(0, 0, days)), nil
}

// UnixDate formats a unix timestamp (seconds) as a UTC YYYY-MM-DD date.
// Zero yields an empty string.
func UnixDate(ts int64) string {
	if ts == 0 {
		return ""
	}
	return FormatDate(time.Unix(ts, 0).UTC())
}

// ResolveRange turns CLI-style start/end specs and an optional named period
// into YYYY-MM-DD bounds. A period wins over explicit dates; empty specs
// stay empty.
func ResolveRange(start, end, period string, now time.Time) (string, string, error) {
	if period != "" {
		s, e, err := GetTimeRange(period, now)
		if err != nil {
			return "", "", err
		}
		return FormatDate(s), FormatDate(e), nil
	}
	s, err := NormalizeDateSpec(start, now)
	if err != nil {
		return "", "", fmt.Errorf("start: %w", err)
	}
	e, err := NormalizeDateSpec(end, now)
	if err != nil {
		return "", "", fmt.Errorf("end: %w", err)
	}
	return s, e, nil
}
