package crawler

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layouts every board is given a chance to match before the shared heuristics.
var defaultLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
}

var (
	leadingDigits = regexp.MustCompile(`^(\d+)`)
	clockRe       = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	monthDayRe    = regexp.MustCompile(`^(\d{1,2})[-./](\d{1,2})$`)
	fullDateRe    = regexp.MustCompile(`^(\d{4})[-./](\d{1,2})[-./](\d{1,2})$`)
)

// ParsePostTime turns a board's posted-at text into a timestamp. Site-specific
// layouts are tried first, then Korean relative phrases, then bare clock
// times, then year-less dates, then full dates. The parser never fails:
// unrecognized input falls through to now, an accepted approximation since
// exact publish time is secondary to relative ordering inside the retention
// window.
func ParsePostTime(text string, layouts []string, now time.Time) time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return now
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, text, now.Location()); err == nil {
			return normalizeYear(t, now)
		}
	}
	for _, layout := range defaultLayouts {
		if t, err := time.ParseInLocation(layout, text, now.Location()); err == nil {
			return t
		}
	}

	// "방금 전", "30초 전"
	if strings.Contains(text, "방금") || strings.Contains(text, "초 전") {
		return now
	}
	if strings.Contains(text, "분 전") {
		return now.Add(-time.Duration(leadingInt(text)) * time.Minute)
	}
	if strings.Contains(text, "시간 전") {
		return now.Add(-time.Duration(leadingInt(text)) * time.Hour)
	}

	// "14:05" or "14:05:33" means today at that time
	if m := clockRe.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		sec := 0
		if m[3] != "" {
			sec, _ = strconv.Atoi(m[3])
		}
		if hour < 24 && min < 60 && sec < 60 {
			return time.Date(now.Year(), now.Month(), now.Day(), hour, min, sec, 0, now.Location())
		}
	}

	// "02-19", "02.19", "02/19" means the current year, rolled back across the
	// year boundary if that lands in the future
	if m := monthDayRe.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if validMonthDay(month, day) {
			t := time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, now.Location())
			if t.After(now) {
				t = t.AddDate(-1, 0, 0)
			}
			return t
		}
	}

	// "2026-02-19", "2026.02.19", "2026/02/19"
	if m := fullDateRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if validMonthDay(month, day) {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
		}
	}

	return now
}

// normalizeYear handles site layouts without a year component, which
// time.Parse maps to year 0.
func normalizeYear(t, now time.Time) time.Time {
	if t.Year() != 0 {
		return t
	}
	t = time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, now.Location())
	if t.After(now) {
		t = t.AddDate(-1, 0, 0)
	}
	return t
}

func leadingInt(text string) int {
	m := leadingDigits.FindString(strings.TrimSpace(text))
	if m == "" {
		return 0
	}
	n, _ := strconv.Atoi(m)
	return n
}

func validMonthDay(month, day int) bool {
	return month >= 1 && month <= 12 && day >= 1 && day <= 31
}
