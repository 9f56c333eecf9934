package debtnote

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/capstruct/internal/htmltable"
)

var months = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

var (
	usDateRe    = regexp.MustCompile(`^([A-Za-z]+)\s+(\d{1,2}),\s*(\d{4})$`)
	slashDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	dueDateRe   = regexp.MustCompile(`(?i)\bdue\s+([A-Za-z]+\s+\d{1,2},\s*\d{4})\b`)
)

// parseUSDate reads "March 9, 2026" or "03/09/2026". Returns the zero time
// and false for anything else.
func parseUSDate(text string) (time.Time, bool) {
	t := htmltable.CleanSpace(text)
	if t == "" {
		return time.Time{}, false
	}

	if m := slashDateRe.FindStringSubmatch(t); m != nil {
		mm, _ := strconv.Atoi(m[1])
		dd, _ := strconv.Atoi(m[2])
		yy, _ := strconv.Atoi(m[3])
		return civilDate(yy, time.Month(mm), dd)
	}

	if m := usDateRe.FindStringSubmatch(t); m != nil {
		mon, ok := months[strings.ToLower(m[1])]
		if !ok {
			return time.Time{}, false
		}
		dd, _ := strconv.Atoi(m[2])
		yy, _ := strconv.Atoi(m[3])
		return civilDate(yy, mon, dd)
	}

	return time.Time{}, false
}

// civilDate rejects overflowing day-of-month values such as February 30,
// which time.Date would silently normalize.
func civilDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || d.Month() != month {
		return time.Time{}, false
	}
	return d, true
}

// dueDateTextFromName extracts "March 9, 2026" from a name like
// "5.90% Senior Notes due March 9, 2026".
func dueDateTextFromName(name string) string {
	m := dueDateRe.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return htmltable.CleanSpace(m[1])
}

// maturityYearFromName derives the maturity year from a "due <date>" name.
func maturityYearFromName(name string) (int, bool) {
	due := dueDateTextFromName(name)
	if due == "" {
		return 0, false
	}
	d, ok := parseUSDate(due)
	if !ok {
		return 0, false
	}
	return d.Year(), true
}
