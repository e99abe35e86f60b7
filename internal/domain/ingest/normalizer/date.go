package normalizer

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
)

// Date formats tried in order. Day-first layouts precede month-first ones, so
// M/D/Y only wins when the day-first reading is impossible (day > 12).
var dateFormats = []string{
	// ISO
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",

	// D/M/Y
	"02/01/2006",
	"2/1/2006",
	"02/01/06",
	"2/1/06",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",

	// D-M-Y
	"02-01-2006",
	"2-1-2006",
	"02-01-06",
	"02.01.2006",
	"02-01-2006 15:04",

	// D Mon Y
	"02 Jan 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"02 Jan 06",
	"2 Jan 06",
	"02-Jan-06",
	"2-Jan-06",
	"02/Jan/2006",
	"02 January 2006",
	"2 January 2006",
	"02Jan2006",
	"Jan 02, 2006",
	"Jan 2, 2006",
	"January 2, 2006",

	// M/D/Y
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"01/02/06",
}

// dateTokenPattern matches a date token at the start of a line.
var dateTokenPattern = regexp.MustCompile(`(?i)^\s*(\d{4}[-/]\d{1,2}[-/]\d{1,2}|\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}|\d{1,2}[\s\-/]?(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*[\s\-/,]*\d{2,4})\b`)

// ParseFlexibleDate attempts to parse a date using the preferred layout first
// (in DD-MM-YYYY notation) and then every known format.
func ParseFlexibleDate(raw string, preferredFormat string, loc *time.Location) (time.Time, error) {
	raw = strings.Join(strings.Fields(raw), " ")
	if raw == "" {
		return time.Time{}, ErrInvalidDate
	}

	if loc == nil {
		loc = time.UTC
	}

	if preferredFormat != "" {
		goFormat := convertDateFormat(preferredFormat)
		if t, err := time.ParseInLocation(goFormat, raw, loc); err == nil {
			return t, nil
		}
	}

	for _, format := range dateFormats {
		if t, err := time.ParseInLocation(format, raw, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, ErrInvalidDate
}

// NormalizeDate parses raw with the known formats and renders it as YYYY-MM-DD.
func NormalizeDate(raw string) (string, error) {
	t, err := ParseFlexibleDate(raw, "", time.UTC)
	if err != nil {
		return "", err
	}
	return t.Format(model.DateLayout), nil
}

// LeadingDate returns the date token a line starts with, or "".
func LeadingDate(line string) string {
	m := dateTokenPattern.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// LooksLikeDate reports whether s parses as a date.
func LooksLikeDate(s string) bool {
	_, err := ParseFlexibleDate(s, "", time.UTC)
	return err == nil
}

// convertDateFormat converts user-friendly format strings to Go format
// e.g., "DD-MM-YYYY" -> "02-01-2006"
func convertDateFormat(format string) string {
	replacer := strings.NewReplacer(
		"YYYY", "2006",
		"YY", "06",
		"MMM", "Jan",
		"MM", "01",
		"DD", "02",
		"HH", "15",
		"mm", "04",
		"ss", "05",
	)
	return replacer.Replace(format)
}

// DetectDateFormat guesses the layout of a column from sample values.
// Day-first wins unless some sample has a middle component above 12.
func DetectDateFormat(samples []string) string {
	isoPattern := regexp.MustCompile(`^\d{4}[-/]\d{1,2}[-/]\d{1,2}$`)
	numericPattern := regexp.MustCompile(`^(\d{1,2})([-/.])(\d{1,2})[-/.]\d{2,4}$`)

	sep := ""
	monthFirst := false
	for _, raw := range samples {
		sample := strings.TrimSpace(raw)
		if sample == "" {
			continue
		}
		if isoPattern.MatchString(sample) {
			if strings.Contains(sample, "/") {
				return "YYYY/MM/DD"
			}
			return "YYYY-MM-DD"
		}
		m := numericPattern.FindStringSubmatch(sample)
		if m == nil {
			continue
		}
		sep = m[2]
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[3])
		if first > 12 {
			monthFirst = false
			break
		}
		if second > 12 {
			monthFirst = true
		}
	}

	if sep == "" {
		return ""
	}
	if monthFirst {
		return "MM" + sep + "DD" + sep + "YYYY"
	}
	return "DD" + sep + "MM" + sep + "YYYY"
}
