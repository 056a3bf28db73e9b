package coerce

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/sambeau/tabula/pkg/column"
)

// ParseLeadingInt parses the longest decimal integer prefix of s after
// leading whitespace. A string with no digits yields 0.
func ParseLeadingInt(s string) int64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	// ParseInt clamps to the int64 range on overflow.
	i, _ := strconv.ParseInt(s[:end], 10, 64)
	return i
}

// ParseLeadingFloat parses the longest decimal floating point prefix of s
// after leading whitespace, including an optional exponent and "Infinity".
// A string with no number yields 0.
func ParseLeadingFloat(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	end := 0
	neg := false
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		neg = s[end] == '-'
		end++
	}
	if strings.HasPrefix(s[end:], "Infinity") {
		if neg {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}

	mantissa := 0
	for end < len(s) && isDigit(s[end]) {
		end++
		mantissa++
	}
	if end < len(s) && s[end] == '.' {
		frac := end + 1
		for frac < len(s) && isDigit(s[frac]) {
			frac++
		}
		if frac > end+1 {
			mantissa += frac - end - 1
			end = frac
		}
	}
	if mantissa == 0 {
		return 0
	}

	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '+' || s[exp] == '-') {
			exp++
		}
		start := exp
		for exp < len(s) && isDigit(s[exp]) {
			exp++
		}
		if exp > start {
			end = exp
		}
	}

	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		// Out of range values come back as ±Inf with a range error.
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return f
		}
		return 0
	}
	return f
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

var sqlLayouts = []string{
	"2006-01-02 15:04:05 Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"15:04:05",
}

// ParseDate parses s in the named format. Strings without a zone are read
// in loc; the result is always expressed in loc.
func ParseDate(format column.DateFormat, s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}

	switch format {
	case column.DateISO:
		return parseLayouts(isoLayouts, s, loc)
	case column.DateSQL:
		return parseLayouts(sqlLayouts, s, loc)
	case column.DateRFC2822:
		t, err := mail.ParseDate(s)
		if err != nil {
			return time.Time{}, err
		}
		return t.In(loc), nil
	case column.DateEpochMillis:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, err
		}
		return FromMillis(f, loc), nil
	case column.DateEpochSeconds:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, err
		}
		return FromMillis(f*1000, loc), nil
	case column.DateAuto:
		t, err := dateparse.ParseIn(s, loc, dateparse.PreferMonthFirst(true))
		if err != nil {
			return time.Time{}, err
		}
		return t.In(loc), nil
	case column.DateHTTP, column.DateUnset:
		t, err := http.ParseTime(s)
		if err != nil {
			return time.Time{}, err
		}
		return t.In(loc), nil
	}
	return time.Time{}, fmt.Errorf("unsupported date format %s", format)
}

func parseLayouts(layouts []string, s string, loc *time.Location) (time.Time, error) {
	var firstErr error
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t.In(loc), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
