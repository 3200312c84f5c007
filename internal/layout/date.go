package layout

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	reDate    = regexp.MustCompile(`(\d{1,2})\s*[-/.]\s*(\d{1,2})\s*[-/.]\s*(\d{4}|\d{2})`)
	reISODate = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)

	// whole stitched window: one date and nothing but punctuation around it
	reDateWindow = regexp.MustCompile(`^[^\pL\d]*(\d{1,2})\s*[-/.]\s*(\d{1,2})\s*[-/.]\s*(\d{4}|\d{2})[^\pL\d]*$`)
)

// NormalizeDate turns day/month/year parts into YYYY-MM-DD, rejecting
// impossible calendar dates. Two-digit years are read as 20yy.
func NormalizeDate(day, month, year string) (string, bool) {
	d, err1 := strconv.Atoi(day)
	m, err2 := strconv.Atoi(month)
	y, err3 := strconv.Atoi(year)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}
	if len(year) == 2 {
		y += 2000
	}
	if m < 1 || m > 12 || d < 1 || d > 31 || y < 1900 || y > 2200 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), true
}

// IsISODate reports whether s is a valid YYYY-MM-DD date.
func IsISODate(s string) bool {
	if len(s) != 10 {
		return false
	}
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

// FindDate returns the first valid date in s as YYYY-MM-DD, plus its byte span.
// A match glued to further digits on either side is not a date.
func FindDate(s string) (string, []int, bool) {
	if iso, span, ok := scanDate(reDate, s, 1, 2, 3); ok {
		return iso, span, true
	}
	return scanDate(reISODate, s, 3, 2, 1)
}

func scanDate(re *regexp.Regexp, s string, day, month, year int) (string, []int, bool) {
	for off := 0; off < len(s); {
		m := re.FindStringSubmatchIndex(s[off:])
		if m == nil {
			break
		}
		start, end := off+m[0], off+m[1]
		if (start == 0 || !isDigit(s[start-1])) && (end == len(s) || !isDigit(s[end])) {
			part := func(g int) string { return s[off+m[2*g] : off+m[2*g+1]] }
			if iso, ok := NormalizeDate(part(day), part(month), part(year)); ok {
				return iso, []int{start, end}, true
			}
		}
		off = start + 1
	}
	return "", nil, false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// ToISO normalizes a dd/mm/yyyy (or already ISO) string; empty when unparseable.
func ToISO(s string) string {
	if IsISODate(s) {
		return s
	}
	iso, _, ok := FindDate(s)
	if !ok {
		return ""
	}
	return iso
}

func matchDateWindow(s string) (string, bool) {
	m := reDateWindow.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return NormalizeDate(m[1], m[2], m[3])
}
