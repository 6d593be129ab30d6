package domain

import (
	"fmt"
	"strconv"
	"time"
)

// WeekKey is an ISO-8601 (year, week) pair. Canonical text form: "YYYY-Www".
type WeekKey struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// DeriveWeekKey maps a calendar date to its ISO-8601 week. The date's own
// calendar day is used, whatever its location; the time of day is ignored.
func DeriveWeekKey(t time.Time) WeekKey {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	// ISO weekday: Monday=1 .. Sunday=7
	wd := int(day.Weekday())
	if wd == 0 {
		wd = 7
	}
	thursday := day.AddDate(0, 0, 4-wd)
	yearStart := time.Date(thursday.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	dayOfYear := int(thursday.Sub(yearStart).Hours()/24) + 1

	return WeekKey{Year: thursday.Year(), Week: (dayOfYear + 6) / 7}
}

func (w WeekKey) String() string {
	return fmt.Sprintf("%04d-W%02d", w.Year, w.Week)
}

func (w WeekKey) Valid() bool {
	return w.Year > 0 && w.Year <= 9999 && w.Week >= 1 && w.Week <= 53
}

// ParseWeekKey parses the canonical "YYYY-Www" form.
func ParseWeekKey(s string) (WeekKey, error) {
	if len(s) != 8 || s[4] != '-' || s[5] != 'W' {
		return WeekKey{}, NewValidationError(Violation{Field: "weekKey", Rule: "format", Message: fmt.Sprintf("malformed week key %q, expected YYYY-Www", s)})
	}
	y, err1 := strconv.Atoi(s[:4])
	w, err2 := strconv.Atoi(s[6:])
	wk := WeekKey{Year: y, Week: w}
	if err1 != nil || err2 != nil || !wk.Valid() {
		return WeekKey{}, NewValidationError(Violation{Field: "weekKey", Rule: "format", Message: fmt.Sprintf("malformed week key %q, expected YYYY-Www", s)})
	}
	return wk, nil
}

func (w WeekKey) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

func (w *WeekKey) UnmarshalText(b []byte) error {
	k, err := ParseWeekKey(string(b))
	if err != nil {
		return err
	}
	*w = k
	return nil
}

// Before orders week keys chronologically.
func (w WeekKey) Before(o WeekKey) bool {
	if w.Year != o.Year {
		return w.Year < o.Year
	}
	return w.Week < o.Week
}
