package reconcile

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATE - Civil calendar day (every computation here is day-granular)
// =============================================================================

// Date is a calendar day in UTC. The zero value is "no date".
type Date struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func FromTime(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses an ISO (YYYY-MM-DD) date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidAsOf, s)
	}
	return FromTime(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	*d = FromTime(t)
	return nil
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func DaysBetween(from, to Date) int { return int(to.Time.Sub(from.Time).Hours() / 24) }
func StartOfYear(year int) Date     { return NewDate(year, time.January, 1) }
func EndOfYear(year int) Date       { return NewDate(year, time.December, 31) }
func EndOfMonth(year int, month time.Month) Date {
	return Date{Time: time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)}
}

// =============================================================================
// ACTIVITY CALENDAR - Month names and week tokens of the tracking sheet
// =============================================================================

// MonthNames lists the tracking sheet's month spellings in calendar order.
var MonthNames = []string{
	"Jan", "Feb", "Mar", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var monthByName = func() map[string]time.Month {
	m := make(map[string]time.Month, len(MonthNames))
	for i, name := range MonthNames {
		m[name] = time.Month(i + 1)
	}
	return m
}()

// WeekStartDay maps a week token to the first day of that week in its month.
var WeekStartDay = map[string]int{
	"1w": 1, "2w": 8, "3w": 15, "4w": 22, "5w": 29,
}

// MonthNumber resolves a tracking-sheet month name.
func MonthNumber(name string) (time.Month, bool) {
	m, ok := monthByName[strings.TrimSpace(name)]
	return m, ok
}

// MonthName is the tracking-sheet spelling of m.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return MonthNames[m-1]
}

// MonthEnd resolves a month name to the last day of that month in year.
func MonthEnd(year int, name string) (Date, error) {
	m, ok := MonthNumber(name)
	if !ok {
		return Date{}, &UnknownMonthError{Name: name}
	}
	return EndOfMonth(year, m), nil
}

// ActivityDate derives the calendar date of a logged activity. It reports
// false when the month or week token is unknown or the week starts past the
// end of the month (5w in February).
func ActivityDate(year int, month, week string) (Date, bool) {
	m, ok := MonthNumber(month)
	if !ok {
		return Date{}, false
	}
	day, ok := WeekStartDay[strings.TrimSpace(week)]
	if !ok {
		return Date{}, false
	}
	if day > EndOfMonth(year, m).Day() {
		return Date{}, false
	}
	return NewDate(year, m, day), true
}
