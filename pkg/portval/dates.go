package portval

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// DateFormat is the canonical ISO-8601 layout used for storage and output.
const DateFormat = "2006-01-02"

// dateLayouts lists accepted input layouts, tried in order. Day-first
// layouts take the day and month with or without a leading zero.
var dateLayouts = []string{
	DateFormat,
	"2-1-2006",
	"2/1/2006",
}

// ParseDate normalizes an ISO or day-first (hyphen or slash) date.
func ParseDate(value string) (civil.Date, error) {
	s := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, Errorf(ErrCodeInvalidInput, "invalid date %q", value)
}

// MustParseDate is like ParseDate but panics on error.
func MustParseDate(value string) civil.Date {
	d, err := ParseDate(value)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// DaysInRange returns every calendar day in [start, end], ascending.
// It returns nil when start is after end.
func DaysInRange(start, end civil.Date) []civil.Date {
	if start.After(end) {
		return nil
	}
	days := make([]civil.Date, 0, end.DaysSince(start)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// scanDate parses a stored date column. The driver hands back TEXT as string,
// but tolerate time values too.
func scanDate(src any) (civil.Date, error) {
	switch v := src.(type) {
	case string:
		return ParseDate(v)
	case []byte:
		return ParseDate(string(v))
	case time.Time:
		return civil.DateOf(v.UTC()), nil
	}
	return civil.Date{}, Errorf(ErrCodeInternal, "unsupported date value %T", src)
}

// dateColumn adapts a stored date column to sql.Scanner.
type dateColumn struct {
	civil.Date
}

func (d *dateColumn) Scan(src any) error {
	v, err := scanDate(src)
	if err != nil {
		return err
	}
	d.Date = v
	return nil
}
