package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a date value cannot be interpreted.
var ErrInvalidDate = errors.New("invalid date")

// DatePrecision records how much of a date is actually known.
type DatePrecision int

// Date precisions, coarsest first.
const (
	PrecisionYear DatePrecision = iota + 1
	PrecisionMonth
	PrecisionDay
)

func (p DatePrecision) String() string {
	switch p {
	case PrecisionYear:
		return "year"
	case PrecisionMonth:
		return "month"
	case PrecisionDay:
		return "day"
	default:
		return "unknown"
	}
}

// Date is a calendar date that may only be known to year or month resolution.
// Month and Day are zero when the precision does not cover them.
type Date struct {
	Year      int
	Month     int
	Day       int
	Precision DatePrecision
}

type dateLayout struct {
	layout    string
	precision DatePrecision
}

var dateLayouts = []dateLayout{
	{time.RFC3339, PrecisionDay},
	{"2006-01-02T15:04:05", PrecisionDay},
	{"2006-01-02 15:04:05", PrecisionDay},
	{"2006-01-02", PrecisionDay},
	{"2006/01/02", PrecisionDay},
	{"2006.01.02", PrecisionDay},
	{"2006-1-2", PrecisionDay},
	{"20060102", PrecisionDay},
	{"January 2, 2006", PrecisionDay},
	{"Jan 2, 2006", PrecisionDay},
	{"2 January 2006", PrecisionDay},
	{"2 Jan 2006", PrecisionDay},
	{"2006-01", PrecisionMonth},
	{"2006/01", PrecisionMonth},
	{"January 2006", PrecisionMonth},
	{"Jan 2006", PrecisionMonth},
	{"2006", PrecisionYear},
}

// ParseDate interprets s using the most specific layout that matches.
func ParseDate(s string) (Date, error) {
	value := strings.TrimSpace(s)
	for _, candidate := range dateLayouts {
		t, err := time.Parse(candidate.layout, value)
		if err != nil {
			continue
		}
		return dateFromTime(t, candidate.precision), nil
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// NewDate builds a day-precision date from a time.
func NewDate(t time.Time) Date {
	return dateFromTime(t, PrecisionDay)
}

func dateFromTime(t time.Time, precision DatePrecision) Date {
	d := Date{Year: t.Year(), Precision: precision}
	if precision >= PrecisionMonth {
		d.Month = int(t.Month())
	}
	if precision >= PrecisionDay {
		d.Day = t.Day()
	}
	return d
}

// Covers reports whether the date is known at least to the given precision.
func (d Date) Covers(precision DatePrecision) bool {
	return d.Precision >= precision
}

// String formats the date at its own precision.
func (d Date) String() string {
	switch d.Precision {
	case PrecisionDay:
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	case PrecisionMonth:
		return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	default:
		return fmt.Sprintf("%04d", d.Year)
	}
}
