// Package daterange implements half-open [CheckIn, CheckOut) stay ranges.
//
// A checkout date equal to another stay's check-in date is not an overlap, so
// back-to-back stays are legal.
package daterange

import (
	"errors"
	"time"
)

var ErrInvalidRange = errors.New("check-out must be after check-in")

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share any instant.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

type Range struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// New truncates both ends to calendar days and validates the result.
func New(checkIn, checkOut time.Time) (Range, error) {
	r := Range{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	return r, r.Validate()
}

func (r Range) Validate() error {
	if !r.CheckOut.After(r.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

func (r Range) Overlaps(o Range) bool {
	return Overlaps(r.CheckIn, r.CheckOut, o.CheckIn, o.CheckOut)
}

func (r Range) Equal(o Range) bool {
	return r.CheckIn.Equal(o.CheckIn) && r.CheckOut.Equal(o.CheckOut)
}

// Nights is the number of nights between check-in and check-out.
func (r Range) Nights() int {
	return int(Day(r.CheckOut).Sub(Day(r.CheckIn)).Hours() / 24)
}

// Contains reports whether the night starting on day is part of the stay.
func (r Range) Contains(day time.Time) bool {
	d := Day(day)
	return !d.Before(r.CheckIn) && d.Before(r.CheckOut)
}

// MonthBounds returns the half-open range covering every night of the month.
func MonthBounds(year int, month time.Month) Range {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Range{CheckIn: start, CheckOut: start.AddDate(0, 1, 0)}
}

// Day drops the time-of-day, keeping the calendar date as seen in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
