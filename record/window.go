package record

import (
	"fmt"
	"strconv"
	"time"
)

// Position describes where a timestamp falls relative to a Window.
type Position int

const (
	// Inside means the timestamp is within the window.
	Inside Position = iota
	// Past means the timestamp is older than the window's earliest bound.
	Past
	// Future means the timestamp is at or after the window's latest bound.
	Future
)

func (p Position) String() string {
	switch p {
	case Inside:
		return "inside"
	case Past:
		return "past"
	case Future:
		return "future"
	}
	return "unknown"
}

// Window bounds the timestamps a collection run accepts. From is inclusive
// and Until is exclusive. A zero bound is unbounded on that side.
type Window struct {
	From  time.Time
	Until time.Time
}

// YearWindow returns the window covering the whole of the years earliest
// through latest.
func YearWindow(earliest, latest int) Window {
	return Window{
		From:  time.Date(earliest, time.January, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(latest+1, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Classify reports where t falls relative to the window.
func (w Window) Classify(t time.Time) Position {
	if !w.From.IsZero() && t.Before(w.From) {
		return Past
	}
	if !w.Until.IsZero() && !t.Before(w.Until) {
		return Future
	}
	return Inside
}

// String returns a human readable form of the window.
func (w Window) String() string {
	from, until := "-inf", "+inf"
	if !w.From.IsZero() {
		from = w.From.Format(DateLayout)
	}
	if !w.Until.IsZero() {
		until = w.Until.Format(DateLayout)
	}
	return fmt.Sprintf("[%s, %s)", from, until)
}

// ParseWindow builds a window from two bounds, each either a year ("2018")
// or a date ("2018-03-01"). The upper bound covers the whole year or day it
// names. Empty bounds are unbounded.
func ParseWindow(from, to string) (Window, error) {
	var w Window

	if from != "" {
		start, _, err := parseBound(from)
		if err != nil {
			return Window{}, fmt.Errorf("invalid window start: %w", err)
		}
		w.From = start
	}

	if to != "" {
		_, end, err := parseBound(to)
		if err != nil {
			return Window{}, fmt.Errorf("invalid window end: %w", err)
		}
		w.Until = end
	}

	if !w.From.IsZero() && !w.Until.IsZero() && !w.From.Before(w.Until) {
		return Window{}, fmt.Errorf("window start %s is not before end %s", from, to)
	}

	return w, nil
}

// parseBound returns the start of the period a bound names and the start of
// the following period.
func parseBound(s string) (time.Time, time.Time, error) {
	if len(s) == 4 {
		year, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%q is not a year", s)
		}
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0), nil
	}

	day, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%q is not a year or YYYY-MM-DD date", s)
	}
	return day, day.AddDate(0, 0, 1), nil
}
