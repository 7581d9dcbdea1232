package domain

import "time"

// Interval is a half-open time window [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls within [Start, End).
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Before reports whether the whole interval lies before t.
func (iv Interval) Before(t time.Time) bool {
	return !iv.End.After(t)
}

// Clamp caps the interval end at limit. Used to cut a month that is
// still in progress down to the current business time.
func (iv Interval) Clamp(limit time.Time) Interval {
	if limit.Before(iv.End) {
		iv.End = limit
	}
	return iv
}

// Partition slices the interval into consecutive step-sized windows
// starting at Start. Windows are produced while their start remains
// inside the interval; the last window may be partial.
func (iv Interval) Partition(step time.Duration) []Interval {
	if step <= 0 || !iv.Start.Before(iv.End) {
		return nil
	}
	var windows []Interval
	for start := iv.Start; start.Before(iv.End); start = start.Add(step) {
		end := start.Add(step)
		if end.After(iv.End) {
			end = iv.End
		}
		windows = append(windows, Interval{Start: start, End: end})
	}
	return windows
}

// Day returns the interval covering the calendar day of t.
func Day(t time.Time) Interval {
	start := Midnight(t)
	return Interval{Start: start, End: start.AddDate(0, 0, 1)}
}

// MonthOf returns the interval covering the given calendar month.
func MonthOf(year int, month time.Month, loc *time.Location) Interval {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Interval{Start: start, End: start.AddDate(0, 1, 0)}
}
