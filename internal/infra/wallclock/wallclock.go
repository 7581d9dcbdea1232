// Package wallclock provides the real-time clock adapter.
package wallclock

import "time"

// System reads the operating-system clock.
type System struct{}

// Now returns the current wall-clock time.
func (System) Now() time.Time {
	return time.Now()
}
