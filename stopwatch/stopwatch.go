// Package stopwatch times a single run of a workload against a monotonic
// clock and derives the elapsed time at microsecond resolution.
package stopwatch

import (
	"errors"
	"fmt"
	"time"
)

// ErrClockRegression is returned when the end reading precedes the start
// reading. Monotonic clocks never do this on a healthy host.
var ErrClockRegression = errors.New("monotonic clock went backwards")

// Clock is a source of monotonic instants.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the runtime clock. Values returned by time.Now carry
// a monotonic reading, which Sub prefers over the wall clock.
type SystemClock struct{}

// Now returns the current instant.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Measurement holds the two readings taken around one run.
type Measurement struct {
	Start      time.Time
	End        time.Time
	Iterations int
}

// Elapsed returns the time between Start and End truncated to whole
// microseconds.
func (m Measurement) Elapsed() time.Duration {
	return time.Duration(m.Micros()) * time.Microsecond
}

// Micros returns the integral number of microseconds between Start and End.
func (m Measurement) Micros() int64 {
	return m.End.Sub(m.Start).Microseconds()
}

// Seconds returns the elapsed microseconds converted to seconds.
func (m Measurement) Seconds() float64 {
	return float64(m.Micros()) / 1_000_000.0
}

// Measure reads clock, calls fn with iterations, reads clock again and
// returns the readings.
func Measure(clock Clock, iterations int, fn func(int)) (Measurement, error) {
	start := clock.Now()
	fn(iterations)
	end := clock.Now()

	m := Measurement{
		Start:      start,
		End:        end,
		Iterations: iterations,
	}

	if d := end.Sub(start); d < 0 {
		return m, fmt.Errorf("%w: elapsed %s", ErrClockRegression, d)
	}

	return m, nil
}
