package domain

import "time"

// Clock supplies the current time to the stores.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

// Timestamp is the precision every backend can round-trip exactly.
const Timestamp = time.Millisecond

// Stamp normalizes t to UTC at Timestamp precision.
func Stamp(t time.Time) time.Time {
	return t.UTC().Truncate(Timestamp)
}

// NextUpdate returns a stamp strictly after prev, based on now.
func NextUpdate(now, prev time.Time) time.Time {
	next := Stamp(now)
	if !next.After(prev) {
		next = prev.Add(Timestamp)
	}
	return next
}

// WithFullName recomputes the derived FullName.
func (e Employee) WithFullName() Employee {
	e.FullName = e.FirstName + " " + e.LastName
	return e
}

// IsActiveRecord reports whether e counts toward the active aggregates.
func (e Employee) IsActiveRecord() bool {
	return e.IsActive
}
