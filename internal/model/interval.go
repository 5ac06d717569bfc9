package model

import (
	"errors"
	"time"
)

// ErrInvalidInterval is returned when an interval's start does not come
// strictly before its end.
var ErrInvalidInterval = errors.New("invalid interval: start must be before end")

// TimeInterval is a half-open time range [Start, End).  The half-open
// convention means an interval ending at T never conflicts with one
// starting at T, so back-to-back bookings of the same room are allowed.
// All timestamps are stored and compared in UTC.
//
// Fields:
//  Start – first instant covered by the interval (inclusive).
//  End   – first instant no longer covered (exclusive).
type TimeInterval struct {
	Start time.Time `json:"start_time"` // bookings.start_time
	End   time.Time `json:"end_time"`   // bookings.end_time
}

// NewTimeInterval builds a validated interval with both endpoints
// normalized to UTC.  It returns ErrInvalidInterval when start >= end.
func NewTimeInterval(start, end time.Time) (TimeInterval, error) {
	iv := TimeInterval{Start: start.UTC(), End: end.UTC()}
	if err := iv.Validate(); err != nil {
		return TimeInterval{}, err
	}
	return iv, nil
}

// Validate checks the start < end invariant.
func (iv TimeInterval) Validate() error {
	if !iv.Start.Before(iv.End) {
		return ErrInvalidInterval
	}
	return nil
}

// Overlaps reports whether two half-open intervals share at least one
// instant: [a,b) and [c,d) overlap iff a < d and c < b.
func (iv TimeInterval) Overlaps(other TimeInterval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Duration returns the length of the interval.
func (iv TimeInterval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}
