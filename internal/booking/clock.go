package booking

import "time"

// Clock abstracts "current time" so that expiry sweeps and the
// future-start validation can be tested deterministically.  Production
// code injects SystemClock; tests inject a fake.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by time.Now in UTC.
func SystemClock() Clock { return systemClock{} }
