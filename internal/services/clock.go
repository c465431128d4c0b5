package services

import "time"

// Clock abstracts wall-clock reads so window and block expiry can be
// simulated in tests instead of slept through.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }
