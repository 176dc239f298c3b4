package clock

import "time"

// Clock abstracts time.Now so services depending on wall-clock decisions
// (campaign window, lockout expiry) can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// New returns a Clock backed by time.Now.
func New() Clock { return realClock{} }

// Fixed is a Clock pinned to a settable instant, for tests.
type Fixed struct {
	Time time.Time
}

func (f *Fixed) Now() time.Time { return f.Time }

// Advance moves the fixed instant forward by d.
func (f *Fixed) Advance(d time.Duration) { f.Time = f.Time.Add(d) }
