// internal/controller/clock.go
package controller

import "time"

// Timer is a cancellable scheduled task.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so the fixed delays can be driven by tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// RealClock uses the time package.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
