package busy

import "time"

// Scheduler runs f once after d. The returned cancel function stops a timer
// that has not fired yet and reports whether it did so. Implementations must
// not invoke f synchronously from After.
type Scheduler interface {
	After(d time.Duration, f func()) (cancel func() bool)
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(d time.Duration, f func()) func() bool

// After implements Scheduler.
func (fn SchedulerFunc) After(d time.Duration, f func()) func() bool {
	return fn(d, f)
}

type timerScheduler struct{}

func (timerScheduler) After(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}
