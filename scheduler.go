package realtime

import "time"

// Scheduler is the injected time/concurrency capability from spec.md §9,
// letting tests drive timers and yields deterministically instead of
// depending on the real clock or goroutine scheduler.
type Scheduler interface {
	Now() time.Time
	// AfterDelay invokes fn after d elapses, returning a cancel function.
	AfterDelay(d time.Duration, fn func()) (cancel func())
	// Yield gives other goroutines a chance to run between drain batches.
	Yield()
	// Defer runs blockingFn on its own goroutine and invokes continuation
	// with its result back on the caller's goroutine of choice; callers
	// are responsible for re-entering the loop goroutine themselves via
	// continuation, carrying whatever generation token they captured.
	Defer(blockingFn func() (any, error), continuation func(any, error))
}

// realScheduler is the production Scheduler backed by the standard
// library. No pack example models this capability as a unit (it exists
// purely as a testability seam per spec.md §9), so it's stdlib-only by
// design rather than by omission.
type realScheduler struct{}

// NewScheduler returns the production Scheduler used by Client when no
// test double is injected.
func NewScheduler() Scheduler { return realScheduler{} }

func (realScheduler) Now() time.Time { return time.Now() }

func (realScheduler) AfterDelay(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

func (realScheduler) Yield() {
	// Cooperative yield point between dispatcher drain batches
	// (spec.md §5 "explicit yield points").
	time.Sleep(0)
}

func (realScheduler) Defer(blockingFn func() (any, error), continuation func(any, error)) {
	go func() {
		v, err := blockingFn()
		continuation(v, err)
	}()
}
