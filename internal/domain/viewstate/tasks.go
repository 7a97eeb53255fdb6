package viewstate

import (
	"sync"
	"sync/atomic"
)

// Tasks tracks fetches started in the background so callers can wait for
// them at shutdown. In-flight work is never cancelled.
type Tasks struct {
	wg      sync.WaitGroup
	pending atomic.Int64
}

// Go runs fn on its own goroutine.
func (t *Tasks) Go(fn func()) {
	t.wg.Add(1)
	t.pending.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.pending.Add(-1)
		fn()
	}()
}

// Pending is the number of tasks that have not returned yet.
func (t *Tasks) Pending() int {
	return int(t.pending.Load())
}

// Wait blocks until every started task has returned.
func (t *Tasks) Wait() {
	t.wg.Wait()
}
