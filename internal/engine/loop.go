package engine

import (
	"context"
	"sync"
)

// op is the unit of work dispatched to the loop.
type op struct {
	fn     func() error
	result chan<- error
}

// loop runs submitted operations one at a time on a single goroutine, so
// each runs to completion before the next starts. The queue is bounded.
type loop struct {
	queue chan op
	wg    sync.WaitGroup
}

// newLoop creates and starts a loop with queue capacity cap.
func newLoop(ctx context.Context, cap int) *loop {
	l := &loop{queue: make(chan op, cap)}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.run(ctx)
	}()
	return l
}

func (l *loop) run(ctx context.Context) {
	for {
		select {
		case o, ok := <-l.queue:
			if !ok {
				return
			}
			err := o.fn()
			if o.result != nil {
				o.result <- err
			}
		case <-ctx.Done():
			return
		}
	}
}

// Submit enqueues an operation without blocking (returns false if full).
func (l *loop) Submit(fn func() error, result chan<- error) bool {
	select {
	case l.queue <- op{fn: fn, result: result}:
		return true
	default:
		return false
	}
}

// Drain closes the queue and waits for queued operations to finish.
func (l *loop) Drain() {
	close(l.queue)
	l.wg.Wait()
}

// QueueLen returns how many operations are currently queued.
func (l *loop) QueueLen() int {
	return len(l.queue)
}

// QueueCap returns the total queue capacity.
func (l *loop) QueueCap() int {
	return cap(l.queue)
}
