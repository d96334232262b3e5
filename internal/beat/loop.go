package beat

import "sync"

// Loop is a single-goroutine event queue. Everything posted to it runs
// serially, in order, on the goroutine executing Run.
type Loop struct {
	queue     chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewLoop returns a Loop with a buffered queue.
func NewLoop() *Loop {
	return &Loop{
		queue: make(chan func(), 64),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Run executes posted closures until Close is called.
func (l *Loop) Run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case f := <-l.queue:
			f()
		}
	}
}

// Post enqueues f. It returns false when the loop has been closed.
func (l *Loop) Post(f func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.queue <- f:
		return true
	case <-l.quit:
		return false
	}
}

// Dispatch enqueues f and ignores the closed case. It matches the
// dispatcher signature used by Scheduler.
func (l *Loop) Dispatch(f func()) {
	_ = l.Post(f)
}

// Do runs f on the loop and waits for it to finish. It must not be called
// from the loop goroutine itself.
func (l *Loop) Do(f func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		f()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// Close stops the loop and waits for Run to return. Closures still queued
// are dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.quit)
	})
	<-l.done
}
