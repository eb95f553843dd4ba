package dispatch

import "sync"

// Lane serializes the tasks that touch one handle. At most one of its tasks
// is admitted to the worker pool at a time; the rest wait in submission
// order and are released one by one after the holder has been delivered.
type Lane struct {
	mu         sync.Mutex
	holder     Job
	delivering bool
	pending    []Job
}

// NewLane returns an idle lane.
func NewLane() *Lane {
	return &Lane{}
}

// enter makes j the holder if the lane is idle and reports whether it did.
// Otherwise j waits its turn.
func (l *Lane) enter(j Job) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.holder == nil {
		l.holder = j
		return true
	}
	l.pending = append(l.pending, j)
	return false
}

func (l *Lane) beginDelivery() {
	l.mu.Lock()
	l.delivering = true
	l.mu.Unlock()
}

// leave releases the lane and returns the next waiting job, which becomes the
// new holder, or nil.
func (l *Lane) leave() Job {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.delivering = false
	l.holder = nil
	if len(l.pending) == 0 {
		return nil
	}
	next := l.pending[0]
	l.pending[0] = nil
	l.pending = l.pending[1:]
	l.holder = next
	return next
}

// Available reports whether the handle may be touched synchronously: no task
// holds the lane, or the holder's continuation is running right now.
func (l *Lane) Available() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holder == nil || l.delivering
}

// Pending returns the number of tasks waiting behind the holder.
func (l *Lane) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}
