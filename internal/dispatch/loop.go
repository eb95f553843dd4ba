package dispatch

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Loop is the event loop. Callbacks posted to it run one at a time on the
// goroutine that called Run, in the order they were posted.
type Loop struct {
	inbox    chan func()
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewLoop returns a loop whose inbox holds up to buffer callbacks before
// Post blocks.
func NewLoop(buffer int) *Loop {
	return &Loop{
		inbox:   make(chan func(), buffer),
		stopped: make(chan struct{}),
	}
}

// Run processes callbacks until Stop is called or ctx ends.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case fn := <-l.inbox:
			l.call(fn)
		case <-l.stopped:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Post schedules fn on the loop. It reports false, without running fn, once
// the loop has been stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case l.inbox <- fn:
		return true
	case <-l.stopped:
		return false
	}
}

// Stop ends Run. Callbacks still in the inbox are discarded.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopped) })
}

func (l *Loop) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("loop callback panicked", zap.Any("panic", r))
		}
	}()
	fn()
}
