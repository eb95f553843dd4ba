package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// Dispatcher runs tasks on a fixed pool of worker goroutines and posts each
// completion to a Loop. It admits at most Workers+QueueDepth tasks at once
// and rejects the rest synchronously.
type Dispatcher struct {
	loop     *Loop
	queue    chan Job
	capacity int64
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool

	outstanding atomic.Int64
	tasks       sync.WaitGroup
	workers     sync.WaitGroup
}

// New starts cfg.Workers workers delivering to loop. cfg must be valid.
func New(cfg types.Config, loop *Loop) *Dispatcher {
	capacity := cfg.Capacity()
	d := &Dispatcher{
		loop:     loop,
		queue:    make(chan Job, capacity),
		capacity: int64(capacity),
		timeout:  cfg.TaskTimeout,
	}
	d.workers.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.worker(i)
	}
	return d
}

// Submit admits j. On success the Dispatcher owns j until its continuation
// has run on the loop. On failure j's continuation never runs: the error is
// ErrDispatcherClosed, ErrSaturated, or the error of an already finished
// context.
func (d *Dispatcher) Submit(ctx context.Context, j Job) error {
	if ctx != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return types.ErrDispatcherClosed
	}
	if d.outstanding.Add(1) > d.capacity {
		d.outstanding.Add(-1)
		Logger().Warn("task rejected",
			zap.Stringer("task", j.ID()), zap.String("kind", string(j.Kind())),
			zap.Int64("capacity", d.capacity))
		return types.ErrSaturated
	}
	d.tasks.Add(1)

	j.submit(d)
	Logger().Debug("task submitted", zap.Stringer("task", j.ID()), zap.String("kind", string(j.Kind())))

	if lane := j.lane(); lane != nil && !lane.enter(j) {
		return nil
	}
	// Never blocks: the queue holds as many jobs as can be admitted.
	d.queue <- j
	return nil
}

// Outstanding returns the number of admitted tasks not yet freed.
func (d *Dispatcher) Outstanding() int {
	return int(d.outstanding.Load())
}

// Close stops admitting tasks, waits until every admitted task has been
// delivered and freed, and stops the workers. The loop must keep running
// until Close returns, so Close must not be called from a loop callback.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		d.tasks.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		return ctx.Err()
	}

	close(d.queue)
	d.workers.Wait()
	return nil
}

func (d *Dispatcher) worker(n int) {
	defer d.workers.Done()

	for j := range d.queue {
		j := j
		j.run()
		if !d.loop.Post(func() { d.complete(j) }) {
			Logger().Error("loop stopped before delivery",
				zap.Int("worker", n), zap.Stringer("task", j.ID()))
			d.release()
		}
	}
}

// complete runs on the loop.
func (d *Dispatcher) complete(j Job) {
	lane := j.lane()
	defer func() {
		if lane != nil {
			if next := lane.leave(); next != nil {
				d.queue <- next
			}
		}
		d.release()
	}()

	if lane != nil {
		lane.beginDelivery()
	}
	j.deliver()
	Logger().Debug("task delivered", zap.Stringer("task", j.ID()), zap.String("kind", string(j.Kind())))
}

func (d *Dispatcher) release() {
	d.outstanding.Add(-1)
	d.tasks.Done()
}
