// Package dispatch runs blocking work off the event loop and delivers the
// outcome back on it. A Task carries one operation from submission to
// delivery; the Dispatcher owns it in between.
package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind names the operation a task performs.
type Kind string

// Operation kinds.
const (
	KindOpen    Kind = "open"
	KindClose   Kind = "close"
	KindPrepare Kind = "prepare"
	KindStep    Kind = "step"
	KindQuery   Kind = "query"

	// KindFinalize destroys a statement off the loop when its handle is
	// still held by an abandoned task.
	KindFinalize Kind = "finalize"
)

// State is a task's position in its lifecycle. A task moves through every
// state in order exactly once.
type State int32

// Task lifecycle states.
const (
	StateCreated State = iota
	StateSubmitted
	StateRunning
	StateSignaled
	StateDelivered
	StateFreed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateSubmitted:
		return "SUBMITTED"
	case StateRunning:
		return "RUNNING"
	case StateSignaled:
		return "SIGNALED"
	case StateDelivered:
		return "DELIVERED"
	case StateFreed:
		return "FREED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Job is the untyped view of a Task that the Dispatcher and Lane work with.
// Only Tasks from this package implement it.
type Job interface {
	ID() uuid.UUID
	Kind() Kind
	State() State

	lane() *Lane
	submit(d *Dispatcher)
	run()
	deliver()
	abandon(err error)
}

// Task is one blocking operation: its owned input, the routine that consumes
// it on a worker, the slot for the routine's output, and the continuation
// that receives the output on the loop.
type Task[In, Out any] struct {
	id    uuid.UUID
	kind  Kind
	ln    *Lane
	state atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	unwatch func() bool

	in   In
	work func(In) Out
	out  Out
	done func(Out, error)

	// skipped is written by the worker before the completion signal and read
	// by the loop after it.
	skipped bool
	// abandoned is only touched on the loop.
	abandoned bool
}

// NewTask packages work and its input. lane may be nil for operations that
// touch no shared handle. done receives the output, or the zero Out and the
// context's error when the caller stopped waiting.
func NewTask[In, Out any](ctx context.Context, kind Kind, lane *Lane, in In, work func(In) Out, done func(Out, error)) *Task[In, Out] {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Task[In, Out]{
		id:   newID(),
		kind: kind,
		ln:   lane,
		ctx:  ctx,
		in:   in,
		work: work,
		done: done,
	}
}

// ID returns the task id used in logs.
func (t *Task[In, Out]) ID() uuid.UUID { return t.id }

// Kind returns the operation kind.
func (t *Task[In, Out]) Kind() Kind { return t.kind }

// State returns the current lifecycle state.
func (t *Task[In, Out]) State() State { return State(t.state.Load()) }

func (t *Task[In, Out]) lane() *Lane { return t.ln }

func (t *Task[In, Out]) transition(from, to State) {
	if !t.state.CompareAndSwap(int32(from), int32(to)) {
		panic(fmt.Sprintf("dispatch: task %s (%s): illegal transition %s -> %s from %s",
			t.id, t.kind, from, to, t.State()))
	}
}

// submit hands the task to d. It runs under the dispatcher's admission lock.
func (t *Task[In, Out]) submit(d *Dispatcher) {
	t.transition(StateCreated, StateSubmitted)
	if d.timeout > 0 {
		t.ctx, t.cancel = context.WithTimeout(t.ctx, d.timeout)
	}
	if t.ctx.Done() != nil {
		ctx := t.ctx
		t.unwatch = context.AfterFunc(ctx, func() {
			d.loop.Post(func() { t.abandon(ctx.Err()) })
		})
	}
}

// run executes the blocking routine on a worker.
func (t *Task[In, Out]) run() {
	t.transition(StateSubmitted, StateRunning)
	if t.ctx.Err() != nil {
		t.skipped = true
	} else {
		t.out = t.work(t.in)
	}
	t.transition(StateRunning, StateSignaled)
}

// deliver invokes the continuation on the loop, unless the caller already
// received an abandonment, and then frees the task.
func (t *Task[In, Out]) deliver() {
	t.transition(StateSignaled, StateDelivered)
	defer t.free()

	switch {
	case t.abandoned:
		Logger().Debug("late completion ignored",
			zap.Stringer("task", t.id), zap.String("kind", string(t.kind)))
	case t.skipped:
		var zero Out
		t.done(zero, t.ctx.Err())
	default:
		t.done(t.out, nil)
	}
}

// abandon delivers the context's error in place of an outcome that has not
// been delivered yet. It runs on the loop.
func (t *Task[In, Out]) abandon(err error) {
	if t.abandoned || t.State() >= StateDelivered {
		return
	}
	t.abandoned = true
	Logger().Debug("task abandoned",
		zap.Stringer("task", t.id), zap.String("kind", string(t.kind)), zap.Error(err))
	var zero Out
	t.done(zero, err)
}

func (t *Task[In, Out]) free() {
	if t.unwatch != nil {
		t.unwatch()
	}
	if t.cancel != nil {
		t.cancel()
	}
	var (
		zeroIn  In
		zeroOut Out
	)
	t.in, t.out = zeroIn, zeroOut
	t.work, t.done = nil, nil
	t.unwatch, t.cancel = nil, nil
	t.transition(StateDelivered, StateFreed)
}

// newID generates a UUID v7 for task ids.
func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New()
	}
	return id
}
