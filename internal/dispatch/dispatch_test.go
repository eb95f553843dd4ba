package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

const waitFor = 5 * time.Second

type harness struct {
	loop *Loop
	disp *Dispatcher
	done chan struct{}
}

func newHarness(t *testing.T, workers, depth int) *harness {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.Workers = workers
	cfg.QueueDepth = depth
	require.NoError(t, cfg.Validate())

	h := &harness{loop: NewLoop(cfg.LoopBuffer), done: make(chan struct{})}
	go func() {
		defer close(h.done)
		_ = h.loop.Run(context.Background())
	}()
	h.disp = New(cfg, h.loop)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		assert.NoError(t, h.disp.Close(ctx))
		h.loop.Stop()
		<-h.done
	})
	return h
}

// onLoop runs fn on the loop and waits for it.
func (h *harness) onLoop(t *testing.T, fn func()) {
	t.Helper()
	ran := make(chan struct{})
	require.True(t, h.loop.Post(func() { fn(); close(ran) }))
	select {
	case <-ran:
	case <-time.After(waitFor):
		t.Fatal("loop callback did not run")
	}
}

type outcome struct {
	out int
	err error
}

func TestSubmitDeliversExactlyOnce(t *testing.T) {
	h := newHarness(t, 2, 4)

	results := make(chan outcome, 2)
	task := NewTask(context.Background(), KindStep, nil, 20,
		func(in int) int { return in + 1 },
		func(out int, err error) { results <- outcome{out, err} })

	require.NoError(t, h.disp.Submit(context.Background(), task))

	select {
	case got := <-results:
		assert.NoError(t, got.err)
		assert.Equal(t, 21, got.out)
	case <-time.After(waitFor):
		t.Fatal("continuation not invoked")
	}
	h.onLoop(t, func() {})
	assert.Equal(t, StateFreed, task.State())
	assert.Empty(t, results)
	assert.Equal(t, 0, h.disp.Outstanding())
}

func TestContinuationRunsOnLoop(t *testing.T) {
	h := newHarness(t, 4, 16)

	// Continuations increment a plain counter; the race detector flags any
	// that run concurrently.
	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		task := NewTask(context.Background(), KindStep, nil, i,
			func(in int) int { return in },
			func(int, error) { counter++; wg.Done() })
		require.NoError(t, h.disp.Submit(context.Background(), task))
	}
	wg.Wait()
	h.onLoop(t, func() { assert.Equal(t, 32, counter) })
}

func TestSubmitSaturated(t *testing.T) {
	h := newHarness(t, 1, 0)

	gate := make(chan struct{})
	first := make(chan error, 1)
	blocker := NewTask(context.Background(), KindStep, nil, 0,
		func(int) int { <-gate; return 0 },
		func(_ int, err error) { first <- err })
	require.NoError(t, h.disp.Submit(context.Background(), blocker))

	var rejectedCalls atomic.Int32
	rejected := NewTask(context.Background(), KindStep, nil, 0,
		func(int) int { return 0 },
		func(int, error) { rejectedCalls.Add(1) })
	err := h.disp.Submit(context.Background(), rejected)
	assert.ErrorIs(t, err, types.ErrSaturated)
	assert.Equal(t, StateCreated, rejected.State())

	close(gate)
	require.NoError(t, <-first)
	h.onLoop(t, func() {})
	assert.Equal(t, int32(0), rejectedCalls.Load())

	// Capacity is returned once the blocker is freed.
	again := make(chan error, 1)
	task := NewTask(context.Background(), KindStep, nil, 0,
		func(int) int { return 0 },
		func(_ int, err error) { again <- err })
	require.NoError(t, h.disp.Submit(context.Background(), task))
	assert.NoError(t, <-again)
}

func TestSubmitAfterClose(t *testing.T) {
	h := newHarness(t, 1, 1)
	require.NoError(t, h.disp.Close(context.Background()))

	task := NewTask(context.Background(), KindOpen, nil, 0,
		func(int) int { return 0 },
		func(int, error) { t.Error("continuation must not run") })
	assert.ErrorIs(t, h.disp.Submit(context.Background(), task), types.ErrDispatcherClosed)
}

func TestSubmitCanceledContext(t *testing.T) {
	h := newHarness(t, 1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := NewTask(ctx, KindStep, nil, 0,
		func(int) int { return 0 },
		func(int, error) { t.Error("continuation must not run") })
	assert.ErrorIs(t, h.disp.Submit(ctx, task), context.Canceled)
}

func TestLaneSerializes(t *testing.T) {
	h := newHarness(t, 4, 32)
	lane := NewLane()

	var (
		active  atomic.Int32
		maxSeen atomic.Int32
		order   []int
		wg      sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		task := NewTask(context.Background(), KindStep, lane, i,
			func(in int) int {
				n := active.Add(1)
				for {
					m := maxSeen.Load()
					if n <= m || maxSeen.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				active.Add(-1)
				return in
			},
			func(out int, err error) {
				assert.NoError(t, err)
				order = append(order, out)
				wg.Done()
			})
		require.NoError(t, h.disp.Submit(context.Background(), task))
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
	h.onLoop(t, func() {
		for i, got := range order {
			assert.Equal(t, i, got)
		}
		assert.True(t, lane.Available())
		assert.Equal(t, 0, lane.Pending())
	})
}

func TestSeparateLanesRunConcurrently(t *testing.T) {
	h := newHarness(t, 2, 2)

	var arrived atomic.Int32
	meet := func(int) bool {
		arrived.Add(1)
		deadline := time.Now().Add(waitFor)
		for arrived.Load() < 2 {
			if time.Now().After(deadline) {
				return false
			}
			time.Sleep(time.Millisecond)
		}
		return true
	}

	results := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		task := NewTask(context.Background(), KindQuery, NewLane(), i, meet,
			func(ok bool, err error) {
				assert.NoError(t, err)
				results <- ok
			})
		require.NoError(t, h.disp.Submit(context.Background(), task))
	}
	assert.True(t, <-results)
	assert.True(t, <-results)
}

func TestLaneAvailableDuringDelivery(t *testing.T) {
	h := newHarness(t, 1, 1)
	lane := NewLane()

	gate := make(chan struct{})
	seen := make(chan bool, 1)
	task := NewTask(context.Background(), KindStep, lane, 0,
		func(int) int { <-gate; return 0 },
		func(int, error) { seen <- lane.Available() })
	require.NoError(t, h.disp.Submit(context.Background(), task))

	assert.False(t, lane.Available())
	close(gate)
	assert.True(t, <-seen)
}

func TestTimeoutAbandonsTask(t *testing.T) {
	h := newHarness(t, 1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	gate := make(chan struct{})
	var calls atomic.Int32
	errs := make(chan error, 2)
	task := NewTask(ctx, KindQuery, nil, 0,
		func(int) int { <-gate; return 7 },
		func(out int, err error) {
			calls.Add(1)
			assert.Zero(t, out)
			errs <- err
		})
	require.NoError(t, h.disp.Submit(ctx, task))

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(waitFor):
		t.Fatal("abandonment not delivered")
	}

	close(gate)
	require.Eventually(t, func() bool { return task.State() == StateFreed }, waitFor, time.Millisecond)
	h.onLoop(t, func() {})
	assert.Equal(t, int32(1), calls.Load())
}

func TestQueuedTaskSkippedAfterContextEnds(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		lane    bool
	}{
		// One worker busy with the holder: the task waits in the queue.
		{name: "waiting in queue", workers: 1},
		// A free worker but a held lane: the task waits on the lane.
		{name: "waiting on lane", workers: 2, lane: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.workers, 2)
			var lane *Lane
			if tt.lane {
				lane = NewLane()
			}

			gate := make(chan struct{})
			started := make(chan struct{})
			holder := NewTask(context.Background(), KindStep, lane, 0,
				func(int) int { close(started); <-gate; return 0 },
				func(int, error) {})
			require.NoError(t, h.disp.Submit(context.Background(), holder))
			<-started

			ctx, cancel := context.WithCancel(context.Background())
			var ran atomic.Bool
			var calls atomic.Int32
			errs := make(chan error, 2)
			queued := NewTask(ctx, KindQuery, lane, 0,
				func(int) int { ran.Store(true); return 1 },
				func(out int, err error) {
					calls.Add(1)
					assert.Zero(t, out)
					errs <- err
				})
			require.NoError(t, h.disp.Submit(ctx, queued))
			if tt.lane {
				assert.Equal(t, 1, lane.Pending())
			}

			cancel()
			select {
			case err := <-errs:
				assert.ErrorIs(t, err, context.Canceled)
			case <-time.After(waitFor):
				t.Fatal("abandonment not delivered")
			}

			close(gate)
			require.Eventually(t, func() bool { return queued.State() == StateFreed }, waitFor, time.Millisecond)
			h.onLoop(t, func() {})
			assert.False(t, ran.Load(), "work ran after its context ended")
			assert.Equal(t, int32(1), calls.Load())
			assert.Equal(t, 0, h.disp.Outstanding())
		})
	}
}

func TestConfiguredTimeout(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.Workers = 1
	cfg.TaskTimeout = 20 * time.Millisecond

	loop := NewLoop(cfg.LoopBuffer)
	go func() { _ = loop.Run(context.Background()) }()
	defer loop.Stop()
	d := New(cfg, loop)

	gate := make(chan struct{})
	errs := make(chan error, 1)
	task := NewTask(context.Background(), KindStep, nil, 0,
		func(int) int { <-gate; return 0 },
		func(_ int, err error) { errs <- err })
	require.NoError(t, d.Submit(context.Background(), task))
	assert.ErrorIs(t, <-errs, context.DeadlineExceeded)
	close(gate)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	assert.Equal(t, StateFreed, task.State())
}

func TestCloseWaitsForTasks(t *testing.T) {
	h := newHarness(t, 2, 2)

	gate := make(chan struct{})
	var delivered atomic.Int32
	for i := 0; i < 3; i++ {
		task := NewTask(context.Background(), KindStep, nil, i,
			func(in int) int { <-gate; return in },
			func(int, error) { delivered.Add(1) })
		require.NoError(t, h.disp.Submit(context.Background(), task))
	}

	closed := make(chan error, 1)
	go func() { closed <- h.disp.Close(context.Background()) }()

	select {
	case <-closed:
		t.Fatal("Close returned with tasks outstanding")
	case <-time.After(20 * time.Millisecond):
	}
	close(gate)
	require.NoError(t, <-closed)
	assert.Equal(t, int32(3), delivered.Load())
}

func TestIllegalTransitionPanics(t *testing.T) {
	task := NewTask(context.Background(), KindOpen, nil, 0,
		func(int) int { return 0 }, func(int, error) {})
	assert.Panics(t, func() { task.run() })
	assert.Panics(t, func() { task.deliver() })
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateCreated, "CREATED"},
		{StateSubmitted, "SUBMITTED"},
		{StateRunning, "RUNNING"},
		{StateSignaled, "SIGNALED"},
		{StateDelivered, "DELIVERED"},
		{StateFreed, "FREED"},
		{State(42), "State(42)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}

func TestLoopPostAfterStop(t *testing.T) {
	loop := NewLoop(1)
	loop.Stop()
	assert.False(t, loop.Post(func() {}))
	assert.NoError(t, loop.Run(context.Background()))
}

func TestLoopRecoversPanic(t *testing.T) {
	loop := NewLoop(4)
	go func() { _ = loop.Run(context.Background()) }()
	defer loop.Stop()

	ran := make(chan struct{})
	require.True(t, loop.Post(func() { panic("boom") }))
	require.True(t, loop.Post(func() { close(ran) }))
	select {
	case <-ran:
	case <-time.After(waitFor):
		t.Fatal("loop stopped after panic")
	}
}
