// Package bridge exposes the SQLite engine to code running on a single
// event loop. Blocking operations (open, close, prepare, step, query) are
// dispatched to workers and their outcomes delivered to continuations on the
// loop; the remaining operations are cheap and run synchronously.
package bridge

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/sqlbridge/internal/dispatch"
	"github.com/mesh-intelligence/sqlbridge/internal/native"
	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// Bridge owns the event loop and the worker pool.
type Bridge struct {
	cfg      types.Config
	loop     *dispatch.Loop
	disp     *dispatch.Dispatcher
	loopDone chan struct{}
}

// New validates cfg, starts the loop goroutine and the workers.
func New(cfg types.Config) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("bridge config: %w", err)
	}

	b := &Bridge{
		cfg:      cfg,
		loop:     dispatch.NewLoop(cfg.LoopBuffer),
		loopDone: make(chan struct{}),
	}
	go func() {
		defer close(b.loopDone)
		if err := b.loop.Run(context.Background()); err != nil {
			Logger().Error("event loop stopped", zap.Error(err))
		}
	}()
	b.disp = dispatch.New(cfg, b.loop)

	Logger().Debug("bridge started",
		zap.Int("workers", cfg.Workers),
		zap.Int("capacity", cfg.Capacity()),
		zap.Duration("task_timeout", cfg.TaskTimeout))
	return b, nil
}

// Config returns the configuration the bridge was built with.
func (b *Bridge) Config() types.Config {
	return b.cfg
}

// Post runs fn on the event loop. It reports false once the bridge is closed.
func (b *Bridge) Post(fn func()) bool {
	return b.loop.Post(fn)
}

// Close waits for every admitted task to be delivered, then stops the
// workers and the loop. It must not be called from the loop. Handles left
// open are not closed.
func (b *Bridge) Close(ctx context.Context) error {
	if err := b.disp.Close(ctx); err != nil {
		return fmt.Errorf("closing dispatcher: %w", err)
	}
	b.loop.Stop()
	<-b.loopDone
	Logger().Debug("bridge closed")
	return nil
}

// Version returns the engine library version.
func (b *Bridge) Version() string {
	return EngineVersion()
}

// EngineVersion returns the engine library version without a bridge.
func EngineVersion() string {
	return native.LibVersion()
}

// submit wraps work in a task and hands it to the dispatcher.
func submit[In, Out any](ctx context.Context, b *Bridge, kind dispatch.Kind, lane *dispatch.Lane, in In, work func(In) Out, done func(Out, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	t := dispatch.NewTask(ctx, kind, lane, in, work, done)
	if err := b.disp.Submit(ctx, t); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return nil
}

// newID generates a UUID v7 for handle ids.
func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
