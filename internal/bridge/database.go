package bridge

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/sqlbridge/internal/dispatch"
	"github.com/mesh-intelligence/sqlbridge/internal/native"
	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// OpenFunc receives the outcome of Open. code is the engine status, or
// CodeNone when err reports that the caller stopped waiting.
type OpenFunc func(db *Database, code types.Code, err error)

// StatusFunc receives the engine status of a close or step.
type StatusFunc func(code types.Code, err error)

// Database is a connection handle. Its statements share its lane, so at
// most one task touches the connection at any time.
type Database struct {
	id     uuid.UUID
	path   string
	bridge *Bridge
	lane   *dispatch.Lane

	mu   sync.Mutex // held around every engine call on conn
	conn *native.Conn

	closing  atomic.Bool // a close is pending or has succeeded
	closed   atomic.Bool // the engine accepted the close
	released atomic.Bool
	live     atomic.Int32 // statements not yet finalized
}

// Open dispatches an open of path. The handle is returned at once and is
// usable from fn onwards. A handle whose open failed must still be closed.
func (b *Bridge) Open(ctx context.Context, path string, fn OpenFunc) (*Database, error) {
	db := &Database{
		id:     newID(),
		path:   path,
		bridge: b,
		lane:   dispatch.NewLane(),
		conn:   native.NewConn(),
	}

	err := submit(ctx, b, dispatch.KindOpen, db.lane, path,
		func(p string) types.Code {
			db.mu.Lock()
			defer db.mu.Unlock()
			return db.conn.Open(p)
		},
		func(code types.Code, err error) {
			if err != nil {
				code = types.CodeNone
			}
			Logger().Debug("database opened",
				zap.Stringer("db", db.id), zap.String("path", path), zap.Stringer("code", code), zap.Error(err))
			fn(db, code, err)
		})
	if err != nil {
		db.conn.Release()
		return nil, err
	}
	return db, nil
}

// ID returns the handle id used in logs.
func (db *Database) ID() uuid.UUID { return db.id }

// Path returns the path the handle was opened with.
func (db *Database) Path() string { return db.path }

// Close dispatches a close. Statements still open become zombies that may
// only be finalized. A second Close while one is pending or after one
// succeeded returns ErrClosed; after a failed close the call may be retried.
func (db *Database) Close(ctx context.Context, fn StatusFunc) error {
	if !db.closing.CompareAndSwap(false, true) {
		return types.ErrClosed
	}

	err := submit(ctx, db.bridge, dispatch.KindClose, db.lane, db,
		func(db *Database) types.Code {
			db.mu.Lock()
			defer db.mu.Unlock()
			if db.closed.Load() {
				return types.CodeOK
			}
			code := db.conn.Close()
			if code == types.CodeOK {
				db.closed.Store(true)
				db.releaseLocked()
			}
			return code
		},
		func(code types.Code, err error) {
			if err != nil {
				code = types.CodeNone
			}
			if code != types.CodeOK && !db.closed.Load() {
				db.closing.Store(false)
			}
			Logger().Debug("database closed",
				zap.Stringer("db", db.id), zap.Stringer("code", code), zap.Error(err))
			fn(code, err)
		})
	if err != nil {
		db.closing.Store(false)
		return err
	}
	return nil
}

// Prepare dispatches the compilation of sql. The statement is returned at
// once and is usable from fn onwards. Every statement must be finalized,
// including one whose prepare failed.
func (db *Database) Prepare(ctx context.Context, sql string, fn func(st *Statement, code types.Code, err error)) (*Statement, error) {
	if db.isClosed() {
		return nil, types.ErrClosed
	}

	st := &Statement{id: newID(), db: db, sql: sql}
	db.live.Add(1)

	err := submit(ctx, db.bridge, dispatch.KindPrepare, db.lane, sql,
		func(q string) types.Code {
			return db.call(func() types.Code {
				s, code := db.conn.Prepare(q)
				st.stmt = s
				return code
			})
		},
		func(code types.Code, err error) {
			if err != nil {
				code = types.CodeNone
			}
			fn(st, code, err)
		})
	if err != nil {
		db.live.Add(-1)
		return nil, err
	}
	return st, nil
}

// Errmsg returns the engine's message for the most recent failure on this
// connection.
func (db *Database) Errmsg() (string, error) {
	var msg string
	err := db.sync(func() { msg = db.conn.Errmsg() })
	return msg, err
}

// Autocommit reports whether the connection is outside an explicit
// transaction.
func (db *Database) Autocommit() (bool, error) {
	var on bool
	err := db.sync(func() { on = db.conn.Autocommit() })
	return on, err
}

// Changes returns the number of rows changed by the most recent statement.
func (db *Database) Changes() (int, error) {
	var n int
	err := db.sync(func() { n = db.conn.Changes() })
	return n, err
}

// TotalChanges returns the number of rows changed since the connection was
// opened. Unlike Changes it does not carry over across statements that change
// nothing, such as DDL.
func (db *Database) TotalChanges() (int64, error) {
	var n int64
	err := db.sync(func() { n = db.conn.TotalChanges() })
	return n, err
}

// LastInsertRowID returns the rowid of the most recent insert.
func (db *Database) LastInsertRowID() (int64, error) {
	var id int64
	err := db.sync(func() { id = db.conn.LastInsertRowID() })
	return id, err
}

// Error converts an engine status into an error. Success codes yield nil;
// anything else yields an *types.EngineError carrying the connection's
// current message.
func (db *Database) Error(code types.Code) error {
	if code.IsSuccess() {
		return nil
	}
	msg, _ := db.Errmsg()
	return &types.EngineError{Code: code, Message: msg}
}

// sync runs fn on the calling goroutine when the connection is open and no
// task holds it.
func (db *Database) sync(fn func()) error {
	if db.isClosed() {
		return types.ErrClosed
	}
	if !db.lane.Available() {
		return types.ErrHandleBusy
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	fn()
	return nil
}

func (db *Database) isClosed() bool {
	return db.closing.Load() || db.closed.Load()
}

// call runs an engine call from a worker. A connection closed in the
// meantime reports MISUSE without touching the engine.
func (db *Database) call(fn func() types.Code) types.Code {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed.Load() {
		return types.CodeMisuse
	}
	return fn()
}

// releaseLocked frees the connection's thread state once it is closed and
// its last statement is finalized. db.mu must be held.
func (db *Database) releaseLocked() {
	if db.closed.Load() && db.live.Load() == 0 && db.released.CompareAndSwap(false, true) {
		db.conn.Release()
		Logger().Debug("connection released", zap.Stringer("db", db.id))
	}
}
