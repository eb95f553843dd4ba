package bridge

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/sqlbridge/internal/dispatch"
	"github.com/mesh-intelligence/sqlbridge/internal/native"
	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// QueryFunc receives a fully materialized result set and the status that
// ended the drain: DONE on success, otherwise the failing code with the rows
// read before the failure.
type QueryFunc func(rs *types.ResultSet, code types.Code, err error)

// Statement is a prepared statement handle bound to one Database for its
// whole life.
type Statement struct {
	id        uuid.UUID
	db        *Database
	sql       string
	stmt      *native.Stmt // set by the prepare task
	finalized atomic.Bool
}

// ID returns the handle id used in logs.
func (st *Statement) ID() uuid.UUID { return st.id }

// Database returns the connection the statement belongs to.
func (st *Statement) Database() *Database { return st.db }

// Step dispatches one step. fn receives ROW, DONE or an engine error code.
func (st *Statement) Step(ctx context.Context, fn StatusFunc) error {
	if err := st.usable(); err != nil {
		return err
	}
	return submit(ctx, st.db.bridge, dispatch.KindStep, st.db.lane, st,
		func(st *Statement) types.Code {
			return st.db.call(func() types.Code {
				if st.stmt == nil {
					return types.CodeMisuse
				}
				return st.stmt.Step()
			})
		},
		func(code types.Code, err error) {
			if err != nil {
				code = types.CodeNone
			}
			fn(code, err)
		})
}

type queryResult struct {
	rs   *types.ResultSet
	code types.Code
}

// Query dispatches a drain of the statement. Rows are materialized on the
// worker, so fn never has to go back to the engine.
func (st *Statement) Query(ctx context.Context, fn QueryFunc) error {
	if err := st.usable(); err != nil {
		return err
	}
	capacity := st.db.bridge.Config().RowCapacity
	return submit(ctx, st.db.bridge, dispatch.KindQuery, st.db.lane, st,
		func(st *Statement) queryResult {
			var res queryResult
			res.code = st.db.call(func() types.Code {
				if st.stmt == nil {
					return types.CodeMisuse
				}
				res.rs, res.code = materialize(st.stmt, capacity)
				return res.code
			})
			return res
		},
		func(res queryResult, err error) {
			if err != nil {
				fn(nil, types.CodeNone, err)
				return
			}
			if res.rs == nil {
				res.rs = &types.ResultSet{}
			}
			fn(res.rs, res.code, nil)
		})
}

// Bind binds v to the 1-based parameter index. v must be nil, a string, a
// []byte, a float, a signed integer, or an unsigned integer no greater than
// math.MaxInt64; anything else fails with ErrUnsupportedType and leaves the
// existing bindings untouched.
func (st *Statement) Bind(index int, v any) (types.Code, error) {
	var (
		code types.Code
		err  error
	)
	if serr := st.sync(func(s *native.Stmt) { code, err = bindValue(s, index, v) }); serr != nil {
		return types.CodeNone, serr
	}
	return code, err
}

// BindAll binds values to parameters 1..len(values). It stops at the first
// value that fails.
func (st *Statement) BindAll(values ...any) (types.Code, error) {
	code := types.CodeOK
	var err error
	serr := st.sync(func(s *native.Stmt) {
		for i, v := range values {
			if code, err = bindValue(s, i+1, v); err != nil || code != types.CodeOK {
				return
			}
		}
	})
	if serr != nil {
		return types.CodeNone, serr
	}
	return code, err
}

// ClearBindings resets every parameter to NULL.
func (st *Statement) ClearBindings() (types.Code, error) {
	return st.status(func(s *native.Stmt) types.Code { return s.ClearBindings() })
}

// Reset rewinds the statement so it can be stepped again.
func (st *Statement) Reset() (types.Code, error) {
	return st.status(func(s *native.Stmt) types.Code { return s.Reset() })
}

// Finalize destroys the statement. It is allowed after the owning Database
// has been closed.
func (st *Statement) Finalize() (types.Code, error) {
	if st.finalized.Load() {
		return types.CodeNone, types.ErrFinalized
	}
	if !st.db.lane.Available() {
		return types.CodeNone, types.ErrHandleBusy
	}
	db := st.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if !st.finalized.CompareAndSwap(false, true) {
		return types.CodeNone, types.ErrFinalized
	}
	return st.finalizeLocked(), nil
}

func (st *Statement) finalizeLocked() types.Code {
	code := types.CodeOK
	if st.stmt != nil {
		code = st.stmt.Finalize()
	}
	st.db.live.Add(-1)
	st.db.releaseLocked()
	Logger().Debug("statement finalized", zap.Stringer("stmt", st.id), zap.Stringer("code", code))
	return code
}

// discard finalizes the statement as soon as its handle is free: at once
// when no task holds it, otherwise from a task queued behind the holder.
func (st *Statement) discard() {
	if st.db.lane.Available() {
		_, _ = st.Finalize()
		return
	}
	if !st.finalized.CompareAndSwap(false, true) {
		return
	}
	err := submit(context.Background(), st.db.bridge, dispatch.KindFinalize, st.db.lane, st,
		func(st *Statement) types.Code {
			st.db.mu.Lock()
			defer st.db.mu.Unlock()
			return st.finalizeLocked()
		},
		func(types.Code, error) {})
	if err != nil {
		Logger().Warn("statement left unfinalized", zap.Stringer("stmt", st.id), zap.Error(err))
	}
}

// SQL returns the text the statement was prepared from.
func (st *Statement) SQL() (string, error) {
	var sql string
	err := st.sync(func(s *native.Stmt) { sql = s.SQL() })
	return sql, err
}

// ParamCount returns the number of parameters.
func (st *Statement) ParamCount() (int, error) {
	var n int
	err := st.sync(func(s *native.Stmt) { n = s.ParamCount() })
	return n, err
}

// ColumnCount returns the number of result columns.
func (st *Statement) ColumnCount() (int, error) {
	var n int
	err := st.sync(func(s *native.Stmt) { n = s.ColumnCount() })
	return n, err
}

// ColumnName returns the name of column i.
func (st *Statement) ColumnName(i int) (string, error) {
	var name string
	err := st.sync(func(s *native.Stmt) { name = s.ColumnName(i) })
	return name, err
}

// ColumnType returns the type tag of column i in the current row.
func (st *Statement) ColumnType(i int) (types.ColumnType, error) {
	var t types.ColumnType
	err := st.sync(func(s *native.Stmt) { t = s.ColumnType(i) })
	return t, err
}

// ColumnInt64 returns column i as an exact 64-bit integer.
func (st *Statement) ColumnInt64(i int) (int64, error) {
	var v int64
	err := st.sync(func(s *native.Stmt) { v = s.ColumnInt64(i) })
	return v, err
}

// ColumnInteger returns column i as an int32 when the value lies within
// [math.MinInt32, math.MaxInt32] and as a float64 otherwise.
func (st *Statement) ColumnInteger(i int) (any, error) {
	v, err := st.ColumnInt64(i)
	if err != nil {
		return nil, err
	}
	return narrow(v), nil
}

func narrow(v int64) any {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		return int32(v)
	}
	return float64(v)
}

// ColumnFloat returns column i as a float64.
func (st *Statement) ColumnFloat(i int) (float64, error) {
	var v float64
	err := st.sync(func(s *native.Stmt) { v = s.ColumnDouble(i) })
	return v, err
}

// ColumnText returns column i as text. Embedded NUL bytes are kept.
func (st *Statement) ColumnText(i int) (string, error) {
	var v string
	err := st.sync(func(s *native.Stmt) { v = s.ColumnText(i) })
	return v, err
}

// ColumnBlob returns a copy of column i.
func (st *Statement) ColumnBlob(i int) ([]byte, error) {
	var v []byte
	err := st.sync(func(s *native.Stmt) { v = s.ColumnBlob(i) })
	return v, err
}

// Column returns column i as a Record typed by the engine.
func (st *Statement) Column(i int) (types.Record, error) {
	var r types.Record
	err := st.sync(func(s *native.Stmt) { r = s.Column(i) })
	return r, err
}

// usable checks the guards for dispatching a task on the statement.
func (st *Statement) usable() error {
	if st.finalized.Load() {
		return types.ErrFinalized
	}
	if st.db.isClosed() {
		return types.ErrClosed
	}
	return nil
}

// sync runs fn against the native statement on the calling goroutine.
func (st *Statement) sync(fn func(s *native.Stmt)) error {
	if err := st.usable(); err != nil {
		return err
	}
	if !st.db.lane.Available() {
		return types.ErrHandleBusy
	}
	if st.stmt == nil {
		return types.ErrNotPrepared
	}
	st.db.mu.Lock()
	defer st.db.mu.Unlock()
	fn(st.stmt)
	return nil
}

func (st *Statement) status(fn func(s *native.Stmt) types.Code) (types.Code, error) {
	code := types.CodeNone
	err := st.sync(func(s *native.Stmt) { code = fn(s) })
	return code, err
}
