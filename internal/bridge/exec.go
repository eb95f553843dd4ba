package bridge

import (
	"context"

	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// ExecResult reports the effect of a statement run by Execute.
type ExecResult struct {
	Changes         int   `json:"changes"`
	LastInsertRowID int64 `json:"last_insert_rowid"`
}

// Execute prepares sql, binds params, steps it once and finalizes it. fn
// runs on the loop exactly once; engine failures arrive as
// *types.EngineError. The returned error covers only the first dispatch.
func (db *Database) Execute(ctx context.Context, sql string, params []any, fn func(ExecResult, error)) error {
	_, err := db.Prepare(ctx, sql, func(st *Statement, code types.Code, err error) {
		if err = prepared(st, code, err, params); err != nil {
			fn(ExecResult{}, err)
			return
		}
		serr := st.Step(ctx, func(code types.Code, err error) {
			if err == nil {
				err = db.Error(code)
			}
			var res ExecResult
			if err == nil {
				res.Changes, err = db.Changes()
			}
			if err == nil {
				res.LastInsertRowID, err = db.LastInsertRowID()
			}
			st.discard()
			fn(res, err)
		})
		if serr != nil {
			st.discard()
			fn(ExecResult{}, serr)
		}
	})
	return err
}

// QueryAll prepares sql, binds params, materializes every row and finalizes
// the statement. A failing drain reports the engine error and no rows.
func (db *Database) QueryAll(ctx context.Context, sql string, params []any, fn func(*types.ResultSet, error)) error {
	_, err := db.Prepare(ctx, sql, func(st *Statement, code types.Code, err error) {
		if err = prepared(st, code, err, params); err != nil {
			fn(nil, err)
			return
		}
		qerr := st.Query(ctx, func(rs *types.ResultSet, code types.Code, err error) {
			if err == nil {
				err = db.Error(code)
			}
			st.discard()
			if err != nil {
				fn(nil, err)
				return
			}
			fn(rs, nil)
		})
		if qerr != nil {
			st.discard()
			fn(nil, qerr)
		}
	})
	return err
}

// prepared checks the outcome of a prepare and binds params. On failure the
// statement has been disposed of.
func prepared(st *Statement, code types.Code, err error, params []any) error {
	if err == nil {
		err = st.db.Error(code)
	}
	if err == nil {
		code, err = st.BindAll(params...)
		if err == nil {
			err = st.db.Error(code)
		}
	}
	if err != nil {
		st.discard()
	}
	return err
}
