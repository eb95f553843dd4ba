package bridge

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

const waitFor = 10 * time.Second

func newBridge(t *testing.T) *Bridge {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.Workers = 4
	cfg.RowCapacity = 4
	b, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		require.NoError(t, b.Close(ctx))
	})
	return b
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitFor):
		t.Fatal("continuation not invoked")
		panic("unreachable")
	}
}

func tempPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "test.db")
}

func openDB(t *testing.T, b *Bridge, path string) *Database {
	t.Helper()
	type result struct {
		code types.Code
		err  error
	}
	ch := make(chan result, 1)
	db, err := b.Open(context.Background(), path, func(_ *Database, code types.Code, err error) {
		ch <- result{code, err}
	})
	require.NoError(t, err)
	res := recv(t, ch)
	require.NoError(t, res.err)
	require.Equal(t, types.CodeOK, res.code)
	return db
}

func closeDB(t *testing.T, db *Database) types.Code {
	t.Helper()
	ch := make(chan types.Code, 1)
	require.NoError(t, db.Close(context.Background(), func(code types.Code, err error) {
		assert.NoError(t, err)
		ch <- code
	}))
	return recv(t, ch)
}

func prepare(t *testing.T, db *Database, sql string) (*Statement, types.Code) {
	t.Helper()
	ch := make(chan types.Code, 1)
	st, err := db.Prepare(context.Background(), sql, func(_ *Statement, code types.Code, err error) {
		assert.NoError(t, err)
		ch <- code
	})
	require.NoError(t, err)
	return st, recv(t, ch)
}

func mustPrepare(t *testing.T, db *Database, sql string) *Statement {
	t.Helper()
	st, code := prepare(t, db, sql)
	require.Equal(t, types.CodeOK, code, "prepare %q", sql)
	return st
}

func step(t *testing.T, st *Statement) types.Code {
	t.Helper()
	ch := make(chan types.Code, 1)
	require.NoError(t, st.Step(context.Background(), func(code types.Code, err error) {
		assert.NoError(t, err)
		ch <- code
	}))
	return recv(t, ch)
}

func query(t *testing.T, st *Statement) (*types.ResultSet, types.Code) {
	t.Helper()
	type result struct {
		rs   *types.ResultSet
		code types.Code
	}
	ch := make(chan result, 1)
	require.NoError(t, st.Query(context.Background(), func(rs *types.ResultSet, code types.Code, err error) {
		assert.NoError(t, err)
		ch <- result{rs, code}
	}))
	res := recv(t, ch)
	return res.rs, res.code
}

func finalize(t *testing.T, st *Statement) {
	t.Helper()
	code, err := st.Finalize()
	require.NoError(t, err)
	require.Equal(t, types.CodeOK, code)
}

func exec(t *testing.T, db *Database, sql string, params ...any) ExecResult {
	t.Helper()
	type result struct {
		res ExecResult
		err error
	}
	ch := make(chan result, 1)
	require.NoError(t, db.Execute(context.Background(), sql, params, func(res ExecResult, err error) {
		ch <- result{res, err}
	}))
	res := recv(t, ch)
	require.NoError(t, res.err, sql)
	return res.res
}
