package native

import (
	"unsafe"

	"modernc.org/libc"
	sqlite3 "modernc.org/sqlite/lib"

	bt "github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// Stmt owns one prepared statement pointer and the buffers of its text and
// blob parameters. Buffers are bound with the static destructor, so they
// live until the parameter is rebound, the bindings are cleared, or the
// statement is finalized.
type Stmt struct {
	conn   *Conn
	pstmt  uintptr // *sqlite3.Xsqlite3_stmt
	params map[int]uintptr
}

// Valid reports whether the statement holds a native pointer.
func (s *Stmt) Valid() bool {
	return s.pstmt != 0
}

// Step advances the statement once and returns ROW, DONE or an error code.
func (s *Stmt) Step() bt.Code {
	return bt.Code(sqlite3.Xsqlite3_step(s.conn.tls, s.pstmt))
}

// Reset rewinds the statement. Bindings are kept.
func (s *Stmt) Reset() bt.Code {
	return bt.Code(sqlite3.Xsqlite3_reset(s.conn.tls, s.pstmt))
}

// ClearBindings sets every parameter to NULL and frees the parameter buffers.
func (s *Stmt) ClearBindings() bt.Code {
	rc := sqlite3.Xsqlite3_clear_bindings(s.conn.tls, s.pstmt)
	if rc == sqlite3.SQLITE_OK {
		s.freeParams()
	}
	return bt.Code(rc)
}

// Finalize destroys the statement. A null pointer is accepted.
func (s *Stmt) Finalize() bt.Code {
	rc := sqlite3.Xsqlite3_finalize(s.conn.tls, s.pstmt)
	s.pstmt = 0
	s.freeParams()
	return bt.Code(rc)
}

// SQL returns the text the statement was prepared from.
func (s *Stmt) SQL() string {
	return libc.GoString(sqlite3.Xsqlite3_sql(s.conn.tls, s.pstmt))
}

// ParamCount returns the number of parameters.
func (s *Stmt) ParamCount() int {
	return int(sqlite3.Xsqlite3_bind_parameter_count(s.conn.tls, s.pstmt))
}

// BindInt binds a 32-bit integer to the 1-based parameter index.
func (s *Stmt) BindInt(index int, v int32) bt.Code {
	return s.bound(index, 0, sqlite3.Xsqlite3_bind_int(s.conn.tls, s.pstmt, int32(index), v))
}

// BindInt64 binds a 64-bit integer.
func (s *Stmt) BindInt64(index int, v int64) bt.Code {
	return s.bound(index, 0, sqlite3.Xsqlite3_bind_int64(s.conn.tls, s.pstmt, int32(index), v))
}

// BindDouble binds a float.
func (s *Stmt) BindDouble(index int, v float64) bt.Code {
	return s.bound(index, 0, sqlite3.Xsqlite3_bind_double(s.conn.tls, s.pstmt, int32(index), v))
}

// BindNull binds NULL.
func (s *Stmt) BindNull(index int) bt.Code {
	return s.bound(index, 0, sqlite3.Xsqlite3_bind_null(s.conn.tls, s.pstmt, int32(index)))
}

// BindText binds v as text of exactly len(v) bytes.
func (s *Stmt) BindText(index int, v string) bt.Code {
	p, err := libc.CString(v)
	if err != nil {
		return bt.CodeNoMem
	}
	return s.bound(index, p, sqlite3.Xsqlite3_bind_text(s.conn.tls, s.pstmt, int32(index), p, int32(len(v)), 0))
}

// BindBlob binds a copy of v. An empty slice binds a zero-length blob.
func (s *Stmt) BindBlob(index int, v []byte) bt.Code {
	if len(v) == 0 {
		return s.bound(index, 0, sqlite3.Xsqlite3_bind_zeroblob(s.conn.tls, s.pstmt, int32(index), 0))
	}
	p, err := s.conn.malloc(len(v))
	if err != nil {
		return bt.CodeNoMem
	}
	copy((*libc.RawMem)(unsafe.Pointer(p))[:len(v):len(v)], v)
	return s.bound(index, p, sqlite3.Xsqlite3_bind_blob(s.conn.tls, s.pstmt, int32(index), p, int32(len(v)), 0))
}

// bound records the buffer now backing parameter index. On failure the new
// buffer is freed and the previous one stays in place.
func (s *Stmt) bound(index int, p uintptr, rc int32) bt.Code {
	if rc != sqlite3.SQLITE_OK {
		s.conn.free(p)
		return bt.Code(rc)
	}
	if old, ok := s.params[index]; ok {
		s.conn.free(old)
		delete(s.params, index)
	}
	if p != 0 {
		if s.params == nil {
			s.params = make(map[int]uintptr)
		}
		s.params[index] = p
	}
	return bt.CodeOK
}

func (s *Stmt) freeParams() {
	for i, p := range s.params {
		s.conn.free(p)
		delete(s.params, i)
	}
}

// ColumnCount returns the number of result columns.
func (s *Stmt) ColumnCount() int {
	return int(sqlite3.Xsqlite3_column_count(s.conn.tls, s.pstmt))
}

// ColumnName returns the name of column i.
func (s *Stmt) ColumnName(i int) string {
	return libc.GoString(sqlite3.Xsqlite3_column_name(s.conn.tls, s.pstmt, int32(i)))
}

// ColumnType returns the runtime type of column i in the current row.
func (s *Stmt) ColumnType(i int) bt.ColumnType {
	return bt.ColumnType(sqlite3.Xsqlite3_column_type(s.conn.tls, s.pstmt, int32(i)))
}

// ColumnInt64 returns column i as a 64-bit integer.
func (s *Stmt) ColumnInt64(i int) int64 {
	return sqlite3.Xsqlite3_column_int64(s.conn.tls, s.pstmt, int32(i))
}

// ColumnDouble returns column i as a float.
func (s *Stmt) ColumnDouble(i int) float64 {
	return sqlite3.Xsqlite3_column_double(s.conn.tls, s.pstmt, int32(i))
}

// ColumnText returns a copy of column i as text.
func (s *Stmt) ColumnText(i int) string {
	return string(s.columnText(i))
}

func (s *Stmt) columnText(i int) []byte {
	p := sqlite3.Xsqlite3_column_text(s.conn.tls, s.pstmt, int32(i))
	n := int(sqlite3.Xsqlite3_column_bytes(s.conn.tls, s.pstmt, int32(i)))
	b := make([]byte, n)
	if p != 0 && n != 0 {
		copy(b, (*libc.RawMem)(unsafe.Pointer(p))[:n:n])
	}
	return b
}

// ColumnBlob returns a copy of column i as bytes. A zero-length value yields
// an empty, non-nil slice.
func (s *Stmt) ColumnBlob(i int) []byte {
	p := sqlite3.Xsqlite3_column_blob(s.conn.tls, s.pstmt, int32(i))
	n := int(sqlite3.Xsqlite3_column_bytes(s.conn.tls, s.pstmt, int32(i)))
	b := make([]byte, n)
	if p != 0 && n != 0 {
		copy(b, (*libc.RawMem)(unsafe.Pointer(p))[:n:n])
	}
	return b
}

// Column reads column i of the current row as a Record typed by the engine's
// runtime type tag.
func (s *Stmt) Column(i int) bt.Record {
	switch t := s.ColumnType(i); t {
	case bt.TypeInteger:
		return bt.IntegerRecord(s.ColumnInt64(i))
	case bt.TypeFloat:
		return bt.FloatRecord(s.ColumnDouble(i))
	case bt.TypeText:
		return bt.Record{Type: bt.TypeText, Bytes: s.columnText(i)}
	case bt.TypeBlob:
		return bt.Record{Type: bt.TypeBlob, Bytes: s.ColumnBlob(i)}
	default:
		return bt.NullRecord()
	}
}
