// Package native is the narrow synchronous interface to the SQLite engine.
// Every function here blocks the calling goroutine for the duration of one
// engine call and performs no locking of its own; callers serialize access
// per connection.
package native

import (
	"fmt"
	"unsafe"

	"modernc.org/libc"
	"modernc.org/libc/sys/types"
	sqlite3 "modernc.org/sqlite/lib"

	bt "github.com/mesh-intelligence/sqlbridge/pkg/types"
)

const ptrSize = unsafe.Sizeof(uintptr(0))

// openFlags are the flags every connection is opened with.
const openFlags = sqlite3.SQLITE_OPEN_READWRITE | sqlite3.SQLITE_OPEN_CREATE | sqlite3.SQLITE_OPEN_URI

// Conn owns one native connection pointer and the libc thread state used for
// every call made through it, including calls on its statements.
type Conn struct {
	tls *libc.TLS
	db  uintptr // *sqlite3.Xsqlite3
}

// NewConn allocates the thread state for a connection. The native pointer
// stays null until Open runs.
func NewConn() *Conn {
	return &Conn{tls: libc.NewTLS()}
}

// Open opens the database at path. When the engine fails after allocating a
// connection object, the pointer is kept so that Close can free it.
func (c *Conn) Open(path string) bt.Code {
	var pp, zName uintptr
	defer func() {
		c.free(pp)
		c.free(zName)
	}()

	pp, err := c.malloc(int(ptrSize))
	if err != nil {
		return bt.CodeNoMem
	}
	*(*uintptr)(unsafe.Pointer(pp)) = 0

	if zName, err = libc.CString(path); err != nil {
		return bt.CodeNoMem
	}

	rc := sqlite3.Xsqlite3_open_v2(c.tls, zName, pp, openFlags, 0)
	c.db = *(*uintptr)(unsafe.Pointer(pp))
	return bt.Code(rc)
}

// Close closes the connection with close_v2, which defers the release of any
// statements that are still open until they are finalized. A null pointer is
// accepted and reported as OK.
func (c *Conn) Close() bt.Code {
	rc := sqlite3.Xsqlite3_close_v2(c.tls, c.db)
	if rc == sqlite3.SQLITE_OK {
		c.db = 0
	}
	return bt.Code(rc)
}

// Release frees the libc thread state. No call may be made on c or any of its
// statements afterwards.
func (c *Conn) Release() {
	if c.tls != nil {
		c.tls.Close()
		c.tls = nil
	}
}

// Valid reports whether the connection holds a native pointer.
func (c *Conn) Valid() bool {
	return c.db != 0
}

// Errmsg returns the engine's message for the most recent failure.
func (c *Conn) Errmsg() string {
	return libc.GoString(sqlite3.Xsqlite3_errmsg(c.tls, c.db))
}

// Autocommit reports whether the connection is in autocommit mode.
func (c *Conn) Autocommit() bool {
	return sqlite3.Xsqlite3_get_autocommit(c.tls, c.db) != 0
}

// Changes returns the number of rows modified by the most recent statement.
func (c *Conn) Changes() int {
	return int(sqlite3.Xsqlite3_changes(c.tls, c.db))
}

// TotalChanges returns the number of rows modified by every statement run on
// the connection since it was opened.
func (c *Conn) TotalChanges() int64 {
	return int64(sqlite3.Xsqlite3_total_changes(c.tls, c.db))
}

// LastInsertRowID returns the rowid of the most recent successful insert.
func (c *Conn) LastInsertRowID() int64 {
	return sqlite3.Xsqlite3_last_insert_rowid(c.tls, c.db)
}

// Prepare compiles the first statement in sql. The byte length handed to the
// engine is taken from sql itself. On failure the returned Stmt holds a null
// pointer, which Finalize accepts.
func (c *Conn) Prepare(sql string) (*Stmt, bt.Code) {
	s := &Stmt{conn: c}

	var pp, zSQL uintptr
	defer func() {
		c.free(pp)
		c.free(zSQL)
	}()

	pp, err := c.malloc(int(ptrSize))
	if err != nil {
		return s, bt.CodeNoMem
	}
	*(*uintptr)(unsafe.Pointer(pp)) = 0

	if zSQL, err = libc.CString(sql); err != nil {
		return s, bt.CodeNoMem
	}

	rc := sqlite3.Xsqlite3_prepare_v2(c.tls, c.db, zSQL, int32(len(sql)), pp, 0)
	if rc == sqlite3.SQLITE_OK {
		s.pstmt = *(*uintptr)(unsafe.Pointer(pp))
	}
	return s, bt.Code(rc)
}

func (c *Conn) malloc(n int) (uintptr, error) {
	if p := libc.Xmalloc(c.tls, types.Size_t(n)); p != 0 || n == 0 {
		return p, nil
	}
	return 0, fmt.Errorf("sqlite: cannot allocate %d bytes of memory", n)
}

func (c *Conn) free(p uintptr) {
	if p != 0 {
		libc.Xfree(c.tls, p)
	}
}

// LibVersion returns the engine library version, e.g. "3.50.4".
func LibVersion() string {
	tls := libc.NewTLS()
	defer tls.Close()
	return libc.GoString(sqlite3.Xsqlite3_libversion(tls))
}
