package types

import "fmt"

// Code is a result code reported by the database engine. Codes are passed
// through from the engine unmodified; the bridge never remaps or retries them.
type Code int32

// Primary engine result codes.
const (
	CodeOK         Code = 0
	CodeError      Code = 1
	CodeInternal   Code = 2
	CodePerm       Code = 3
	CodeAbort      Code = 4
	CodeBusy       Code = 5
	CodeLocked     Code = 6
	CodeNoMem      Code = 7
	CodeReadOnly   Code = 8
	CodeInterrupt  Code = 9
	CodeIOErr      Code = 10
	CodeCorrupt    Code = 11
	CodeNotFound   Code = 12
	CodeFull       Code = 13
	CodeCantOpen   Code = 14
	CodeProtocol   Code = 15
	CodeEmpty      Code = 16
	CodeSchema     Code = 17
	CodeTooBig     Code = 18
	CodeConstraint Code = 19
	CodeMismatch   Code = 20
	CodeMisuse     Code = 21
	CodeNoLFS      Code = 22
	CodeAuth       Code = 23
	CodeFormat     Code = 24
	CodeRange      Code = 25
	CodeNotADB     Code = 26
	CodeNotice     Code = 27
	CodeWarning    Code = 28
	CodeRow        Code = 100
	CodeDone       Code = 101
)

// CodeNone marks an outcome for which no engine call was made, such as a task
// abandoned before its worker started.
const CodeNone Code = -1

var codeNames = map[Code]string{
	CodeOK:         "SQLITE_OK",
	CodeError:      "SQLITE_ERROR",
	CodeInternal:   "SQLITE_INTERNAL",
	CodePerm:       "SQLITE_PERM",
	CodeAbort:      "SQLITE_ABORT",
	CodeBusy:       "SQLITE_BUSY",
	CodeLocked:     "SQLITE_LOCKED",
	CodeNoMem:      "SQLITE_NOMEM",
	CodeReadOnly:   "SQLITE_READONLY",
	CodeInterrupt:  "SQLITE_INTERRUPT",
	CodeIOErr:      "SQLITE_IOERR",
	CodeCorrupt:    "SQLITE_CORRUPT",
	CodeNotFound:   "SQLITE_NOTFOUND",
	CodeFull:       "SQLITE_FULL",
	CodeCantOpen:   "SQLITE_CANTOPEN",
	CodeProtocol:   "SQLITE_PROTOCOL",
	CodeEmpty:      "SQLITE_EMPTY",
	CodeSchema:     "SQLITE_SCHEMA",
	CodeTooBig:     "SQLITE_TOOBIG",
	CodeConstraint: "SQLITE_CONSTRAINT",
	CodeMismatch:   "SQLITE_MISMATCH",
	CodeMisuse:     "SQLITE_MISUSE",
	CodeNoLFS:      "SQLITE_NOLFS",
	CodeAuth:       "SQLITE_AUTH",
	CodeFormat:     "SQLITE_FORMAT",
	CodeRange:      "SQLITE_RANGE",
	CodeNotADB:     "SQLITE_NOTADB",
	CodeNotice:     "SQLITE_NOTICE",
	CodeWarning:    "SQLITE_WARNING",
	CodeRow:        "SQLITE_ROW",
	CodeDone:       "SQLITE_DONE",
	CodeNone:       "NONE",
}

var codeDescriptions = map[Code]string{
	CodeOK:     "Successful result",
	CodeError:  "SQL error or missing database",
	CodeRange:  "2nd parameter to sqlite3_bind out of range",
	CodeNotADB: "File opened that is not a database file",
	CodeRow:    "sqlite3_step() has another row ready",
	CodeDone:   "sqlite3_step() has finished executing",
	CodeNone:   "no engine call was made",
}

// Name returns the engine identifier for c, or "UNKNOWN". Extended codes are
// named after their primary code.
func (c Code) Name() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	if c > 0 {
		if name, ok := codeNames[c&0xff]; ok {
			return name
		}
	}
	return "UNKNOWN"
}

// String renders c as "IDENT (n): description", dropping the description
// when none is known.
func (c Code) String() string {
	if desc, ok := codeDescriptions[c]; ok {
		return fmt.Sprintf("%s (%d): %s", c.Name(), int32(c), desc)
	}
	return fmt.Sprintf("%s (%d)", c.Name(), int32(c))
}

// IsSuccess reports whether c is one of the non-error outcomes OK, ROW or DONE.
func (c Code) IsSuccess() bool {
	return c == CodeOK || c == CodeRow || c == CodeDone
}
