package types

import (
	"fmt"
	"strconv"
)

// ColumnType is the engine's runtime type tag for a column value. It describes
// the value actually stored in the current row, not the declared schema type.
type ColumnType int

// Column type tags as reported by the engine.
const (
	TypeInteger ColumnType = 1
	TypeFloat   ColumnType = 2
	TypeText    ColumnType = 3
	TypeBlob    ColumnType = 4
	TypeNull    ColumnType = 5
)

func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeFloat:
		return "FLOAT"
	case TypeText:
		return "TEXT"
	case TypeBlob:
		return "BLOB"
	case TypeNull:
		return "NULL"
	default:
		return "ColumnType(" + strconv.Itoa(int(t)) + ")"
	}
}

// Record is one column value. Exactly one payload field is meaningful,
// selected by Type. Text and blob payloads are owned copies and are
// length-delimited, so embedded NUL bytes survive.
type Record struct {
	Type    ColumnType
	Integer int64
	Float   float64
	Bytes   []byte
}

// IntegerRecord returns a Record holding v.
func IntegerRecord(v int64) Record { return Record{Type: TypeInteger, Integer: v} }

// FloatRecord returns a Record holding v.
func FloatRecord(v float64) Record { return Record{Type: TypeFloat, Float: v} }

// TextRecord returns a Record holding a copy of s.
func TextRecord(s string) Record { return Record{Type: TypeText, Bytes: []byte(s)} }

// BlobRecord returns a Record holding a copy of b.
func BlobRecord(b []byte) Record {
	return Record{Type: TypeBlob, Bytes: append([]byte{}, b...)}
}

// NullRecord returns a NULL Record.
func NullRecord() Record { return Record{Type: TypeNull} }

// IsNull reports whether r holds NULL.
func (r Record) IsNull() bool { return r.Type == TypeNull }

// Text returns the text payload. It is empty for non-text records.
func (r Record) Text() string {
	if r.Type != TypeText {
		return ""
	}
	return string(r.Bytes)
}

// Value returns the payload as int64, float64, string, []byte or nil.
func (r Record) Value() any {
	switch r.Type {
	case TypeInteger:
		return r.Integer
	case TypeFloat:
		return r.Float
	case TypeText:
		return string(r.Bytes)
	case TypeBlob:
		return r.Bytes
	default:
		return nil
	}
}

func (r Record) String() string {
	switch r.Type {
	case TypeInteger:
		return strconv.FormatInt(r.Integer, 10)
	case TypeFloat:
		return strconv.FormatFloat(r.Float, 'g', -1, 64)
	case TypeText:
		return string(r.Bytes)
	case TypeBlob:
		return fmt.Sprintf("x'%x'", r.Bytes)
	default:
		return "NULL"
	}
}

// Row is one materialized result row. Its length equals the statement's
// column count when the row was read.
type Row []Record

// ResultSet is the fully drained output of a query. It is not modified after
// the materializer hands it to a continuation; the continuation owns it.
type ResultSet struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}
