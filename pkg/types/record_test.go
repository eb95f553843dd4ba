package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnTypeString(t *testing.T) {
	assert.Equal(t, "INTEGER", TypeInteger.String())
	assert.Equal(t, "FLOAT", TypeFloat.String())
	assert.Equal(t, "TEXT", TypeText.String())
	assert.Equal(t, "BLOB", TypeBlob.String())
	assert.Equal(t, "NULL", TypeNull.String())
	assert.Equal(t, "ColumnType(9)", ColumnType(9).String())
}

func TestRecord(t *testing.T) {
	tests := []struct {
		name      string
		record    Record
		wantValue any
		wantStr   string
		wantText  string
	}{
		{"integer", IntegerRecord(-42), int64(-42), "-42", ""},
		{"float", FloatRecord(2.5), 2.5, "2.5", ""},
		{"text", TextRecord("héllo"), "héllo", "héllo", "héllo"},
		{"text with NUL", TextRecord("a\x00b"), "a\x00b", "a\x00b", "a\x00b"},
		{"blob", BlobRecord([]byte{0xde, 0xad}), []byte{0xde, 0xad}, "x'dead'", ""},
		{"null", NullRecord(), nil, "NULL", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantValue, tt.record.Value())
			assert.Equal(t, tt.wantStr, tt.record.String())
			assert.Equal(t, tt.wantText, tt.record.Text())
			assert.Equal(t, tt.name == "null", tt.record.IsNull())
		})
	}
}

func TestBlobRecordCopies(t *testing.T) {
	src := []byte{1, 2, 3}
	r := BlobRecord(src)
	src[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, r.Bytes)

	empty := BlobRecord(nil)
	assert.Equal(t, TypeBlob, empty.Type)
	assert.Empty(t, empty.Bytes)
}

func TestResultSetLen(t *testing.T) {
	var rs *ResultSet
	assert.Equal(t, 0, rs.Len())

	rs = &ResultSet{Columns: []string{"a"}, Rows: []Row{{IntegerRecord(1)}, {NullRecord()}}}
	assert.Equal(t, 2, rs.Len())
}
