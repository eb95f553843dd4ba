package bridge

import (
	"github.com/mesh-intelligence/sqlbridge/internal/native"
	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// materialize steps s until it stops producing rows and copies every row
// into owned Records. Each row is as wide as the column count reported at
// the time it was read. The returned code is the status that ended the
// drain; rows read before a failure are kept.
func materialize(s *native.Stmt, capacity int) (*types.ResultSet, types.Code) {
	n := s.ColumnCount()
	rs := &types.ResultSet{
		Columns: make([]string, n),
		Rows:    make([]types.Row, 0, capacity),
	}
	for i := range rs.Columns {
		rs.Columns[i] = s.ColumnName(i)
	}

	for {
		code := s.Step()
		if code != types.CodeRow {
			return rs, code
		}
		row := make(types.Row, s.ColumnCount())
		for i := range row {
			row[i] = s.Column(i)
		}
		rs.Rows = append(rs.Rows, row)
	}
}
