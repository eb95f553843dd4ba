package bridge

import (
	"fmt"
	"math"

	"github.com/mesh-intelligence/sqlbridge/internal/native"
	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// bindValue picks the engine bind call from v's dynamic type. Integer kinds
// no wider than 32 bits (other than uint32) use the 32-bit call, the rest the
// 64-bit call. Unsigned values above math.MaxInt64 are rejected.
func bindValue(s *native.Stmt, index int, v any) (types.Code, error) {
	switch x := v.(type) {
	case nil:
		return s.BindNull(index), nil
	case int8:
		return s.BindInt(index, int32(x)), nil
	case int16:
		return s.BindInt(index, int32(x)), nil
	case int32:
		return s.BindInt(index, x), nil
	case uint8:
		return s.BindInt(index, int32(x)), nil
	case uint16:
		return s.BindInt(index, int32(x)), nil
	case int:
		return s.BindInt64(index, int64(x)), nil
	case int64:
		return s.BindInt64(index, x), nil
	case uint32:
		return s.BindInt64(index, int64(x)), nil
	case uint:
		return bindUint64(s, index, uint64(x))
	case uint64:
		return bindUint64(s, index, x)
	case float32:
		return s.BindDouble(index, float64(x)), nil
	case float64:
		return s.BindDouble(index, x), nil
	case string:
		return s.BindText(index, x), nil
	case []byte:
		return s.BindBlob(index, x), nil
	default:
		return types.CodeNone, fmt.Errorf("parameter %d: %w: %T", index, types.ErrUnsupportedType, v)
	}
}

func bindUint64(s *native.Stmt, index int, v uint64) (types.Code, error) {
	if v > math.MaxInt64 {
		return types.CodeNone, fmt.Errorf("parameter %d: %w: uint64 %d overflows int64", index, types.ErrUnsupportedType, v)
	}
	return s.BindInt64(index, int64(v)), nil
}
