package weight

import (
	"context"
	"maps"
	"math"

	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/idwrap"
)

// Record is a persisted row with an ordering weight.
type Record interface {
	GetID() idwrap.IDWrap
	GetWeight() int64
	// GetGroup returns the group key and whether the record has one.
	GetGroup() (any, bool)
}

type Op int

const (
	OpEq Op = iota + 1
	OpIsNull
	OpLt
	OpGt
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpIsNull:
		return "IS NULL"
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	default:
		return "?"
	}
}

type Filter struct {
	Column string
	Op     Op
	Value  any
}

type Order int

const (
	OrderAsc Order = iota
	OrderDesc
)

// Query selects records. Order always applies to the weight column; records
// with equal weight come back in the store's insertion order.
type Query struct {
	Filters []Filter
	Order   Order
	Limit   int
}

// Where returns a copy of q with f appended.
func (q Query) Where(f Filter) Query {
	filters := make([]Filter, 0, len(q.Filters)+1)
	filters = append(filters, q.Filters...)
	q.Filters = append(filters, f)
	return q
}

// Fields maps column names to values for partial updates and inserts.
type Fields map[string]any

func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	return maps.Clone(f)
}

// Int64 reads an integer column, accepting the integer kinds callers commonly
// use and floats with no fractional part, as decoded JSON carries. A nil value
// counts as unset. Values outside the int64 range are rejected.
func (f Fields) Int64(column string) (int64, bool) {
	v, ok := f[column]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case uint:
		return uintToInt64(uint64(n))
	case uint64:
		return uintToInt64(n)
	case uint32:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint8:
		return int64(n), true
	case float64:
		return floatToInt64(n)
	case float32:
		return floatToInt64(float64(n))
	default:
		return 0, false
	}
}

func uintToInt64(n uint64) (int64, bool) {
	if n > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}

func floatToInt64(n float64) (int64, bool) {
	// 2^63 is exact in float64; MaxInt64 is not.
	if n != math.Trunc(n) || n < math.MinInt64 || n >= 1<<63 {
		return 0, false
	}
	return int64(n), true
}

// RecordStore is the storage collaborator. Implementations must return
// ErrNoRecord (possibly wrapped) from First and Refresh when nothing matches.
type RecordStore interface {
	Find(ctx context.Context, q Query) ([]Record, error)
	First(ctx context.Context, q Query) (Record, error)
	Update(ctx context.Context, rec Record, fields Fields) (Record, error)
	Refresh(ctx context.Context, rec Record) (Record, error)
}

// Creator persists a new record from fields.
type Creator interface {
	Create(ctx context.Context, fields Fields) (Record, error)
}

// CreatorFunc adapts a function to Creator.
type CreatorFunc func(ctx context.Context, fields Fields) (Record, error)

func (f CreatorFunc) Create(ctx context.Context, fields Fields) (Record, error) {
	return f(ctx, fields)
}
