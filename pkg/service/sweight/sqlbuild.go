package sweight

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/idwrap"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/weight"
)

var ErrUnknownDialect = errors.New("unknown sql dialect")

// Dialect selects placeholder syntax and the column that breaks weight ties.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

func (d Dialect) String() string {
	switch d {
	case DialectSQLite:
		return "sqlite"
	case DialectPostgres:
		return "postgres"
	default:
		return "unknown"
	}
}

func (d Dialect) placeholder(n int) string {
	if d == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// tieBreak orders rows with equal weights by insertion.
func (d Dialect) tieBreak() string {
	if d == DialectPostgres {
		return `"seq"`
	}
	return "rowid"
}

const (
	DefaultTable       = "items"
	DefaultIDColumn    = "id"
	DefaultNameColumn  = "name"
	DefaultGroupColumn = "group_key"
)

type Config struct {
	Table      string
	IDColumn   string
	NameColumn string
	Weight     weight.Config
	Dialect    Dialect
}

// DefaultConfig matches the schema created by weightdb.
func DefaultConfig() Config {
	return Config{
		Table:      DefaultTable,
		IDColumn:   DefaultIDColumn,
		NameColumn: DefaultNameColumn,
		Weight: weight.Config{
			WeightColumn: weight.DefaultWeightColumn,
			GroupColumn:  DefaultGroupColumn,
		},
	}
}

// WithDefaults fills empty names with the Default* constants.
func (c Config) WithDefaults() Config {
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.IDColumn == "" {
		c.IDColumn = DefaultIDColumn
	}
	if c.NameColumn == "" {
		c.NameColumn = DefaultNameColumn
	}
	if c.Weight.WeightColumn == "" {
		c.Weight.WeightColumn = weight.DefaultWeightColumn
	}
	return c
}

func (c Config) Validate() error {
	c = c.WithDefaults()
	if err := c.Weight.Validate(); err != nil {
		return err
	}
	for _, name := range []string{c.Table, c.IDColumn, c.NameColumn} {
		if !weight.ValidIdentifier(name) {
			return fmt.Errorf("%w: %q", weight.ErrInvalidColumn, name)
		}
	}
	cols := c.columns()
	for i, col := range cols {
		if slices.Contains(cols[i+1:], col) {
			return fmt.Errorf("%w: column %q configured twice", weight.ErrInvalidColumn, col)
		}
	}
	if c.Dialect != DialectSQLite && c.Dialect != DialectPostgres {
		return fmt.Errorf("%w: %d", ErrUnknownDialect, c.Dialect)
	}
	return nil
}

func (c Config) columns() []string {
	cols := []string{c.IDColumn, c.NameColumn, c.Weight.WeightColumn}
	if c.Weight.Grouped() {
		cols = append(cols, c.Weight.GroupColumn)
	}
	return cols
}

func (c Config) known(column string) bool {
	return slices.Contains(c.columns(), column)
}

func quote(name string) string {
	return `"` + name + `"`
}

func (c Config) selectList() string {
	group := "NULL"
	if c.Weight.Grouped() {
		group = quote(c.Weight.GroupColumn)
	}
	return strings.Join([]string{
		quote(c.IDColumn),
		group,
		quote(c.NameColumn),
		quote(c.Weight.WeightColumn),
	}, ", ")
}

// normalize converts a caller value into what the driver stores for column.
func (c Config) normalize(column string, v any) (any, error) {
	switch column {
	case c.Weight.WeightColumn:
		n, ok := weight.Fields{column: v}.Int64(column)
		if !ok {
			return nil, fmt.Errorf("%w: weight value %T", weight.ErrUnsupportedQuery, v)
		}
		return n, nil
	case c.IDColumn:
		switch id := v.(type) {
		case idwrap.IDWrap:
			return id, nil
		case *idwrap.IDWrap:
			if id == nil {
				return nil, fmt.Errorf("%w: nil id", weight.ErrUnsupportedQuery)
			}
			return *id, nil
		}
		return nil, fmt.Errorf("%w: id value %T", weight.ErrUnsupportedQuery, v)
	case c.NameColumn, c.Weight.GroupColumn:
		switch s := v.(type) {
		case nil:
			return nil, nil
		case string:
			return s, nil
		case *string:
			if s == nil {
				return nil, nil
			}
			return *s, nil
		}
		return nil, fmt.Errorf("%w: %s value %T", weight.ErrUnsupportedQuery, column, v)
	}
	return nil, fmt.Errorf("%w: unknown column %q", weight.ErrUnsupportedQuery, column)
}

type builder struct {
	cfg  Config
	args []any
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.cfg.Dialect.placeholder(len(b.args))
}

func (b *builder) where(filters []weight.Filter) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		if !b.cfg.known(f.Column) {
			return "", fmt.Errorf("%w: unknown column %q", weight.ErrUnsupportedQuery, f.Column)
		}
		col := quote(f.Column)
		switch f.Op {
		case weight.OpIsNull:
			parts = append(parts, col+" IS NULL")
		case weight.OpEq, weight.OpLt, weight.OpGt:
			v, err := b.cfg.normalize(f.Column, f.Value)
			if err != nil {
				return "", err
			}
			if v == nil && f.Op == weight.OpEq {
				parts = append(parts, col+" IS NULL")
				continue
			}
			parts = append(parts, fmt.Sprintf("%s %s %s", col, f.Op, b.bind(v)))
		default:
			return "", fmt.Errorf("%w: operator %s", weight.ErrUnsupportedQuery, f.Op)
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

func (c Config) buildSelect(q weight.Query) (string, []any, error) {
	b := &builder{cfg: c}
	where, err := b.where(q.Filters)
	if err != nil {
		return "", nil, err
	}
	dir := "ASC"
	if q.Order == weight.OrderDesc {
		dir = "DESC"
	}
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s %s, %s ASC",
		c.selectList(), quote(c.Table), where, quote(c.Weight.WeightColumn), dir, c.Dialect.tieBreak())
	if q.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(q.Limit)
	}
	return query, b.args, nil
}

func (c Config) buildGet(id idwrap.IDWrap) (string, []any) {
	b := &builder{cfg: c}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		c.selectList(), quote(c.Table), quote(c.IDColumn), b.bind(id))
	return query, b.args
}

// buildInsert fills unset columns with the table defaults and generates an id
// when fields carry none.
func (c Config) buildInsert(fields weight.Fields) (string, []any, idwrap.IDWrap, error) {
	for col := range fields {
		if !c.known(col) {
			return "", nil, idwrap.IDWrap{}, fmt.Errorf("%w: unknown column %q", weight.ErrInvalidColumn, col)
		}
	}

	id := idwrap.NewNow()
	if v, ok := fields[c.IDColumn]; ok && v != nil {
		norm, err := c.normalize(c.IDColumn, v)
		if err != nil {
			return "", nil, idwrap.IDWrap{}, err
		}
		if given := norm.(idwrap.IDWrap); !given.IsZero() {
			id = given
		}
	}

	values := map[string]any{
		c.IDColumn:            id,
		c.NameColumn:          "",
		c.Weight.WeightColumn: int64(0),
	}
	if c.Weight.Grouped() {
		values[c.Weight.GroupColumn] = nil
	}
	for col, v := range fields {
		if col == c.IDColumn {
			continue
		}
		norm, err := c.normalize(col, v)
		if err != nil {
			return "", nil, idwrap.IDWrap{}, err
		}
		if col == c.NameColumn && norm == nil {
			norm = ""
		}
		values[col] = norm
	}

	b := &builder{cfg: c}
	cols := c.columns()
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quote(col)
		marks[i] = b.bind(values[col])
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(c.Table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	return query, b.args, id, nil
}

func (c Config) buildUpdate(id idwrap.IDWrap, fields weight.Fields) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("%w: no fields to update", weight.ErrUnsupportedQuery)
	}
	cols := make([]string, 0, len(fields))
	for col := range fields {
		if col == c.IDColumn || !c.known(col) {
			return "", nil, fmt.Errorf("%w: cannot update column %q", weight.ErrInvalidColumn, col)
		}
		cols = append(cols, col)
	}
	slices.Sort(cols)

	b := &builder{cfg: c}
	sets := make([]string, len(cols))
	for i, col := range cols {
		v, err := c.normalize(col, fields[col])
		if err != nil {
			return "", nil, err
		}
		if col == c.NameColumn && v == nil {
			v = ""
		}
		sets[i] = fmt.Sprintf("%s = %s", quote(col), b.bind(v))
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		quote(c.Table), strings.Join(sets, ", "), quote(c.IDColumn), b.bind(id))
	return query, b.args, nil
}

func (c Config) buildDelete(id idwrap.IDWrap) (string, []any) {
	b := &builder{cfg: c}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", quote(c.Table), quote(c.IDColumn), b.bind(id))
	return query, b.args
}
