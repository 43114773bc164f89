// Package weightmem is an in-memory weight.RecordStore. Rows keep insertion
// order, which is the tie-break among equal weights.
package weightmem

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/idwrap"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/weight"
)

// Row is a stored record. Extra holds every column that is neither the id,
// the weight nor the group.
type Row struct {
	ID       idwrap.IDWrap
	Weight   int64
	Group    any
	HasGroup bool
	Extra    map[string]any
}

func (r Row) GetID() idwrap.IDWrap  { return r.ID }
func (r Row) GetWeight() int64      { return r.Weight }
func (r Row) GetGroup() (any, bool) { return r.Group, r.HasGroup }

type Store struct {
	mu     sync.Mutex
	cfg    weight.Config
	rows   []*Row
	reads  int
	writes int
}

func New(cfg weight.Config) *Store {
	if cfg.WeightColumn == "" {
		cfg.WeightColumn = weight.DefaultWeightColumn
	}
	return &Store{cfg: cfg}
}

const IDColumn = "id"

func (s *Store) Find(ctx context.Context, q weight.Query) ([]weight.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++

	matched := make([]*Row, 0, len(s.rows))
	for _, row := range s.rows {
		ok, err := s.match(row, q.Filters)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, row)
		}
	}

	slices.SortStableFunc(matched, func(a, b *Row) int {
		if q.Order == weight.OrderDesc {
			return cmp.Compare(b.Weight, a.Weight)
		}
		return cmp.Compare(a.Weight, b.Weight)
	})
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]weight.Record, len(matched))
	for i, row := range matched {
		out[i] = row.clone()
	}
	return out, nil
}

func (s *Store) First(ctx context.Context, q weight.Query) (weight.Record, error) {
	q.Limit = 1
	found, err := s.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, weight.ErrNoRecord
	}
	return found[0], nil
}

// Update applies fields to the stored row. Only the weight and group columns
// and extra columns can be written; the id is immutable.
func (s *Store) Update(ctx context.Context, rec weight.Record, fields weight.Fields) (weight.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.lookup(rec.GetID())
	if row == nil {
		return nil, fmt.Errorf("update %s: %w", rec.GetID(), weight.ErrNoRecord)
	}
	next := row.clone()
	if err := s.apply(&next, fields); err != nil {
		return nil, err
	}
	*row = next
	s.writes++
	return row.clone(), nil
}

func (s *Store) Refresh(ctx context.Context, rec weight.Record) (weight.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++

	row := s.lookup(rec.GetID())
	if row == nil {
		return nil, fmt.Errorf("refresh %s: %w", rec.GetID(), weight.ErrNoRecord)
	}
	return row.clone(), nil
}

// Create stores a new row. An idwrap.IDWrap under IDColumn is used as the
// identity, otherwise a fresh one is generated.
func (s *Store) Create(ctx context.Context, fields weight.Fields) (weight.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row := Row{ID: idwrap.NewNow()}
	if id, ok := fields[IDColumn].(idwrap.IDWrap); ok && !id.IsZero() {
		if s.lookup(id) != nil {
			return nil, fmt.Errorf("create %s: id already exists", id)
		}
		row.ID = id
	}
	rest := fields.Clone()
	delete(rest, IDColumn)
	if err := s.apply(&row, rest); err != nil {
		return nil, err
	}
	s.rows = append(s.rows, &row)
	s.writes++
	return row.clone(), nil
}

func (s *Store) Delete(ctx context.Context, id idwrap.IDWrap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.rows, func(r *Row) bool { return r.ID == id })
	if i < 0 {
		return fmt.Errorf("delete %s: %w", id, weight.ErrNoRecord)
	}
	s.rows = slices.Delete(s.rows, i, i+1)
	s.writes++
	return nil
}

// Writes counts successful Update, Create and Delete calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Reads counts Find, First and Refresh calls.
func (s *Store) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Rows returns a snapshot of every row in insertion order.
func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Row, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.clone()
	}
	return out
}

func (s *Store) lookup(id idwrap.IDWrap) *Row {
	for _, r := range s.rows {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *Store) apply(row *Row, fields weight.Fields) error {
	for col, v := range fields {
		switch {
		case col == IDColumn:
			return fmt.Errorf("%w: id is immutable", weight.ErrUnsupportedQuery)
		case col == s.cfg.WeightColumn:
			w, ok := fields.Int64(col)
			if !ok && v != nil {
				return fmt.Errorf("%w: weight must be an integer, got %T", weight.ErrUnsupportedQuery, v)
			}
			row.Weight = w
		case s.cfg.Grouped() && col == s.cfg.GroupColumn:
			row.Group, row.HasGroup = v, v != nil
		default:
			if row.Extra == nil {
				row.Extra = make(map[string]any)
			}
			row.Extra[col] = v
		}
	}
	return nil
}

func (s *Store) match(row *Row, filters []weight.Filter) (bool, error) {
	for _, f := range filters {
		ok, err := s.matchOne(row, f)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (s *Store) matchOne(row *Row, f weight.Filter) (bool, error) {
	switch f.Column {
	case s.cfg.WeightColumn:
		w, ok := weight.Fields{f.Column: f.Value}.Int64(f.Column)
		if !ok {
			return false, fmt.Errorf("%w: weight filter value %T", weight.ErrUnsupportedQuery, f.Value)
		}
		switch f.Op {
		case weight.OpEq:
			return row.Weight == w, nil
		case weight.OpLt:
			return row.Weight < w, nil
		case weight.OpGt:
			return row.Weight > w, nil
		}
	case s.cfg.GroupColumn:
		if !s.cfg.Grouped() {
			break
		}
		switch f.Op {
		case weight.OpEq:
			return row.HasGroup && row.Group == f.Value, nil
		case weight.OpIsNull:
			return !row.HasGroup, nil
		}
	default:
		v, present := row.Extra[f.Column]
		switch f.Op {
		case weight.OpEq:
			return present && v == f.Value, nil
		case weight.OpIsNull:
			return !present || v == nil, nil
		}
	}
	return false, fmt.Errorf("%w: %s %s", weight.ErrUnsupportedQuery, f.Column, f.Op)
}

func (r *Row) clone() Row {
	c := *r
	if r.Extra != nil {
		c.Extra = make(map[string]any, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = v
		}
	}
	return c
}
