// Package sweight stores weighted items in SQL and runs the weight manager over
// them, one transaction per operation.
package sweight

import (
	"context"
	"database/sql"
	"log/slog"
	"slices"

	weightdb "github.com/the-dev-tools/dev-tools/packages/weight/pkg/db"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/idwrap"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/model/mitem"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/translate/tgeneric"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/weight"
)

var ErrNoItemFound = weight.ErrNoRecord

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a weight.RecordStore and weight.Creator over one table.
type Store struct {
	*Reader
	*Writer
	cfg Config
}

var (
	_ weight.RecordStore = (*Store)(nil)
	_ weight.Creator     = (*Store)(nil)
)

func NewStore(db DBTX, cfg Config) (*Store, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newStore(db, cfg), nil
}

func newStore(db DBTX, cfg Config) *Store {
	return &Store{Reader: newReader(db, cfg), Writer: newWriter(db, cfg), cfg: cfg}
}

func (s *Store) TX(tx *sql.Tx) *Store {
	return newStore(tx, s.cfg)
}

func (s *Store) Config() Config {
	return s.cfg
}

type ItemService struct {
	db      *sql.DB
	store   *Store
	manager *weight.Manager
	logger  *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) (*ItemService, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	store, err := NewStore(db, cfg)
	if err != nil {
		return nil, err
	}
	manager, err := weight.NewManager(store, store.cfg.Weight, logger)
	if err != nil {
		return nil, err
	}
	return &ItemService{db: db, store: store, manager: manager, logger: logger}, nil
}

func (s *ItemService) Store() *Store { return s.store }

func (s *ItemService) Manager() *weight.Manager { return s.manager }

// withTx runs fn against a store and manager bound to one transaction and
// commits when fn succeeds.
func (s *ItemService) withTx(ctx context.Context, fn func(m *weight.Manager, st *Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer weightdb.TxnRollback(tx)

	st := s.store.TX(tx)
	if err := fn(s.manager.WithStore(st), st); err != nil {
		return err
	}
	return tx.Commit()
}

// Create inserts item. A zero weight is replaced by the next weight of the
// item's group; a zero id is generated.
func (s *ItemService) Create(ctx context.Context, item mitem.Item) (mitem.Item, error) {
	var out mitem.Item
	err := s.withTx(ctx, func(m *weight.Manager, st *Store) error {
		rec, err := m.Create(ctx, st, ConvertItemToFields(st.cfg, item))
		if err != nil {
			return err
		}
		out = ConvertRecordToItem(rec)
		return nil
	})
	if err != nil {
		return mitem.Item{}, err
	}
	s.logger.DebugContext(ctx, "item created", "id", out.ID.String(), "weight", out.Weight)
	return out, nil
}

func (s *ItemService) GetItem(ctx context.Context, id idwrap.IDWrap) (mitem.Item, error) {
	return s.store.GetItem(ctx, id)
}

func (s *ItemService) ListItems(ctx context.Context, group *string) ([]mitem.Item, error) {
	return s.store.ListItems(ctx, group)
}

// NextWeight reports the weight a new item in group would get. A nil group is
// the ungrouped list.
func (s *ItemService) NextWeight(ctx context.Context, group *string) (int64, error) {
	var key any
	if group != nil {
		key = *group
	}
	var next int64
	err := s.withTx(ctx, func(m *weight.Manager, _ *Store) error {
		var err error
		next, err = m.NextWeightInGroup(ctx, key)
		return err
	})
	return next, err
}

// SanityCheck repairs the item's group and returns the item as stored after
// the repair.
func (s *ItemService) SanityCheck(ctx context.Context, id idwrap.IDWrap) (mitem.Item, error) {
	return s.onItem(ctx, id, func(m *weight.Manager, rec weight.Record) (weight.Record, error) {
		return m.SanityCheck(ctx, rec)
	})
}

func (s *ItemService) WeightUp(ctx context.Context, id idwrap.IDWrap) (mitem.Item, error) {
	return s.Move(ctx, id, weight.DirectionUp)
}

func (s *ItemService) WeightDown(ctx context.Context, id idwrap.IDWrap) (mitem.Item, error) {
	return s.Move(ctx, id, weight.DirectionDown)
}

func (s *ItemService) Move(ctx context.Context, id idwrap.IDWrap, dir weight.Direction) (mitem.Item, error) {
	return s.onItem(ctx, id, func(m *weight.Manager, rec weight.Record) (weight.Record, error) {
		return m.Move(ctx, rec, dir)
	})
}

// Inspect reports on a group without repairing it. A nil group is the
// ungrouped list.
func (s *ItemService) Inspect(ctx context.Context, group *string) (weight.Report, error) {
	var key any
	if group != nil {
		key = *group
	}
	return s.manager.InspectGroup(ctx, key)
}

func (s *ItemService) DeleteItem(ctx context.Context, id idwrap.IDWrap) error {
	return s.store.DeleteItem(ctx, id)
}

// Repair renumbers every group that holds duplicate weights and returns how
// many groups were rewritten.
func (s *ItemService) Repair(ctx context.Context) (int, error) {
	var repaired int
	err := s.withTx(ctx, func(m *weight.Manager, st *Store) error {
		items, err := st.FindItems(ctx, weight.Query{})
		if err != nil {
			return err
		}
		type groupKey struct {
			name  string
			valid bool
		}
		seen := make(map[groupKey]bool)
		for _, item := range items {
			key := groupKey{name: item.Group(), valid: item.GroupKey != nil}
			if seen[key] {
				continue
			}
			seen[key] = true
			before, err := st.ListItems(ctx, item.GroupKey)
			if err != nil {
				return err
			}
			if _, err := m.SanityCheck(ctx, item); err != nil {
				return err
			}
			after, err := st.ListItems(ctx, item.GroupKey)
			if err != nil {
				return err
			}
			if !slices.Equal(weightsOf(before), weightsOf(after)) {
				repaired++
			}
		}
		return nil
	})
	return repaired, err
}

func weightsOf(items []mitem.Item) []int64 {
	return tgeneric.MassConvert(items, mitem.Item.GetWeight)
}

func (s *ItemService) onItem(ctx context.Context, id idwrap.IDWrap, fn func(*weight.Manager, weight.Record) (weight.Record, error)) (mitem.Item, error) {
	var out mitem.Item
	err := s.withTx(ctx, func(m *weight.Manager, st *Store) error {
		item, err := st.GetItem(ctx, id)
		if err != nil {
			return err
		}
		rec, err := fn(m, item)
		if err != nil {
			return err
		}
		out = ConvertRecordToItem(rec)
		return nil
	})
	if err != nil {
		return mitem.Item{}, err
	}
	return out, nil
}
