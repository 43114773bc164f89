package sweight

import (
	"context"
	"database/sql"

	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/idwrap"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/model/mitem"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/translate/tgeneric"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/weight"
)

type Reader struct {
	db  DBTX
	cfg Config
}

func newReader(db DBTX, cfg Config) *Reader {
	return &Reader{db: db, cfg: cfg}
}

func (r *Reader) GetItem(ctx context.Context, id idwrap.IDWrap) (mitem.Item, error) {
	query, args := r.cfg.buildGet(id)
	item, err := scanItem(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return mitem.Item{}, tgeneric.ReplaceRootWithSub(sql.ErrNoRows, ErrNoItemFound, err)
	}
	return item, nil
}

func (r *Reader) FindItems(ctx context.Context, q weight.Query) ([]mitem.Item, error) {
	query, args, err := r.cfg.buildSelect(q)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []mitem.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListItems returns a group in weight order. A nil group lists the ungrouped
// items; without a group column every item is listed.
func (r *Reader) ListItems(ctx context.Context, group *string) ([]mitem.Item, error) {
	var q weight.Query
	if r.cfg.Weight.Grouped() {
		f := weight.Filter{Column: r.cfg.Weight.GroupColumn, Op: weight.OpIsNull}
		if group != nil {
			f = weight.Filter{Column: r.cfg.Weight.GroupColumn, Op: weight.OpEq, Value: *group}
		}
		q = q.Where(f)
	}
	return r.FindItems(ctx, q)
}

func (r *Reader) Find(ctx context.Context, q weight.Query) ([]weight.Record, error) {
	items, err := r.FindItems(ctx, q)
	if err != nil {
		return nil, err
	}
	return tgeneric.MassConvert(items, ConvertItemToRecord), nil
}

func (r *Reader) First(ctx context.Context, q weight.Query) (weight.Record, error) {
	q.Limit = 1
	items, err := r.FindItems(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoItemFound
	}
	return items[0], nil
}

func (r *Reader) Refresh(ctx context.Context, rec weight.Record) (weight.Record, error) {
	if rec == nil {
		return nil, weight.ErrNilRecord
	}
	item, err := r.GetItem(ctx, rec.GetID())
	if err != nil {
		return nil, err
	}
	return item, nil
}
