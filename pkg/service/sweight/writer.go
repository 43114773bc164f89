package sweight

import (
	"context"

	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/idwrap"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/weight"
)

type Writer struct {
	db     DBTX
	cfg    Config
	reader *Reader
}

func newWriter(db DBTX, cfg Config) *Writer {
	return &Writer{db: db, cfg: cfg, reader: newReader(db, cfg)}
}

// Create inserts a row from fields and returns it as stored.
func (w *Writer) Create(ctx context.Context, fields weight.Fields) (weight.Record, error) {
	query, args, id, err := w.cfg.buildInsert(fields)
	if err != nil {
		return nil, err
	}
	if _, err := w.db.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}
	item, err := w.reader.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (w *Writer) Update(ctx context.Context, rec weight.Record, fields weight.Fields) (weight.Record, error) {
	if rec == nil {
		return nil, weight.ErrNilRecord
	}
	query, args, err := w.cfg.buildUpdate(rec.GetID(), fields)
	if err != nil {
		return nil, err
	}
	if err := w.exec(ctx, query, args); err != nil {
		return nil, err
	}
	return w.reader.Refresh(ctx, rec)
}

func (w *Writer) DeleteItem(ctx context.Context, id idwrap.IDWrap) error {
	query, args := w.cfg.buildDelete(id)
	return w.exec(ctx, query, args)
}

// exec runs a statement that must touch a row.
func (w *Writer) exec(ctx context.Context, query string, args []any) error {
	res, err := w.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoItemFound
	}
	return nil
}
