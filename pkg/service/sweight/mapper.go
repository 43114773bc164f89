package sweight

import (
	"database/sql"

	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/model/mitem"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/weight"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (mitem.Item, error) {
	var (
		item  mitem.Item
		group sql.NullString
	)
	if err := row.Scan(&item.ID, &group, &item.Name, &item.Weight); err != nil {
		return mitem.Item{}, err
	}
	if group.Valid {
		item.GroupKey = &group.String
	}
	return item, nil
}

func ConvertItemToRecord(item mitem.Item) weight.Record {
	return item
}

// ConvertRecordToItem returns rec as an item. Records produced by this
// package are items already; anything else is copied field by field.
func ConvertRecordToItem(rec weight.Record) mitem.Item {
	if item, ok := rec.(mitem.Item); ok {
		return item
	}
	item := mitem.Item{ID: rec.GetID(), Weight: rec.GetWeight()}
	if v, ok := rec.GetGroup(); ok {
		if s, ok := v.(string); ok {
			item.GroupKey = &s
		}
	}
	return item
}

// ConvertItemToFields builds insert fields for item. Zero ids and weights are
// left out so the writer and the insertion hook fill them in.
func ConvertItemToFields(cfg Config, item mitem.Item) weight.Fields {
	fields := weight.Fields{cfg.NameColumn: item.Name}
	if !item.ID.IsZero() {
		fields[cfg.IDColumn] = item.ID
	}
	if item.Weight != 0 {
		fields[cfg.Weight.WeightColumn] = item.Weight
	}
	if cfg.Weight.Grouped() && item.GroupKey != nil {
		fields[cfg.Weight.GroupColumn] = *item.GroupKey
	}
	return fields
}
