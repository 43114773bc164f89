package weight

import (
	"context"
	"fmt"
)

// BeforeCreate is the pre-persist step for new records. When fields carry no
// weight (missing, nil or zero) it fills in the next weight of the group named
// by the group column. An explicit weight that is not an integer fails with
// ErrUnsupportedQuery. The input map is never modified.
func (m *Manager) BeforeCreate(ctx context.Context, fields Fields) (Fields, error) {
	w, ok := fields.Int64(m.cfg.WeightColumn)
	if v := fields[m.cfg.WeightColumn]; v != nil && !ok {
		return nil, fmt.Errorf("%w: weight value %v (%T)", ErrUnsupportedQuery, v, v)
	}
	if ok && w != 0 {
		return fields, nil
	}

	var g group
	if m.cfg.Grouped() {
		if v, ok := fields[m.cfg.GroupColumn]; ok && v != nil {
			g = group{value: v, present: true}
		}
	}

	next, err := m.nextWeight(ctx, g)
	if err != nil {
		return nil, err
	}
	out := fields.Clone()
	out[m.cfg.WeightColumn] = next
	return out, nil
}

// Create runs BeforeCreate and hands the result to c.
func (m *Manager) Create(ctx context.Context, c Creator, fields Fields) (Record, error) {
	prepared, err := m.BeforeCreate(ctx, fields)
	if err != nil {
		return nil, err
	}
	return c.Create(ctx, prepared)
}
