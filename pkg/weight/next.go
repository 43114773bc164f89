package weight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// NextWeight returns the weight a new record appended to rec's group should
// take: one past the current maximum, or 1 for an empty group.
func (m *Manager) NextWeight(ctx context.Context, rec Record) (int64, error) {
	if rec == nil {
		return 0, ErrNilRecord
	}
	return m.nextWeight(ctx, groupOf(rec))
}

// NextWeightInGroup is NextWeight for a group that may not have any record
// yet. A nil key addresses the null group, or the only group when grouping is
// disabled.
func (m *Manager) NextWeightInGroup(ctx context.Context, key any) (int64, error) {
	return m.nextWeight(ctx, group{value: key, present: key != nil})
}

func (m *Manager) nextWeight(ctx context.Context, g group) (int64, error) {
	if _, err := m.repair(ctx, g); err != nil {
		return 0, err
	}
	last, err := m.store.First(ctx, m.scope(g, Query{Order: OrderDesc, Limit: 1}))
	if errors.Is(err, ErrNoRecord) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load last of group %s: %w", g, err)
	}
	next := last.GetWeight() + 1
	m.logger.DebugContext(ctx, "next weight", m.groupLogAttr(g), slog.Int64("weight", next))
	return next, nil
}
