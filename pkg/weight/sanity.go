package weight

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/idwrap"
)

// SanityCheck renumbers rec's group to 1..N when it finds duplicate weights and
// returns rec, reloaded from the store if the renumbering moved it.
func (m *Manager) SanityCheck(ctx context.Context, rec Record) (Record, error) {
	if rec == nil {
		return nil, ErrNilRecord
	}
	rewritten, err := m.repair(ctx, groupOf(rec))
	if err != nil {
		return nil, err
	}
	w, ok := rewritten[rec.GetID()]
	if !ok || w == rec.GetWeight() {
		return rec, nil
	}
	fresh, err := m.store.Refresh(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("refresh %s after repair: %w", rec.GetID(), err)
	}
	return fresh, nil
}

// repair returns the new weight of every record it rewrote. Gaps alone are
// left alone; only a duplicate triggers the full renumbering.
func (m *Manager) repair(ctx context.Context, g group) (map[idwrap.IDWrap]int64, error) {
	records, err := m.store.Find(ctx, m.scope(g, Query{Order: OrderAsc}))
	if err != nil {
		return nil, fmt.Errorf("load group %s: %w", g, err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	counts := make(map[int64]int, len(records))
	var duplicates []int64
	for _, r := range records {
		counts[r.GetWeight()]++
		if counts[r.GetWeight()] == 2 {
			duplicates = append(duplicates, r.GetWeight())
		}
	}
	if len(duplicates) == 0 {
		return nil, nil
	}
	slices.Sort(duplicates)

	m.logger.WarnContext(ctx, "duplicate weights found, renumbering group",
		m.groupLogAttr(g),
		slog.Int("size", len(records)),
		slog.Any("duplicates", duplicates),
	)

	rewritten := make(map[idwrap.IDWrap]int64, len(records))
	for i, r := range records {
		w := int64(i + 1)
		if _, err := m.store.Update(ctx, r, Fields{m.cfg.WeightColumn: w}); err != nil {
			return nil, fmt.Errorf("renumber %s to %d: %w", r.GetID(), w, err)
		}
		rewritten[r.GetID()] = w
	}
	return rewritten, nil
}
