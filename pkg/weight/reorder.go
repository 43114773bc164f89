package weight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

type Direction int

const (
	DirectionUp Direction = iota + 1
	DirectionDown
)

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "unknown"
	}
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return DirectionUp, nil
	case "down":
		return DirectionDown, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// WeightUp swaps rec with the nearest record of lower weight in its group.
// At the top of the group it returns rec without writing anything.
func (m *Manager) WeightUp(ctx context.Context, rec Record) (Record, error) {
	return m.Move(ctx, rec, DirectionUp)
}

// WeightDown swaps rec with the nearest record of higher weight in its group.
func (m *Manager) WeightDown(ctx context.Context, rec Record) (Record, error) {
	return m.Move(ctx, rec, DirectionDown)
}

func (m *Manager) Move(ctx context.Context, rec Record, dir Direction) (Record, error) {
	var (
		op    Op
		order Order
	)
	switch dir {
	case DirectionUp:
		op, order = OpLt, OrderDesc
	case DirectionDown:
		op, order = OpGt, OrderAsc
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidDirection, dir)
	}

	rec, err := m.SanityCheck(ctx, rec)
	if err != nil {
		return nil, err
	}

	q := m.Scope(rec, Query{Order: order, Limit: 1}).
		Where(Filter{Column: m.cfg.WeightColumn, Op: op, Value: rec.GetWeight()})
	neighbour, err := m.store.First(ctx, q)
	if errors.Is(err, ErrNoRecord) {
		m.logger.DebugContext(ctx, "already at group boundary",
			slog.String("id", rec.GetID().String()), slog.String("direction", dir.String()))
		return rec, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find neighbour of %s: %w", rec.GetID(), err)
	}

	return m.swap(ctx, rec, neighbour)
}

// swap exchanges the weights of two records of the same group. Both values are
// captured before the first write; the current record is written first.
func (m *Manager) swap(ctx context.Context, current, neighbour Record) (Record, error) {
	currentWeight, neighbourWeight := current.GetWeight(), neighbour.GetWeight()

	updated, err := m.store.Update(ctx, current, Fields{m.cfg.WeightColumn: neighbourWeight})
	if err != nil {
		return nil, fmt.Errorf("set %s to %d: %w", current.GetID(), neighbourWeight, err)
	}
	if _, err := m.store.Update(ctx, neighbour, Fields{m.cfg.WeightColumn: currentWeight}); err != nil {
		return nil, fmt.Errorf("set %s to %d: %w", neighbour.GetID(), currentWeight, err)
	}

	m.logger.DebugContext(ctx, "swapped weights",
		slog.String("id", current.GetID().String()),
		slog.String("neighbour", neighbour.GetID().String()),
		slog.Int64("from", currentWeight),
		slog.Int64("to", neighbourWeight),
	)
	return updated, nil
}
