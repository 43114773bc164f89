// Package weight keeps a dense 1..N integer ordering across records, optionally
// partitioned into groups, on top of an abstract RecordStore.
//
// Every public operation repairs the record's group first. Duplicate weights
// left behind by racing writers are renumbered instead of reported, so callers
// never see them as errors.
package weight

import (
	"fmt"
	"log/slog"
)

type Manager struct {
	store  RecordStore
	cfg    Config
	logger *slog.Logger
}

func NewManager(store RecordStore, cfg Config, logger *slog.Logger) (*Manager, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{store: store, cfg: cfg, logger: logger}, nil
}

// WithStore returns a manager with the same configuration bound to another
// store, typically one scoped to a transaction.
func (m *Manager) WithStore(store RecordStore) *Manager {
	return &Manager{store: store, cfg: m.cfg, logger: m.logger}
}

func (m *Manager) Config() Config {
	return m.cfg
}

// group identifies one partition. present is false for the null group and for
// every record when grouping is disabled.
type group struct {
	value   any
	present bool
}

func (g group) String() string {
	if !g.present {
		return "<none>"
	}
	return fmt.Sprint(g.value)
}

func groupOf(rec Record) group {
	v, ok := rec.GetGroup()
	if !ok || v == nil {
		return group{}
	}
	return group{value: v, present: true}
}

// Scope narrows q to the records sharing rec's group. It never touches the
// store.
func (m *Manager) Scope(rec Record, q Query) Query {
	return m.scope(groupOf(rec), q)
}

func (m *Manager) scope(g group, q Query) Query {
	if !m.cfg.Grouped() {
		return q
	}
	if !g.present {
		return q.Where(Filter{Column: m.cfg.GroupColumn, Op: OpIsNull})
	}
	return q.Where(Filter{Column: m.cfg.GroupColumn, Op: OpEq, Value: g.value})
}

func (m *Manager) groupLogAttr(g group) slog.Attr {
	if !m.cfg.Grouped() {
		return slog.String("group", "<all>")
	}
	return slog.String("group", g.String())
}
