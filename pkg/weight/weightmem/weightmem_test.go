package weightmem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/idwrap"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/weight"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/weight/weightmem"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/weight/weighttest"
)

var groupedConfig = weight.Config{WeightColumn: "weight", GroupColumn: "list_id"}

func TestStoreSuite(t *testing.T) {
	t.Parallel()

	weighttest.Run(t, func(t *testing.T) weighttest.Harness {
		s := weightmem.New(groupedConfig)
		return weighttest.Harness{Store: s, Creator: s, Config: groupedConfig}
	})
}

func TestFindOrdersTiesByInsertion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := weightmem.New(groupedConfig)

	var ids []idwrap.IDWrap
	for _, w := range []int64{3, 1, 3, 2} {
		rec, err := s.Create(ctx, weight.Fields{"weight": w, "list_id": "g"})
		require.NoError(t, err)
		ids = append(ids, rec.GetID())
	}

	asc, err := s.Find(ctx, weight.Query{})
	require.NoError(t, err)
	require.Len(t, asc, 4)
	assert.Equal(t, ids[1], asc[0].GetID())
	assert.Equal(t, ids[3], asc[1].GetID())
	assert.Equal(t, ids[0], asc[2].GetID())
	assert.Equal(t, ids[2], asc[3].GetID())

	desc, err := s.Find(ctx, weight.Query{Order: weight.OrderDesc, Limit: 2})
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, ids[0], desc[0].GetID())
	assert.Equal(t, ids[2], desc[1].GetID())
}

func TestFilters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := weightmem.New(groupedConfig)

	_, err := s.Create(ctx, weight.Fields{"weight": 1, "list_id": "a", "name": "x"})
	require.NoError(t, err)
	_, err = s.Create(ctx, weight.Fields{"weight": 2})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter weight.Filter
		want   int
	}{
		{name: "group eq", filter: weight.Filter{Column: "list_id", Op: weight.OpEq, Value: "a"}, want: 1},
		{name: "group null", filter: weight.Filter{Column: "list_id", Op: weight.OpIsNull}, want: 1},
		{name: "weight lt", filter: weight.Filter{Column: "weight", Op: weight.OpLt, Value: int64(2)}, want: 1},
		{name: "weight gt", filter: weight.Filter{Column: "weight", Op: weight.OpGt, Value: 0}, want: 2},
		{name: "extra eq", filter: weight.Filter{Column: "name", Op: weight.OpEq, Value: "x"}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Find(ctx, weight.Query{Filters: []weight.Filter{tt.filter}})
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	_, err = s.Find(ctx, weight.Query{Filters: []weight.Filter{{Column: "list_id", Op: weight.OpLt, Value: "a"}}})
	assert.ErrorIs(t, err, weight.ErrUnsupportedQuery)
}

func TestMissingRows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := weightmem.New(groupedConfig)
	ghost := weightmem.Row{ID: idwrap.NewNow()}

	_, err := s.First(ctx, weight.Query{})
	assert.ErrorIs(t, err, weight.ErrNoRecord)
	_, err = s.Refresh(ctx, ghost)
	assert.ErrorIs(t, err, weight.ErrNoRecord)
	_, err = s.Update(ctx, ghost, weight.Fields{"weight": 1})
	assert.ErrorIs(t, err, weight.ErrNoRecord)
	assert.ErrorIs(t, s.Delete(ctx, ghost.ID), weight.ErrNoRecord)
}

func TestDeleteLeavesGapUntilDuplicate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := weightmem.New(groupedConfig)
	m, err := weight.NewManager(s, groupedConfig, nil)
	require.NoError(t, err)

	var recs []weight.Record
	for range 3 {
		rec, err := m.Create(ctx, s, weight.Fields{"list_id": "g"})
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	require.NoError(t, s.Delete(ctx, recs[1].GetID()))

	next, err := m.NextWeight(ctx, recs[0])
	require.NoError(t, err)
	assert.Equal(t, int64(4), next)

	dup, err := s.Create(ctx, weight.Fields{"list_id": "g", "weight": 3})
	require.NoError(t, err)
	_, err = m.SanityCheck(ctx, dup)
	require.NoError(t, err)
	weighttest.AssertDense(t, weighttest.Weights(t, s, recs[0], recs[2], dup))
}

func TestConcurrentCreatesHealOnNextOperation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := weightmem.New(groupedConfig)
	m, err := weight.NewManager(s, groupedConfig, nil)
	require.NoError(t, err)

	const n = 50
	recs := make([]weight.Record, n)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			rec, err := m.Create(ctx, s, weight.Fields{"list_id": "race"})
			recs[i] = rec
			return err
		})
	}
	require.NoError(t, g.Wait())

	_, err = m.SanityCheck(ctx, recs[0])
	require.NoError(t, err)
	weighttest.AssertDense(t, weighttest.Weights(t, s, recs...))
}
