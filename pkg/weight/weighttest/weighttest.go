// Package weighttest holds a behaviour suite every weight.RecordStore is run
// against, plus helpers for inspecting groups in tests.
package weighttest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sanity-io/litter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/logger/mocklogger"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/weight"
)

// Harness is one fresh, empty store. Config must be grouped.
type Harness struct {
	Store   weight.RecordStore
	Creator weight.Creator
	Config  weight.Config
}

type Factory func(t *testing.T) Harness

// CountingStore wraps a store and counts Update calls.
type CountingStore struct {
	weight.RecordStore
	updates atomic.Int64
}

func (c *CountingStore) Update(ctx context.Context, rec weight.Record, fields weight.Fields) (weight.Record, error) {
	c.updates.Add(1)
	return c.RecordStore.Update(ctx, rec, fields)
}

func (c *CountingStore) Updates() int {
	return int(c.updates.Load())
}

type env struct {
	t       *testing.T
	ctx     context.Context
	h       Harness
	store   *CountingStore
	manager *weight.Manager
	logs    *mocklogger.MockHandler
}

func newEnv(t *testing.T, factory Factory) *env {
	t.Helper()
	h := factory(t)
	require.True(t, h.Config.Grouped(), "harness config must be grouped")

	counting := &CountingStore{RecordStore: h.Store}
	logger, handler := mocklogger.NewMockLoggerWithHandler()
	m, err := weight.NewManager(counting, h.Config, logger)
	require.NoError(t, err)
	return &env{t: t, ctx: context.Background(), h: h, store: counting, manager: m, logs: handler}
}

// insert stores a row with an explicit weight, bypassing the insertion hook.
func (e *env) insert(group any, w int64) weight.Record {
	e.t.Helper()
	fields := weight.Fields{e.h.Config.WeightColumn: w}
	if group != nil {
		fields[e.h.Config.GroupColumn] = group
	}
	rec, err := e.h.Creator.Create(e.ctx, fields)
	require.NoError(e.t, err)
	return rec
}

func (e *env) insertAll(group any, weights ...int64) []weight.Record {
	e.t.Helper()
	out := make([]weight.Record, len(weights))
	for i, w := range weights {
		out[i] = e.insert(group, w)
	}
	return out
}

// Weights reloads every record and returns their weights in argument order.
func Weights(t *testing.T, store weight.RecordStore, recs ...weight.Record) []int64 {
	t.Helper()
	out := make([]int64, len(recs))
	for i, r := range recs {
		fresh, err := store.Refresh(context.Background(), r)
		require.NoError(t, err)
		out[i] = fresh.GetWeight()
	}
	return out
}

// AssertDense checks that weights are exactly {1..len(weights)}.
func AssertDense(t *testing.T, weights []int64) {
	t.Helper()
	want := mapset.NewThreadUnsafeSet[int64]()
	for i := range weights {
		want.Add(int64(i + 1))
	}
	got := mapset.NewThreadUnsafeSet(weights...)
	assert.Truef(t, want.Equal(got) && got.Cardinality() == len(weights),
		"weights are not dense 1..N:\n%s", litter.Sdump(weights))
}

func (e *env) weights(recs ...weight.Record) []int64 {
	e.t.Helper()
	return Weights(e.t, e.h.Store, recs...)
}

// Run executes the suite. Each subtest gets its own harness.
func Run(t *testing.T, factory Factory) {
	t.Run("RepairRenumbersDuplicatesInFetchOrder", func(t *testing.T) {
		e := newEnv(t, factory)
		recs := e.insertAll("g", 1, 2, 2, 4)

		got, err := e.manager.SanityCheck(e.ctx, recs[0])
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.GetWeight())
		assert.Equal(t, []int64{1, 2, 3, 4}, e.weights(recs...))
		assert.Equal(t, 4, e.store.Updates())
		assert.Contains(t, e.logs.Messages(), "duplicate weights found, renumbering group")
	})

	t.Run("RepairLeavesGapsAlone", func(t *testing.T) {
		e := newEnv(t, factory)
		recs := e.insertAll("g", 1, 3, 7)

		_, err := e.manager.SanityCheck(e.ctx, recs[1])
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 3, 7}, e.weights(recs...))
		assert.Zero(t, e.store.Updates())
	})

	t.Run("RepairSingleAndEmptyGroup", func(t *testing.T) {
		e := newEnv(t, factory)
		only := e.insert("g", 42)

		got, err := e.manager.SanityCheck(e.ctx, only)
		require.NoError(t, err)
		assert.Equal(t, int64(42), got.GetWeight())
		assert.Zero(t, e.store.Updates())
	})

	t.Run("RepairRefreshesCallerRecord", func(t *testing.T) {
		e := newEnv(t, factory)
		recs := e.insertAll("g", 1, 5, 5)

		got, err := e.manager.SanityCheck(e.ctx, recs[2])
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.GetWeight())
		assert.Equal(t, 0, got.GetID().Compare(recs[2].GetID()))
	})

	t.Run("RepairProducesDenseWeights", func(t *testing.T) {
		e := newEnv(t, factory)
		rng := rand.New(rand.NewPCG(7, 11))
		recs := make([]weight.Record, 0, 30)
		for range 29 {
			recs = append(recs, e.insert("g", rng.Int64N(10)+1))
		}
		recs = append(recs, e.insert("g", recs[0].GetWeight()))

		_, err := e.manager.SanityCheck(e.ctx, recs[0])
		require.NoError(t, err)
		AssertDense(t, e.weights(recs...))
	})

	t.Run("NextWeightEmptyGroup", func(t *testing.T) {
		e := newEnv(t, factory)

		next, err := e.manager.NextWeightInGroup(e.ctx, "empty")
		require.NoError(t, err)
		assert.Equal(t, int64(1), next)
		assert.Zero(t, e.store.Updates())
	})

	t.Run("NextWeightIsMaxPlusOne", func(t *testing.T) {
		e := newEnv(t, factory)
		recs := e.insertAll("g", 1, 2, 3)
		gapped := e.insertAll("h", 1, 5)

		next, err := e.manager.NextWeight(e.ctx, recs[0])
		require.NoError(t, err)
		assert.Equal(t, int64(4), next)

		next, err = e.manager.NextWeight(e.ctx, gapped[0])
		require.NoError(t, err)
		assert.Equal(t, int64(6), next)
		assert.Zero(t, e.store.Updates())
	})

	t.Run("NextWeightRepairsFirst", func(t *testing.T) {
		e := newEnv(t, factory)
		recs := e.insertAll("g", 1, 1)

		next, err := e.manager.NextWeight(e.ctx, recs[0])
		require.NoError(t, err)
		assert.Equal(t, int64(3), next)
		assert.Equal(t, []int64{1, 2}, e.weights(recs...))
	})

	t.Run("CreateAssignsNextWeight", func(t *testing.T) {
		e := newEnv(t, factory)
		cfg := e.h.Config

		first, err := e.manager.Create(e.ctx, e.h.Creator, weight.Fields{cfg.GroupColumn: "g"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), first.GetWeight())

		second, err := e.manager.Create(e.ctx, e.h.Creator, weight.Fields{cfg.GroupColumn: "g", cfg.WeightColumn: 0})
		require.NoError(t, err)
		assert.Equal(t, int64(2), second.GetWeight())

		other, err := e.manager.Create(e.ctx, e.h.Creator, weight.Fields{cfg.GroupColumn: "other"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), other.GetWeight())
	})

	t.Run("CreateKeepsExplicitWeight", func(t *testing.T) {
		e := newEnv(t, factory)
		cfg := e.h.Config
		e.insertAll("g", 1, 2)

		rec, err := e.manager.Create(e.ctx, e.h.Creator, weight.Fields{cfg.GroupColumn: "g", cfg.WeightColumn: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(2), rec.GetWeight())

		next, err := e.manager.NextWeightInGroup(e.ctx, "g")
		require.NoError(t, err)
		assert.Equal(t, int64(4), next, "duplicate from explicit weight is absorbed by repair")
	})

	t.Run("WeightUpSwapsWithNeighbour", func(t *testing.T) {
		e := newEnv(t, factory)
		recs := e.insertAll("g", 1, 2, 3)

		got, err := e.manager.WeightUp(e.ctx, recs[1])
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.GetWeight())
		assert.Equal(t, []int64{2, 1, 3}, e.weights(recs...))
		assert.Equal(t, 2, e.store.Updates())
	})

	t.Run("WeightDownSwapsWithNeighbour", func(t *testing.T) {
		e := newEnv(t, factory)
		recs := e.insertAll("g", 1, 2, 3)

		got, err := e.manager.WeightDown(e.ctx, recs[1])
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.GetWeight())
		assert.Equal(t, []int64{1, 3, 2}, e.weights(recs...))
	})

	t.Run("WeightUpSkipsGaps", func(t *testing.T) {
		e := newEnv(t, factory)
		recs := e.insertAll("g", 2, 9, 4)

		_, err := e.manager.WeightUp(e.ctx, recs[1])
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 4, 9}, e.weights(recs...))
	})

	t.Run("BoundaryIsNoop", func(t *testing.T) {
		e := newEnv(t, factory)
		recs := e.insertAll("g", 1, 2, 3)

		top, err := e.manager.WeightUp(e.ctx, recs[0])
		require.NoError(t, err)
		assert.Equal(t, int64(1), top.GetWeight())

		bottom, err := e.manager.WeightDown(e.ctx, recs[2])
		require.NoError(t, err)
		assert.Equal(t, int64(3), bottom.GetWeight())

		assert.Zero(t, e.store.Updates())
		assert.Equal(t, []int64{1, 2, 3}, e.weights(recs...))
	})

	t.Run("MoveRepairsBeforeSwapping", func(t *testing.T) {
		e := newEnv(t, factory)
		recs := e.insertAll("g", 1, 2, 2)

		got, err := e.manager.WeightUp(e.ctx, recs[2])
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.GetWeight())
		assert.Equal(t, []int64{1, 3, 2}, e.weights(recs...))
	})

	t.Run("GroupsAreIsolated", func(t *testing.T) {
		e := newEnv(t, factory)
		a := e.insertAll("a", 1, 2)
		b := e.insertAll("b", 1, 1, 3)
		none := e.insertAll(nil, 2, 2)

		_, err := e.manager.SanityCheck(e.ctx, a[0])
		require.NoError(t, err)
		_, err = e.manager.WeightDown(e.ctx, a[0])
		require.NoError(t, err)
		next, err := e.manager.NextWeight(e.ctx, a[0])
		require.NoError(t, err)

		assert.Equal(t, int64(3), next)
		assert.Equal(t, []int64{2, 1}, e.weights(a...))
		assert.Equal(t, []int64{1, 1, 3}, e.weights(b...))
		assert.Equal(t, []int64{2, 2}, e.weights(none...))

		_, err = e.manager.SanityCheck(e.ctx, none[1])
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, e.weights(none...))
		assert.Equal(t, []int64{1, 1, 3}, e.weights(b...))
	})

	t.Run("SwapPreservesWeightSet", func(t *testing.T) {
		e := newEnv(t, factory)
		recs := e.insertAll("g", 1, 2, 3, 4, 5)
		rng := rand.New(rand.NewPCG(3, 5))

		for range 40 {
			rec := recs[rng.IntN(len(recs))]
			var err error
			if rng.IntN(2) == 0 {
				_, err = e.manager.WeightUp(e.ctx, rec)
			} else {
				_, err = e.manager.WeightDown(e.ctx, rec)
			}
			require.NoError(t, err, fmt.Sprintf("record %s", rec.GetID()))
			// recs hold stale weights, refresh them for the next move
			for i := range recs {
				fresh, err := e.h.Store.Refresh(e.ctx, recs[i])
				require.NoError(t, err)
				recs[i] = fresh
			}
		}
		AssertDense(t, e.weights(recs...))
	})
}
