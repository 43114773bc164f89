package sweight_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	weightdb "github.com/the-dev-tools/dev-tools/packages/weight/pkg/db"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/db/dbtest"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/idwrap"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/logger/mocklogger"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/model/mitem"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/service/sweight"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/weight"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/weight/weighttest"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := dbtest.GetTestDB(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newService(t *testing.T) *sweight.ItemService {
	t.Helper()
	svc, err := sweight.New(newTestDB(t), sweight.DefaultConfig(), mocklogger.NewMockLogger())
	require.NoError(t, err)
	return svc
}

func TestStoreSuite(t *testing.T) {
	t.Parallel()

	weighttest.Run(t, func(t *testing.T) weighttest.Harness {
		cfg := sweight.DefaultConfig()
		s, err := sweight.NewStore(newTestDB(t), cfg)
		require.NoError(t, err)
		return weighttest.Harness{Store: s, Creator: s, Config: cfg.Weight}
	})
}

func TestStoreInsideTransaction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	s, err := sweight.NewStore(db, sweight.DefaultConfig())
	require.NoError(t, err)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	txStore := s.TX(tx)
	_, err = txStore.Create(ctx, weight.Fields{"name": "draft", "weight": 1})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	items, err := s.ListItems(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStoreMissingRows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := sweight.NewStore(newTestDB(t), sweight.DefaultConfig())
	require.NoError(t, err)
	ghost := mitem.Item{ID: idwrap.NewNow()}

	_, err = s.GetItem(ctx, ghost.ID)
	assert.ErrorIs(t, err, sweight.ErrNoItemFound)
	assert.ErrorIs(t, err, weight.ErrNoRecord)

	_, err = s.Refresh(ctx, ghost)
	assert.ErrorIs(t, err, weight.ErrNoRecord)

	_, err = s.Update(ctx, ghost, weight.Fields{"weight": 3})
	assert.ErrorIs(t, err, weight.ErrNoRecord)

	_, err = s.First(ctx, weight.Query{})
	assert.ErrorIs(t, err, weight.ErrNoRecord)

	assert.ErrorIs(t, s.DeleteItem(ctx, ghost.ID), weight.ErrNoRecord)
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Parallel()
	cfg := sweight.DefaultConfig()
	cfg.Table = "items--"

	_, err := sweight.New(newTestDB(t), cfg, nil)
	assert.ErrorIs(t, err, weight.ErrInvalidColumn)
}

func TestServiceCreateAndList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService(t)
	todo := mitem.GroupPtr("todo")

	a, err := svc.Create(ctx, mitem.Item{Name: "a", GroupKey: todo})
	require.NoError(t, err)
	b, err := svc.Create(ctx, mitem.Item{Name: "b", GroupKey: todo})
	require.NoError(t, err)
	loose, err := svc.Create(ctx, mitem.Item{Name: "loose"})
	require.NoError(t, err)

	assert.False(t, a.ID.IsZero())
	assert.Equal(t, int64(1), a.Weight)
	assert.Equal(t, int64(2), b.Weight)
	assert.Equal(t, int64(1), loose.Weight)
	assert.Nil(t, loose.GroupKey)

	items, err := svc.ListItems(ctx, todo)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []string{"a", "b"}, []string{items[0].Name, items[1].Name})
	assert.Equal(t, "todo", items[0].Group())

	ungrouped, err := svc.ListItems(ctx, nil)
	require.NoError(t, err)
	require.Len(t, ungrouped, 1)
	assert.Equal(t, loose.ID, ungrouped[0].ID)

	got, err := svc.GetItem(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestServiceCreateKeepsGivenIDAndWeight(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService(t)
	id := idwrap.NewNow()

	item, err := svc.Create(ctx, mitem.Item{ID: id, Name: "pinned", Weight: 7})
	require.NoError(t, err)
	assert.Equal(t, id, item.ID)
	assert.Equal(t, int64(7), item.Weight)

	next, err := svc.NextWeight(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(8), next)
}

func TestServiceMoves(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService(t)
	g := mitem.GroupPtr("g")

	var ids []idwrap.IDWrap
	for _, name := range []string{"a", "b", "c"} {
		item, err := svc.Create(ctx, mitem.Item{Name: name, GroupKey: g})
		require.NoError(t, err)
		ids = append(ids, item.ID)
	}

	up, err := svc.WeightUp(ctx, ids[2])
	require.NoError(t, err)
	assert.Equal(t, int64(2), up.Weight)

	down, err := svc.WeightDown(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, int64(2), down.Weight)

	items, err := svc.ListItems(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, names(items))

	top, err := svc.Move(ctx, ids[2], weight.DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, int64(1), top.Weight)

	_, err = svc.WeightUp(ctx, idwrap.NewNow())
	assert.ErrorIs(t, err, sweight.ErrNoItemFound)
}

func TestServiceSanityCheckAndRepair(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService(t)
	g := mitem.GroupPtr("g")

	var dup []mitem.Item
	for _, w := range []int64{1, 2, 2} {
		item, err := svc.Create(ctx, mitem.Item{Name: "x", GroupKey: g, Weight: w})
		require.NoError(t, err)
		dup = append(dup, item)
	}
	clean, err := svc.Create(ctx, mitem.Item{Name: "y", GroupKey: mitem.GroupPtr("h"), Weight: 5})
	require.NoError(t, err)
	for _, w := range []int64{3, 3} {
		_, err := svc.Create(ctx, mitem.Item{Name: "z", Weight: w})
		require.NoError(t, err)
	}

	fixed, err := svc.SanityCheck(ctx, dup[2].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), fixed.Weight)

	repaired, err := svc.Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired, "only the ungrouped list still held duplicates")

	ungrouped, err := svc.ListItems(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, weights(ungrouped))

	got, err := svc.GetItem(ctx, clean.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Weight)
}

func TestServiceDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService(t)

	item, err := svc.Create(ctx, mitem.Item{Name: "gone"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteItem(ctx, item.ID))

	_, err = svc.GetItem(ctx, item.ID)
	assert.ErrorIs(t, err, sweight.ErrNoItemFound)
	assert.ErrorIs(t, svc.DeleteItem(ctx, item.ID), sweight.ErrNoItemFound)
}

func TestServiceRollsBackFailedOperation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	svc, err := sweight.New(db, sweight.DefaultConfig(), nil)
	require.NoError(t, err)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.Create(canceled, mitem.Item{Name: "never"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	items, err := svc.ListItems(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

// Concurrent creates on a file database serialise on its single connection, so
// every item gets its own weight.
func TestServiceConcurrentCreates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, err := weightdb.Open(ctx, weightdb.Config{Mode: weightdb.LOCAL, Path: filepath.Join(t.TempDir(), "w.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	svc, err := sweight.New(db, sweight.DefaultConfig(), nil)
	require.NoError(t, err)

	g := mitem.GroupPtr("g")
	var eg errgroup.Group
	for range 16 {
		eg.Go(func() error {
			_, err := svc.Create(ctx, mitem.Item{Name: "c", GroupKey: g})
			return err
		})
	}
	require.NoError(t, eg.Wait())

	items, err := svc.ListItems(ctx, g)
	require.NoError(t, err)
	require.Len(t, items, 16)
	weighttest.AssertDense(t, weights(items))
}

func names(items []mitem.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func weights(items []mitem.Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.Weight
	}
	return out
}
