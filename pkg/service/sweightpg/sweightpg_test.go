package sweightpg_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/model/mitem"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/service/sweight"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/service/sweightpg"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/weight"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/weight/weighttest"
)

func TestConfigUsesPostgresDialect(t *testing.T) {
	t.Parallel()
	cfg := sweightpg.Config()
	assert.Equal(t, sweight.DialectPostgres, cfg.Dialect)
	assert.Equal(t, sweight.DefaultTable, cfg.Table)
	assert.True(t, cfg.Weight.Grouped())
}

func TestEnsureSchemaValidatesBeforeConnecting(t *testing.T) {
	t.Parallel()
	cfg := sweightpg.Config()
	cfg.Table = "bad table"
	err := sweightpg.EnsureSchema(context.Background(), nil, cfg)
	assert.ErrorIs(t, err, weight.ErrInvalidColumn)
}

func TestOpenRejectsBadDSN(t *testing.T) {
	t.Parallel()
	_, err := sweightpg.Open(context.Background(), "postgres://%zz", sweightpg.Config())
	assert.Error(t, err)
}

// openTestDB connects to WEIGHT_PG_DSN with a table private to the test.
func openTestDB(t *testing.T) (*sweightpg.DB, sweight.Config) {
	t.Helper()
	dsn := os.Getenv("WEIGHT_PG_DSN")
	if dsn == "" {
		t.Skip("WEIGHT_PG_DSN not set")
	}
	ctx := context.Background()
	cfg := sweightpg.Config()
	cfg.Table = "items_" + strings.ToLower(ulid.Make().String())

	db, err := sweightpg.Open(ctx, dsn, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.SQL.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q`, cfg.Table))
		_ = db.Close()
	})
	return db, cfg
}

func TestStoreSuite(t *testing.T) {
	weighttest.Run(t, func(t *testing.T) weighttest.Harness {
		db, cfg := openTestDB(t)
		s, err := sweight.NewStore(db.SQL, cfg)
		require.NoError(t, err)
		return weighttest.Harness{Store: s, Creator: s, Config: cfg.Weight}
	})
}

func TestServiceOnPostgres(t *testing.T) {
	db, cfg := openTestDB(t)
	ctx := context.Background()
	svc, err := db.NewService(cfg, nil)
	require.NoError(t, err)

	g := mitem.GroupPtr("g")
	a, err := svc.Create(ctx, mitem.Item{Name: "a", GroupKey: g})
	require.NoError(t, err)
	b, err := svc.Create(ctx, mitem.Item{Name: "b", GroupKey: g})
	require.NoError(t, err)

	moved, err := svc.WeightUp(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved.Weight)

	got, err := svc.GetItem(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Weight)
}
