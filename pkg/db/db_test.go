package weightdb_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	weightdb "github.com/the-dev-tools/dev-tools/packages/weight/pkg/db"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/db/dbtest"
)

func TestOpenLocalCreatesSchemaOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "weight.db")

	db, err := weightdb.Open(ctx, weightdb.Config{Mode: weightdb.LOCAL, Path: path})
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO items (id, name, weight) VALUES (x'01', 'a', 1)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = weightdb.Open(ctx, weightdb.Config{Mode: weightdb.LOCAL, Path: path})
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpenRejectsBadConfig(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := weightdb.Open(ctx, weightdb.Config{})
	assert.Error(t, err)
	_, err = weightdb.Open(ctx, weightdb.Config{Mode: "remote", Path: "x"})
	assert.Error(t, err)
}

func TestTxnRollbackAfterCommit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, err := dbtest.GetTestDB(ctx)
	require.NoError(t, err)
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NotPanics(t, func() { weightdb.TxnRollback(tx) })
}
