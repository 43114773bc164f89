package dbtest

import (
	"context"
	"database/sql"

	"github.com/oklog/ulid/v2"

	weightdb "github.com/the-dev-tools/dev-tools/packages/weight/pkg/db"
)

// GetTestDB returns an in-memory database private to the caller.
func GetTestDB(ctx context.Context) (*sql.DB, error) {
	return weightdb.Open(ctx, weightdb.Config{
		Mode: weightdb.MEMORY,
		Path: "testdb_" + ulid.Make().String(),
	})
}
