package customer

import (
	"context"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Embedded(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	data, err := fs.ReadFile(migrations, files[0])
	require.NoError(t, err)
	body := string(data)
	assert.Contains(t, body, "-- +goose Up")
	assert.Contains(t, body, "-- +goose Down")
	assert.True(t, strings.Contains(body, "CREATE TABLE IF NOT EXISTS "+DefaultTable))
	for _, col := range []string{"total_spend", "last_order_date", "visit_count", "created_at"} {
		assert.Contains(t, body, col)
	}
}

func TestMigrate_Postgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()

	db, err := sqlx.Connect("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(ctx, db.DB))
	// Applying twice is a no-op.
	require.NoError(t, Migrate(ctx, db.DB))

	s := NewSQLSourceFromDB(db, DefaultTable, nil, nil)
	_, err = s.List(ctx)
	assert.NoError(t, err)
}
