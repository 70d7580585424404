package db

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revenue-dashboard/revenue-dashboard/migrations"
)

func TestMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/rev?sslmode=disable":   "pgx5://u:p@localhost:5432/rev?sslmode=disable",
		"postgresql://u:p@localhost:5432/rev?sslmode=disable": "pgx5://u:p@localhost:5432/rev?sslmode=disable",
		"pgx5://already": "pgx5://already",
	}
	for in, want := range cases {
		assert.Equal(t, want, migrateURL(in), in)
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrations.FS, "*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrations.FS, "*.down.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}
