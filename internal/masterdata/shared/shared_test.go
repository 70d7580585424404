package shared

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreshared "github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

func TestParseListFilters(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/clients?page=2&per_page=5&search=+rossi+&active=true&channel=GDO", nil)
	f := ParseListFilters(req, "channel")

	assert.Equal(t, 2, f.Page)
	assert.Equal(t, 5, f.Limit())
	assert.Equal(t, 5, f.Offset())
	assert.Equal(t, "rossi", f.Search)
	assert.Equal(t, "GDO", f.Dimension)
	require.NotNil(t, f.IsActive)
	assert.True(t, *f.IsActive)
}

func TestMapError(t *testing.T) {
	assert.ErrorIs(t, MapError(fmt.Errorf("scan: %w", pgx.ErrNoRows)), coreshared.ErrNotFound)
	assert.ErrorIs(t, MapError(&pgconn.PgError{Code: "23503"}), coreshared.ErrInUse)
	boom := errors.New("boom")
	assert.Equal(t, boom, MapError(boom))
	assert.NoError(t, MapError(nil))
}

func TestNormalise(t *testing.T) {
	assert.Equal(t, "", Normalise("all"))
	assert.Equal(t, "Horeca", Normalise("Horeca"))
}
