package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCanonicalizesToFirstOfMonth(t *testing.T) {
	want := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-01", "2024-01-15", "2024-01-31", " 2024-01-01 ", "2024-01-20T10:30:00+00:00"} {
		got, err := Normalize(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s -> %s", in, got)
	}
}

func TestNormalizeKeepsWrittenMonthForOffsets(t *testing.T) {
	cases := map[string]string{
		"2024-03-01T00:00:00+01:00": "2024-03-01",
		"2024-03-31T23:30:00-05:00": "2024-03-01",
		"2024-12-31T22:00:00Z":      "2024-12-01",
	}
	for in, want := range cases {
		got, err := Canonical(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestNormalizeRejectsInvalidDates(t *testing.T) {
	for _, in := range []string{"", "2024", "2024-13", "2024-02-30", "2024/01/01", "gennaio 2024", "2024-1"} {
		_, err := Normalize(in)
		require.ErrorIs(t, err, ErrInvalidPeriod, in)
	}
}

func TestCanonicalAndLabel(t *testing.T) {
	got, err := Canonical("2023-12-31")
	require.NoError(t, err)
	assert.Equal(t, "2023-12-01", got)

	p, _ := Normalize("2023-05")
	assert.Equal(t, "mag", Label(p))
	assert.Equal(t, "2023-05-01", Format(p.Add(36*time.Hour)))
}

func TestYearBounds(t *testing.T) {
	from, to := YearBounds(2020, 2024)
	assert.Equal(t, "2020-01-01", Format(from))
	assert.Equal(t, "2024-12-01", Format(to))
}
