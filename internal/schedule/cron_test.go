package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		expr string
		want time.Time
	}{
		{
			name: "daily at 02:00",
			expr: "0 2 * * *",
			want: time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "later today",
			expr: "0 18 * * *",
			want: time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC),
		},
		{
			name: "descriptor",
			expr: "@daily",
			want: time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "weekly on sunday",
			expr: "0 3 * * 0",
			want: time.Date(2026, 3, 15, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "surrounding whitespace",
			expr: "  */15 * * * * ",
			want: time.Date(2026, 3, 10, 14, 45, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Next(tt.expr, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextIsStrictlyAfterNow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	got, err := Next("0 2 * * *", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(24*time.Hour), got)
}

func TestNextConvertsToUTC(t *testing.T) {
	t.Parallel()

	berlin := time.FixedZone("CET", 3600)
	now := time.Date(2026, 3, 10, 2, 30, 0, 0, berlin) // 01:30 UTC
	got, err := Next("0 2 * * *", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC), got)
}

func TestNextInvalid(t *testing.T) {
	t.Parallel()

	_, err := Next("not a cron", time.Now())
	assert.Error(t, err)

	_, err = Next("", time.Now())
	assert.ErrorIs(t, err, ErrEmptyExpression)

	// Seconds field is not accepted
	_, err = Next("0 0 2 * * *", time.Now())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Validate(""))
	assert.NoError(t, Validate("0 2 * * *"))
	assert.Error(t, Validate("61 * * * *"))
}

func TestNextN(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	got, err := NextN("0 */6 * * *", now, 3)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC),
	}, got)
}
