package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDay(t *testing.T, v string) time.Time {
	t.Helper()
	d, err := ParseDay(v)
	require.NoError(t, err)
	return d
}

func TestNewValidatesOrder(t *testing.T) {
	_, err := New(mustDay(t, "2024-07-04"), mustDay(t, "2024-07-04"))
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = New(mustDay(t, "2024-07-04"), mustDay(t, "2024-07-01"))
	assert.ErrorIs(t, err, ErrInvalidRange)

	dr, err := New(mustDay(t, "2024-07-01"), mustDay(t, "2024-07-04"))
	require.NoError(t, err)
	assert.Equal(t, 3, dr.Nights())
}

func TestDayNormalizesToUTCMidnight(t *testing.T) {
	athens := time.FixedZone("EEST", 3*60*60)
	d := Day(time.Date(2024, 7, 1, 23, 30, 0, 0, athens))
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), d)
}

func TestDaysAndContains(t *testing.T) {
	dr := Between(mustDay(t, "2024-07-01"), mustDay(t, "2024-07-03"))
	days := dr.Days()
	require.Len(t, days, 2)
	assert.Equal(t, mustDay(t, "2024-07-02"), days[1])
	assert.True(t, dr.ContainsDate(mustDay(t, "2024-07-01")))
	assert.False(t, dr.ContainsDate(mustDay(t, "2024-07-03")))

	assert.Nil(t, Between(mustDay(t, "2024-07-03"), mustDay(t, "2024-07-01")).Days())
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	a := Between(mustDay(t, "2024-07-01"), mustDay(t, "2024-07-05"))
	touching := Between(mustDay(t, "2024-07-05"), mustDay(t, "2024-07-08"))
	inside := Between(mustDay(t, "2024-07-02"), mustDay(t, "2024-07-03"))
	assert.False(t, a.Overlaps(touching))
	assert.True(t, a.Overlaps(inside))
	assert.True(t, inside.Overlaps(a))
}
