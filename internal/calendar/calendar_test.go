package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/external/brasilapi"
	"github.com/wonny/b3lake/backend/internal/testutil"
	"github.com/wonny/b3lake/backend/pkg/logger"
)

type stubHolidays struct {
	byYear map[int][]string
	err    error
	calls  map[int]int
}

func (s *stubHolidays) Holidays(ctx context.Context, year int) ([]brasilapi.Holiday, error) {
	if s.calls == nil {
		s.calls = make(map[int]int)
	}
	s.calls[year]++
	if s.err != nil {
		return nil, s.err
	}
	var out []brasilapi.Holiday
	for _, d := range s.byYear[year] {
		out = append(out, brasilapi.Holiday{Date: testutil.Date(d)})
	}
	return out, nil
}

func brazil() *stubHolidays {
	return &stubHolidays{byYear: map[int][]string{
		2024: {"2024-12-25"},
		2025: {"2025-01-01", "2025-04-18", "2025-04-21", "2025-11-20"},
	}}
}

func TestLastBusinessDay(t *testing.T) {
	cal := New(brazil(), nil, logger.Nop())
	ctx := context.Background()

	tests := []struct {
		before string
		want   string
	}{
		{"2025-09-25", "2025-09-24"}, // Thursday
		{"2025-09-22", "2025-09-19"}, // Monday skips the weekend
		{"2025-09-28", "2025-09-26"}, // Sunday
		{"2025-04-22", "2025-04-17"}, // Tiradentes Monday and Good Friday
		{"2025-01-02", "2024-12-31"}, // New Year
		{"2025-11-21", "2025-11-19"},
	}

	for _, tt := range tests {
		t.Run(tt.before, func(t *testing.T) {
			got, err := cal.LastBusinessDay(ctx, testutil.Date(tt.before))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format(contracts.DateLayout))
		})
	}
}

func TestLastBusinessDay_CachesYears(t *testing.T) {
	src := brazil()
	cal := New(src, nil, logger.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := cal.LastBusinessDay(ctx, testutil.Date("2025-09-25"))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, src.calls[2025])
	assert.Equal(t, 1, src.calls[2024])
}

func TestLastBusinessDay_StoreFallback(t *testing.T) {
	src := &stubHolidays{err: errors.New("timeout")}
	store := testutil.NewMemoryQuotes(testutil.Series("PETR4", testutil.Weekdays(testutil.Date("2025-09-23"), 3))...)
	cal := New(src, store, logger.Nop())

	got, err := cal.LastBusinessDay(context.Background(), testutil.Date("2025-09-26"))
	require.NoError(t, err)
	assert.Equal(t, "2025-09-23", got.Format(contracts.DateLayout))
}

func TestLastBusinessDay_NoFallback(t *testing.T) {
	src := &stubHolidays{err: errors.New("timeout")}
	ctx := context.Background()

	_, err := New(src, nil, logger.Nop()).LastBusinessDay(ctx, testutil.Date("2025-09-26"))
	assert.Error(t, err)

	_, err = New(src, testutil.NewMemoryQuotes(), logger.Nop()).LastBusinessDay(ctx, testutil.Date("2025-09-26"))
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestIsBusinessDay(t *testing.T) {
	holidays := map[string]struct{}{"2025-04-18": {}}
	assert.True(t, IsBusinessDay(testutil.Date("2025-04-17"), holidays))
	assert.False(t, IsBusinessDay(testutil.Date("2025-04-18"), holidays))
	assert.False(t, IsBusinessDay(testutil.Date("2025-04-19"), nil))
	assert.False(t, IsBusinessDay(time.Date(2025, 4, 20, 12, 0, 0, 0, time.UTC), nil))
}
