package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/testutil"
)

func featuredOn(days ...string) []contracts.FeaturedRecord {
	out := make([]contracts.FeaturedRecord, len(days))
	for i, d := range days {
		out[i] = contracts.FeaturedRecord{Date: testutil.Date(d), Ticker: "ITUB4"}
	}
	return out
}

func TestSelect(t *testing.T) {
	rows := featuredOn("2025-09-22", "2025-09-24", "2025-09-23")

	rec, exact := Select(rows, testutil.Date("2025-09-23"))
	require.NotNil(t, rec)
	assert.True(t, exact)
	assert.Equal(t, testutil.Date("2025-09-23"), rec.Date)

	rec, exact = Select(rows, testutil.Date("2025-09-25"))
	require.NotNil(t, rec)
	assert.False(t, exact)
	assert.Equal(t, testutil.Date("2025-09-24"), rec.Date)

	rec, exact = Select(nil, testutil.Date("2025-09-25"))
	assert.Nil(t, rec)
	assert.False(t, exact)
}
