package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuoteQualitySnapshot_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		snapshot QuoteQualitySnapshot
		want     bool
	}{
		{
			name:     "valid snapshot",
			snapshot: QuoteQualitySnapshot{Date: time.Now(), TotalRows: 100, QualityScore: 0.9},
			want:     true,
		},
		{
			name:     "low quality score",
			snapshot: QuoteQualitySnapshot{Date: time.Now(), TotalRows: 100, QualityScore: 0.5},
			want:     false,
		},
		{
			name:     "empty batch",
			snapshot: QuoteQualitySnapshot{Date: time.Now(), QualityScore: 1.0},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.snapshot.IsValid())
		})
	}
}

func TestQuoteQualitySnapshot_CoverageRate(t *testing.T) {
	snapshot := QuoteQualitySnapshot{Coverage: map[string]float64{"close": 1.0, "volume": 0.5}}
	assert.InDelta(t, 0.75, snapshot.CoverageRate(), 1e-9)
	assert.Equal(t, 0.0, (&QuoteQualitySnapshot{}).CoverageRate())
}
