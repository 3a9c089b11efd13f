package contracts

import "time"

// QuoteQualitySnapshot reports field coverage of one batch of quotes
// ⭐ SSOT: 적재 품질 정보 전달
type QuoteQualitySnapshot struct {
	Date         time.Time          `json:"date"` // latest trading date in the batch
	TotalRows    int                `json:"total_rows"`
	Tickers      int                `json:"tickers"`
	Coverage     map[string]float64 `json:"coverage"`      // column group -> share of valid rows
	QualityScore float64            `json:"quality_score"` // 0.0 ~ 1.0
	Passed       bool               `json:"passed"`
}

// IsValid checks if the snapshot meets minimum requirements
func (d *QuoteQualitySnapshot) IsValid() bool {
	return d.QualityScore >= 0.7 && d.TotalRows > 0
}

// CoverageRate returns the unweighted mean coverage
func (d *QuoteQualitySnapshot) CoverageRate() float64 {
	if len(d.Coverage) == 0 {
		return 0.0
	}

	total := 0.0
	for _, rate := range d.Coverage {
		total += rate
	}

	return total / float64(len(d.Coverage))
}
