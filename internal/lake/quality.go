package lake

import (
	"github.com/shopspring/decimal"

	"github.com/wonny/b3lake/backend/internal/contracts"
)

// Coverage weights (sum = 1.0)
var coverageWeights = map[string]float64{
	"close":       0.30, // engine input, required
	"open":        0.20, // engine input, required
	"volume":      0.20,
	"high_low":    0.15,
	"best_quotes": 0.15,
}

// MinQualityScore is the score below which a batch is flagged
const MinQualityScore = 0.7

// CheckQuality measures how many rows carry usable values per column group
// ⭐ SSOT: 적재 데이터 품질 검증
func CheckQuality(quotes []contracts.QuoteRecord) *contracts.QuoteQualitySnapshot {
	snap := &contracts.QuoteQualitySnapshot{
		TotalRows: len(quotes),
		Coverage:  make(map[string]float64, len(coverageWeights)),
	}
	if len(quotes) == 0 {
		return snap
	}

	counts := make(map[string]int, len(coverageWeights))
	tickers := make(map[string]struct{})
	for _, q := range quotes {
		tickers[contracts.NormalizeTicker(q.Ticker)] = struct{}{}
		if q.Date.After(snap.Date) {
			snap.Date = contracts.DateOnly(q.Date)
		}
		if positive(q.Close) {
			counts["close"]++
		}
		if positive(q.Open) {
			counts["open"]++
		}
		if q.Volume.Valid && q.Volume.Int64 > 0 {
			counts["volume"]++
		}
		if positive(q.High) && positive(q.Low) {
			counts["high_low"]++
		}
		if positive(q.BestBuy) && positive(q.BestSell) {
			counts["best_quotes"]++
		}
	}
	snap.Tickers = len(tickers)

	for key, weight := range coverageWeights {
		cov := float64(counts[key]) / float64(len(quotes))
		snap.Coverage[key] = cov
		snap.QualityScore += cov * weight
	}
	snap.Passed = snap.QualityScore >= MinQualityScore
	return snap
}

func positive(d decimal.NullDecimal) bool {
	return d.Valid && d.Decimal.Sign() > 0
}
