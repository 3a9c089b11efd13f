package assembler

import (
	"context"
	"sort"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/lakeconfig"
	"github.com/wonny/b3lake/backend/pkg/logger"
	"github.com/wonny/b3lake/backend/pkg/metrics"
)

// Assembler gathers enough history around one quote for the feature engine
// ⭐ SSOT: 단일 종목 히스토리 조립은 여기서만
type Assembler struct {
	store    contracts.QuoteStore
	daysBack int
	required int // history rows wanted before the target
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// New creates an assembler over store
func New(store contracts.QuoteStore, cfg lakeconfig.Assembler, log *logger.Logger, m *metrics.Metrics) *Assembler {
	required := cfg.RequiredHistory()
	if required < 1 {
		required = 1
	}
	return &Assembler{
		store:    store,
		daysBack: cfg.DaysBack,
		required: required,
		logger:   log,
		metrics:  m,
	}
}

// Assemble returns target plus its preceding history, ascending by date.
// Store failures degrade to the target alone; they are logged, never returned.
func (a *Assembler) Assemble(ctx context.Context, target contracts.QuoteRecord) []contracts.QuoteRecord {
	ticker := contracts.NormalizeTicker(target.Ticker)
	day := contracts.DateOnly(target.Date)
	target.Ticker = ticker
	target.Date = day

	log := a.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"date":   day.Format(contracts.DateLayout),
	})

	window, err := a.store.Range(ctx, ticker, day.AddDate(0, 0, -a.daysBack), day)
	if err != nil {
		log.WithError(err).Error("History window query failed")
		return []contracts.QuoteRecord{target}
	}

	history := make([]contracts.QuoteRecord, 0, len(window))
	for _, q := range window {
		if !contracts.DateOnly(q.Date).Equal(day) {
			history = append(history, q)
		}
	}

	if len(history) < a.required {
		a.metrics.AssemblerFallback()
		// full required count: most rows before day are already in the window and get deduped
		older, err := a.store.LatestBefore(ctx, ticker, day, a.required)
		if err != nil {
			log.WithError(err).Error("Fallback history query failed")
			return []contracts.QuoteRecord{target}
		}
		history = merge(older, history)
	}

	if len(history) == 0 {
		log.Warn("No historical data found")
		return []contracts.QuoteRecord{target}
	}
	if len(history) < a.required {
		log.WithFields(map[string]interface{}{
			"rows":        len(history),
			"recommended": a.required,
		}).Warn("Limited historical data")
	}

	combined := append(history, target)
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Date.Before(combined[j].Date)
	})

	log.WithField("history_rows", len(history)).Debug("Assembled historical context")
	return combined
}

// merge puts older rows ahead of the window and keeps one row per date
func merge(older, window []contracts.QuoteRecord) []contracts.QuoteRecord {
	out := make([]contracts.QuoteRecord, 0, len(older)+len(window))
	seen := make(map[contracts.QuoteKey]struct{}, len(older)+len(window))
	for _, rows := range [][]contracts.QuoteRecord{older, window} {
		for _, q := range rows {
			key := q.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, q)
		}
	}
	return out
}
