package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wonny/b3lake/backend/internal/contracts"
)

// MemoryQuotes is an in-memory contracts.QuoteStore with error injection
type MemoryQuotes struct {
	mu     sync.Mutex
	rows   map[contracts.QuoteKey]contracts.QuoteRecord
	Err    error // returned by every read when set
	Calls  map[string]int
	Ranges [][2]time.Time
}

// NewMemoryQuotes creates a store holding quotes
func NewMemoryQuotes(quotes ...contracts.QuoteRecord) *MemoryQuotes {
	m := &MemoryQuotes{
		rows:  make(map[contracts.QuoteKey]contracts.QuoteRecord),
		Calls: make(map[string]int),
	}
	_, _ = m.Upsert(context.Background(), quotes)
	return m
}

func (m *MemoryQuotes) sorted(filter func(q contracts.QuoteRecord) bool) []contracts.QuoteRecord {
	var out []contracts.QuoteRecord
	for _, q := range m.rows {
		if filter(q) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ticker != out[j].Ticker {
			return out[i].Ticker < out[j].Ticker
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func (m *MemoryQuotes) call(name string) error {
	m.Calls[name]++
	return m.Err
}

// All returns every row ordered by (ticker, date)
func (m *MemoryQuotes) All(ctx context.Context) ([]contracts.QuoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("All"); err != nil {
		return nil, err
	}
	return m.sorted(func(contracts.QuoteRecord) bool { return true }), nil
}

// Range returns one ticker's rows in [from, to]
func (m *MemoryQuotes) Range(ctx context.Context, ticker string, from, to time.Time) ([]contracts.QuoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("Range"); err != nil {
		return nil, err
	}
	m.Ranges = append(m.Ranges, [2]time.Time{from, to})
	ticker = contracts.NormalizeTicker(ticker)
	from, to = contracts.DateOnly(from), contracts.DateOnly(to)
	return m.sorted(func(q contracts.QuoteRecord) bool {
		return q.Ticker == ticker && !q.Date.Before(from) && !q.Date.After(to)
	}), nil
}

// LatestBefore returns up to n rows strictly before the date, ascending
func (m *MemoryQuotes) LatestBefore(ctx context.Context, ticker string, before time.Time, n int) ([]contracts.QuoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("LatestBefore"); err != nil {
		return nil, err
	}
	ticker = contracts.NormalizeTicker(ticker)
	before = contracts.DateOnly(before)
	rows := m.sorted(func(q contracts.QuoteRecord) bool {
		return q.Ticker == ticker && q.Date.Before(before)
	})
	if len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	return rows, nil
}

// Latest returns the most recent row of a ticker
func (m *MemoryQuotes) Latest(ctx context.Context, ticker string) (*contracts.QuoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("Latest"); err != nil {
		return nil, err
	}
	ticker = contracts.NormalizeTicker(ticker)
	rows := m.sorted(func(q contracts.QuoteRecord) bool { return q.Ticker == ticker })
	if len(rows) == 0 {
		return nil, contracts.ErrNotFound
	}
	return &rows[len(rows)-1], nil
}

// Get returns the row of a ticker on a date
func (m *MemoryQuotes) Get(ctx context.Context, ticker string, date time.Time) (*contracts.QuoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("Get"); err != nil {
		return nil, err
	}
	q, ok := m.rows[contracts.QuoteKey{Ticker: contracts.NormalizeTicker(ticker), Date: date.Format(contracts.DateLayout)}]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	return &q, nil
}

// Count returns the number of rows
func (m *MemoryQuotes) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("Count"); err != nil {
		return 0, err
	}
	return int64(len(m.rows)), nil
}

// MaxDate returns the latest date held
func (m *MemoryQuotes) MaxDate(ctx context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("MaxDate"); err != nil {
		return time.Time{}, err
	}
	var max time.Time
	for _, q := range m.rows {
		if q.Date.After(max) {
			max = q.Date
		}
	}
	if max.IsZero() {
		return max, contracts.ErrNotFound
	}
	return max, nil
}

// Upsert stores quotes keyed by (ticker, date)
func (m *MemoryQuotes) Upsert(ctx context.Context, quotes []contracts.QuoteRecord) (int, error) {
	if m.rows == nil {
		m.rows = make(map[contracts.QuoteKey]contracts.QuoteRecord)
	}
	if m.Calls == nil {
		m.Calls = make(map[string]int)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["Upsert"]++
	for _, q := range quotes {
		q.Ticker = contracts.NormalizeTicker(q.Ticker)
		q.Date = contracts.DateOnly(q.Date)
		m.rows[q.Key()] = q
	}
	return len(quotes), nil
}

// MemoryFeatured is an in-memory contracts.FeaturedStore
type MemoryFeatured struct {
	mu   sync.Mutex
	rows map[contracts.QuoteKey]contracts.FeaturedRecord
	Err  error
}

// NewMemoryFeatured creates a store holding rows
func NewMemoryFeatured(rows ...contracts.FeaturedRecord) *MemoryFeatured {
	m := &MemoryFeatured{rows: make(map[contracts.QuoteKey]contracts.FeaturedRecord)}
	_, _ = m.Upsert(context.Background(), rows)
	return m
}

// Upsert stores rows keyed by (ticker, date)
func (m *MemoryFeatured) Upsert(ctx context.Context, rows []contracts.FeaturedRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	for _, r := range rows {
		m.rows[contracts.QuoteKey{Ticker: r.Ticker, Date: r.Date.Format(contracts.DateLayout)}] = r
	}
	return len(rows), nil
}

// Count returns the number of rows
func (m *MemoryFeatured) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return int64(len(m.rows)), nil
}

// Rows returns every stored row ordered by (ticker, date)
func (m *MemoryFeatured) Rows() []contracts.FeaturedRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]contracts.FeaturedRecord, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ticker != out[j].Ticker {
			return out[i].Ticker < out[j].Ticker
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// ListAssets pages distinct (ticker, company) pairs
func (m *MemoryFeatured) ListAssets(ctx context.Context, filter contracts.AssetFilter) ([]contracts.AssetSummary, int64, error) {
	if m.Err != nil {
		return nil, 0, m.Err
	}
	seen := make(map[contracts.AssetSummary]struct{})
	var all []contracts.AssetSummary
	for _, r := range m.Rows() {
		a := contracts.AssetSummary{Ticker: r.Ticker, Company: r.Company}
		if _, ok := seen[a]; ok {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(strings.ToUpper(a.Ticker), filter.Search) &&
			!strings.Contains(strings.ToUpper(a.Company), filter.Search) {
			continue
		}
		seen[a] = struct{}{}
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Ticker != all[j].Ticker {
			return all[i].Ticker < all[j].Ticker
		}
		return all[i].Company < all[j].Company
	})

	total := int64(len(all))
	start := filter.Offset
	if start > len(all) {
		start = len(all)
	}
	end := len(all)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return append([]contracts.AssetSummary{}, all[start:end]...), total, nil
}
