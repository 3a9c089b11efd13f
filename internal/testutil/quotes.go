// Package testutil builds quote fixtures shared by package tests.
package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/b3lake/backend/internal/contracts"
)

// Date parses YYYY-MM-DD and panics on bad input
func Date(s string) time.Time {
	d, err := contracts.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Weekdays returns n consecutive weekdays ending on or before end, ascending
func Weekdays(end time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	d := contracts.DateOnly(end)
	for i := n - 1; i >= 0; {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out[i] = d
			i--
		}
		d = d.AddDate(0, 0, -1)
	}
	return out
}

// Quote builds a fully populated quote whose prices vary with i,
// so every indicator is defined once its window fills.
func Quote(ticker string, date time.Time, i int) contracts.QuoteRecord {
	closeCents := int64(2000 + (i%7)*35 + i*5)
	openCents := closeCents - int64((i%3)-1)*12 - 7
	return contracts.QuoteRecord{
		Date:     date,
		Ticker:   ticker,
		Company:  ticker + " SA",
		Type:     "ON  NM",
		Market:   "010",
		Currency: "R$",
		Open:     cents(openCents),
		High:     cents(closeCents + int64(i%4)*9 + 3),
		Low:      cents(openCents - 15),
		Avg:      cents((openCents + closeCents) / 2),
		Close:    cents(closeCents),
		BestBuy:  cents(closeCents - 2),
		BestSell: cents(closeCents + 3),
		Trades:   contracts.Count(int64(100 + i)),
		Volume:   contracts.Count(int64(10000 + (i%5)*700 + i*13)),
		Turnover: cents(closeCents * 10000),
	}
}

// Series builds quotes for ticker on the given dates
func Series(ticker string, dates []time.Time) []contracts.QuoteRecord {
	out := make([]contracts.QuoteRecord, len(dates))
	for i, d := range dates {
		out[i] = Quote(ticker, d, i)
	}
	return out
}

func cents(n int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.New(n, -2))
}
