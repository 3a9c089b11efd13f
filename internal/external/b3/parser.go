package b3

import (
	"bufio"
	"database/sql"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"

	"github.com/wonny/b3lake/backend/internal/contracts"
)

// field is a half-open byte range of a COTAHIST record
type field struct {
	start, end int
}

// COTAHIST register 01 layout
var (
	colDate     = field{2, 10}
	colTicker   = field{12, 24}
	colCompany  = field{27, 39}
	colType     = field{39, 49}
	colMarket   = field{49, 52}
	colCurrency = field{52, 56}
	colOpen     = field{56, 69}
	colHigh     = field{69, 82}
	colLow      = field{82, 95}
	colAvg      = field{95, 108}
	colClose    = field{108, 121}
	colBestBuy  = field{121, 134}
	colBestSell = field{134, 147}
	colTrades   = field{147, 152}
	colVolume   = field{152, 170}
	colTurnover = field{170, 188}
	colISIN     = field{230, 242}
)

var tradeDate = regexp.MustCompile(`^\d{8}$`)

// ParseFile parses a COTAHIST file from disk
func ParseFile(path string) ([]contracts.QuoteRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads COTAHIST records and keeps trading rows only.
// Header (00) and trailer (99) records fail the 8-digit date check and are skipped.
// Malformed numbers become invalid values rather than errors.
func Parse(r io.Reader) ([]contracts.QuoteRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024), 1024*1024)

	var out []contracts.QuoteRecord
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		q, ok := parseLine(line)
		if ok {
			out = append(out, q)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan COTAHIST: %w", err)
	}
	return out, nil
}

func parseLine(line string) (contracts.QuoteRecord, bool) {
	raw := cut(line, colDate)
	if !tradeDate.MatchString(raw) {
		return contracts.QuoteRecord{}, false
	}
	date, err := time.Parse("20060102", raw)
	if err != nil {
		return contracts.QuoteRecord{}, false
	}

	return contracts.QuoteRecord{
		Date:     date,
		Ticker:   contracts.NormalizeTicker(cut(line, colTicker)),
		Company:  text(line, colCompany),
		Type:     text(line, colType),
		Market:   cut(line, colMarket),
		Currency: text(line, colCurrency),
		ISIN:     cut(line, colISIN),
		Open:     price(line, colOpen),
		High:     price(line, colHigh),
		Low:      price(line, colLow),
		Avg:      price(line, colAvg),
		Close:    price(line, colClose),
		BestBuy:  price(line, colBestBuy),
		BestSell: price(line, colBestSell),
		Trades:   integer(line, colTrades),
		Volume:   integer(line, colVolume),
		Turnover: price(line, colTurnover),
	}, true
}

// cut returns the trimmed bytes of f, tolerating short lines
func cut(line string, f field) string {
	if f.start >= len(line) {
		return ""
	}
	end := f.end
	if end > len(line) {
		end = len(line)
	}
	return strings.TrimSpace(line[f.start:end])
}

// text decodes a Latin-1 free-text column
func text(line string, f field) string {
	s := cut(line, f)
	decoded, err := charmap.ISO8859_1.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return decoded
}

// price reads a fixed-point number with two implied decimals
func price(line string, f field) decimal.NullDecimal {
	n, err := strconv.ParseInt(cut(line, f), 10, 64)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.New(n, -2))
}

func integer(line string, f field) sql.NullInt64 {
	n, err := strconv.ParseInt(cut(line, f), 10, 64)
	if err != nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: n, Valid: true}
}
