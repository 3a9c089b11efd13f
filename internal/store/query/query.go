// Package query renders parameterized SQL for the lake tables.
// Values are always bound as arguments and never formatted into SQL text.
package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/b3lake/backend/internal/contracts"
)

// Dialect selects placeholder style and date encoding
type Dialect int

const (
	Postgres Dialect = iota // $1, $2 ... ; DATE columns bound as time.Time
	SQLite                  // ?, ? ...   ; dates bound as YYYY-MM-DD text
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// Direction is a sort direction
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Ident quotes an identifier after validating it
func Ident(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("invalid identifier %q", name)
	}
	return `"` + name + `"`, nil
}

// dateArg marks an argument that is encoded per dialect
type dateArg time.Time

// DateValue encodes a date for binding under d
func DateValue(d Dialect, t time.Time) interface{} {
	day := contracts.DateOnly(t)
	if d == SQLite {
		return day.Format(contracts.DateLayout)
	}
	return day
}

func bind(d Dialect, arg interface{}) interface{} {
	if da, ok := arg.(dateArg); ok {
		return DateValue(d, time.Time(da))
	}
	return arg
}

// placeholder renders the marker for argument position pos (1-based)
func placeholder(d Dialect, pos int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(pos)
	}
	return "?"
}

// Predicate is one typed WHERE condition. Expr uses '?' as the argument marker.
type Predicate struct {
	column string
	expr   string
	args   []interface{}
	cols   []string
}

func (p Predicate) render(d Dialect, next *int) (string, []interface{}, error) {
	cols := p.cols
	if p.column != "" {
		cols = []string{p.column}
	}
	quoted := make([]interface{}, len(cols))
	for i, c := range cols {
		q, err := Ident(c)
		if err != nil {
			return "", nil, err
		}
		quoted[i] = q
	}
	text := fmt.Sprintf(p.expr, quoted...)

	var sb strings.Builder
	args := make([]interface{}, 0, len(p.args))
	argIdx := 0
	for _, r := range text {
		if r == '?' {
			if argIdx >= len(p.args) {
				return "", nil, fmt.Errorf("predicate %q: missing argument", p.expr)
			}
			*next++
			sb.WriteString(placeholder(d, *next))
			args = append(args, bind(d, p.args[argIdx]))
			argIdx++
			continue
		}
		sb.WriteRune(r)
	}
	if argIdx != len(p.args) {
		return "", nil, fmt.Errorf("predicate %q: %d unused arguments", p.expr, len(p.args)-argIdx)
	}
	return sb.String(), args, nil
}

// Eq matches column = value
func Eq(column string, value interface{}) Predicate {
	return Predicate{column: column, expr: "%s = ?", args: []interface{}{value}}
}

// TickerEq matches the normalized ticker
func TickerEq(ticker string) Predicate {
	return Eq("ticker", contracts.NormalizeTicker(ticker))
}

// DateEq matches column = date
func DateEq(column string, t time.Time) Predicate {
	return Predicate{column: column, expr: "%s = ?", args: []interface{}{dateArg(t)}}
}

// DateNe matches column <> date
func DateNe(column string, t time.Time) Predicate {
	return Predicate{column: column, expr: "%s <> ?", args: []interface{}{dateArg(t)}}
}

// DateGTE matches column >= date
func DateGTE(column string, t time.Time) Predicate {
	return Predicate{column: column, expr: "%s >= ?", args: []interface{}{dateArg(t)}}
}

// DateLTE matches column <= date
func DateLTE(column string, t time.Time) Predicate {
	return Predicate{column: column, expr: "%s <= ?", args: []interface{}{dateArg(t)}}
}

// DateLT matches column < date
func DateLT(column string, t time.Time) Predicate {
	return Predicate{column: column, expr: "%s < ?", args: []interface{}{dateArg(t)}}
}

// NotNull matches non-null column values
func NotNull(column string) Predicate {
	return Predicate{column: column, expr: "%s IS NOT NULL"}
}

// Search matches term as a case-insensitive substring of any of the columns
func Search(term string, columns ...string) Predicate {
	pattern := "%" + escapeLike(strings.ToUpper(term)) + "%"
	parts := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i := range columns {
		parts[i] = `UPPER(%s) LIKE ? ESCAPE '\'`
		args[i] = pattern
	}
	return Predicate{
		cols: columns,
		expr: "(" + strings.Join(parts, " OR ") + ")",
		args: args,
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
