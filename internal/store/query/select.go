package query

import (
	"fmt"
	"strings"
)

type order struct {
	column string
	dir    Direction
}

// SelectBuilder builds a SELECT statement
type SelectBuilder struct {
	table    string
	columns  []string
	distinct bool
	where    []Predicate
	orders   []order
	limit    int
	offset   int
}

// Select starts a SELECT over table
func Select(table string, columns ...string) *SelectBuilder {
	return &SelectBuilder{table: table, columns: columns}
}

// Distinct adds DISTINCT
func (s *SelectBuilder) Distinct() *SelectBuilder {
	s.distinct = true
	return s
}

// Where appends predicates joined with AND
func (s *SelectBuilder) Where(preds ...Predicate) *SelectBuilder {
	s.where = append(s.where, preds...)
	return s
}

// OrderBy appends a sort key
func (s *SelectBuilder) OrderBy(column string, dir Direction) *SelectBuilder {
	s.orders = append(s.orders, order{column: column, dir: dir})
	return s
}

// Limit caps the row count (0 = no limit)
func (s *SelectBuilder) Limit(n int) *SelectBuilder {
	s.limit = n
	return s
}

// Offset skips rows
func (s *SelectBuilder) Offset(n int) *SelectBuilder {
	s.offset = n
	return s
}

// Build renders the statement and its arguments
func (s *SelectBuilder) Build(d Dialect) (string, []interface{}, error) {
	next := 0
	sql, args, err := s.base(d, &next)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString(sql)

	if len(s.orders) > 0 {
		parts := make([]string, len(s.orders))
		for i, o := range s.orders {
			col, err := Ident(o.column)
			if err != nil {
				return "", nil, err
			}
			if o.dir != Asc && o.dir != Desc {
				return "", nil, fmt.Errorf("invalid direction %q", o.dir)
			}
			parts[i] = col + " " + string(o.dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	if s.limit > 0 {
		next++
		sb.WriteString(" LIMIT " + placeholder(d, next))
		args = append(args, s.limit)
	}
	if s.offset > 0 {
		if s.limit <= 0 && d == SQLite {
			sb.WriteString(" LIMIT -1") // sqlite requires LIMIT before OFFSET
		}
		next++
		sb.WriteString(" OFFSET " + placeholder(d, next))
		args = append(args, s.offset)
	}

	return sb.String(), args, nil
}

// BuildCount renders SELECT COUNT(*) over the filtered rows, ignoring order and paging
func (s *SelectBuilder) BuildCount(d Dialect) (string, []interface{}, error) {
	next := 0
	sql, args, err := s.base(d, &next)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM (" + sql + ") AS filtered", args, nil
}

func (s *SelectBuilder) base(d Dialect, next *int) (string, []interface{}, error) {
	table, err := Ident(s.table)
	if err != nil {
		return "", nil, err
	}

	cols := "*"
	if len(s.columns) > 0 {
		quoted := make([]string, len(s.columns))
		for i, c := range s.columns {
			if quoted[i], err = Ident(c); err != nil {
				return "", nil, err
			}
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if s.distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(table)

	var args []interface{}
	if len(s.where) > 0 {
		conds := make([]string, len(s.where))
		for i, p := range s.where {
			text, pargs, err := p.render(d, next)
			if err != nil {
				return "", nil, err
			}
			conds[i] = text
			args = append(args, pargs...)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	return sb.String(), args, nil
}
