package query

import (
	"fmt"
	"strings"
)

// UpsertBuilder builds INSERT ... ON CONFLICT (key) DO UPDATE for one row
type UpsertBuilder struct {
	table   string
	columns []string
	key     []string
}

// Upsert starts an upsert into table keyed by key
func Upsert(table string, columns []string, key ...string) *UpsertBuilder {
	return &UpsertBuilder{table: table, columns: columns, key: key}
}

// Build renders the statement; callers bind one argument per column in order
func (u *UpsertBuilder) Build(d Dialect) (string, error) {
	table, err := Ident(u.table)
	if err != nil {
		return "", err
	}
	if len(u.columns) == 0 || len(u.key) == 0 {
		return "", fmt.Errorf("upsert %s: columns and key are required", u.table)
	}

	isKey := make(map[string]bool, len(u.key))
	keys := make([]string, len(u.key))
	for i, k := range u.key {
		if keys[i], err = Ident(k); err != nil {
			return "", err
		}
		isKey[k] = true
	}

	cols := make([]string, len(u.columns))
	marks := make([]string, len(u.columns))
	var sets []string
	for i, c := range u.columns {
		if cols[i], err = Ident(c); err != nil {
			return "", err
		}
		marks[i] = placeholder(d, i+1)
		if !isKey[c] {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", cols[i], cols[i]))
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s)",
		table, strings.Join(cols, ", "), strings.Join(marks, ", "), strings.Join(keys, ", "))
	if len(sets) == 0 {
		sb.WriteString(" DO NOTHING")
	} else {
		sb.WriteString(" DO UPDATE SET ")
		sb.WriteString(strings.Join(sets, ", "))
	}
	return sb.String(), nil
}
