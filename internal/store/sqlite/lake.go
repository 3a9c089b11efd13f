package sqlite

import (
	"context"
	"fmt"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/store/query"
	"github.com/wonny/b3lake/backend/internal/store/schema"
	"github.com/wonny/b3lake/backend/pkg/sqlitedb"
)

// Lake is the embedded SQLite contracts.Lake, used for local runs and tests
type Lake struct {
	db       *sqlitedb.DB
	quotes   *QuoteRepository
	featured *FeaturedRepository
}

// NewLake wires both repositories over one handle. Close releases the handle.
func NewLake(db *sqlitedb.DB) *Lake {
	return &Lake{
		db:       db,
		quotes:   NewQuoteRepository(db.SQL),
		featured: NewFeaturedRepository(db.SQL),
	}
}

// Quotes returns the b3_hist store
func (l *Lake) Quotes() contracts.QuoteStore { return l.quotes }

// Featured returns the b3_featured store
func (l *Lake) Featured() contracts.FeaturedStore { return l.featured }

// EnsureSchema creates the lake tables if absent
func (l *Lake) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema.CreateStatements(query.SQLite) {
		if _, err := l.db.SQL.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Close releases the handle
func (l *Lake) Close() error {
	return l.db.Close()
}
