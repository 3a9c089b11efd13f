package postgres

import (
	"context"
	"fmt"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/store/query"
	"github.com/wonny/b3lake/backend/internal/store/schema"
	"github.com/wonny/b3lake/backend/pkg/database"
)

// Lake is the Postgres-backed contracts.Lake
type Lake struct {
	db       *database.DB
	quotes   *QuoteRepository
	featured *FeaturedRepository
}

// NewLake wires both repositories over one pool. Close releases the pool.
func NewLake(db *database.DB) *Lake {
	return &Lake{
		db:       db,
		quotes:   NewQuoteRepository(db.Pool),
		featured: NewFeaturedRepository(db.Pool),
	}
}

// Quotes returns the b3_hist store
func (l *Lake) Quotes() contracts.QuoteStore { return l.quotes }

// Featured returns the b3_featured store
func (l *Lake) Featured() contracts.FeaturedStore { return l.featured }

// EnsureSchema creates the lake tables if absent
func (l *Lake) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema.CreateStatements(query.Postgres) {
		if _, err := l.db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Close releases the pool
func (l *Lake) Close() error {
	l.db.Close()
	return nil
}
