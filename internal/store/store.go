// Package store opens the lake backend selected by configuration.
package store

import (
	"context"
	"fmt"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/store/postgres"
	"github.com/wonny/b3lake/backend/internal/store/sqlite"
	"github.com/wonny/b3lake/backend/pkg/config"
	"github.com/wonny/b3lake/backend/pkg/database"
	"github.com/wonny/b3lake/backend/pkg/logger"
	"github.com/wonny/b3lake/backend/pkg/sqlitedb"
)

// Open connects to the configured backend and ensures the schema exists.
// The caller owns the returned lake and must Close it.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (contracts.Lake, error) {
	var lake contracts.Lake

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		lake = postgres.NewLake(db)
	case config.DriverSQLite:
		db, err := sqlitedb.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		lake = sqlite.NewLake(db)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if err := lake.EnsureSchema(ctx); err != nil {
		lake.Close()
		return nil, err
	}

	log.WithField("driver", cfg.StoreDriver).Info("Lake store opened")
	return lake, nil
}
