package storage

import (
	"context"
	"fmt"

	"github.com/marmos91/dittobox/pkg/index"
	badgerindex "github.com/marmos91/dittobox/pkg/index/badger"
	"github.com/marmos91/dittobox/pkg/index/gormstore"
)

// OpenIndex opens the metadata index backend selected by cfg.Type.
// SQLite and PostgreSQL go through GORM, badger is embedded.
func OpenIndex(ctx context.Context, cfg *index.Config) (index.Store, error) {
	cfg.ApplyDefaults()

	switch cfg.Type {
	case index.DatabaseTypeSQLite, index.DatabaseTypePostgres:
		return gormstore.New(cfg)
	case index.DatabaseTypeBadger:
		return badgerindex.New(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}
