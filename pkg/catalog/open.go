// Package catalog selects a statistics catalog backend and loads catalog snapshots.
package catalog

import (
	"context"
	"fmt"

	"github.com/kasuganosora/videx/pkg/catalog/badger"
	"github.com/kasuganosora/videx/pkg/catalog/memory"
	"github.com/kasuganosora/videx/pkg/catalog/sqlcat"
	"github.com/kasuganosora/videx/pkg/config"
	"github.com/kasuganosora/videx/pkg/domain"
)

// Open 按配置打开目录
func Open(ctx context.Context, cfg config.CatalogConfig) (domain.Catalog, error) {
	switch cfg.Backend {
	case "", config.BackendMemory:
		return memory.New(cfg.Database)
	case config.BackendBadger:
		return badger.Open(badger.Config{
			DataDir:      cfg.DataDir,
			DatabaseName: cfg.Database,
		})
	case config.BackendSQLite, config.BackendPostgres, config.BackendMySQL:
		return sqlcat.Open(ctx, cfg.Backend, cfg.DSN, cfg.Database)
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", cfg.Backend)
	}
}
