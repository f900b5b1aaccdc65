package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kasuganosora/videx/pkg/catalog"
	"github.com/kasuganosora/videx/pkg/config"
	"github.com/kasuganosora/videx/pkg/domain"
	"github.com/kasuganosora/videx/pkg/logging"
)

// app 命令共享的配置和日志
type app struct {
	cfg    *config.Config
	logger logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:               "videx",
		Short:             "What-if statistics for query planning",
		Long:              "Copy planner statistics onto virtual relations, estimate their size and serve them to remote planners",
		SilenceUsage:      true,
		PersistentPreRunE: a.preRun,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", `config file (JSON or YAML); defaults to $`+config.ConfigEnv+` or well-known paths`)
	flags.String("log-level", "", `log level ("debug", "info", "warn", "error")`)
	flags.String("catalog-backend", "", `catalog backend ("memory", "badger", "sqlite", "postgres", "mysql")`)
	flags.String("catalog-dsn", "", "connection string for SQL catalog backends")
	flags.String("catalog-data-dir", "", "data directory for the badger catalog")
	flags.String("database", "", "database name the catalog belongs to")
	flags.String("seed", "", "catalog snapshot (JSON or YAML) loaded after the catalog is opened")

	registerSyncCmd(rootCmd, a)
	registerEstimateCmd(rootCmd, a)
	registerAskCmd(rootCmd, a)
	registerServeCmd(rootCmd, a)
	registerLoadCmd(rootCmd, a)
	registerDumpCmd(rootCmd, a)

	return rootCmd
}

func (a *app) preRun(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = config.LoadConfigOrDefault()
	}

	overrides := map[string]*string{
		"log-level":        &cfg.Log.Level,
		"catalog-backend":  &cfg.Catalog.Backend,
		"catalog-dsn":      &cfg.Catalog.DSN,
		"catalog-data-dir": &cfg.Catalog.DataDir,
		"database":         &cfg.Catalog.Database,
	}
	for name, dst := range overrides {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// openCatalog 打开配置的目录，并按需导入 --seed 快照
func (a *app) openCatalog(cmd *cobra.Command) (domain.Catalog, error) {
	ctx := cmd.Context()
	cat, err := catalog.Open(ctx, a.cfg.Catalog)
	if err != nil {
		return nil, err
	}

	seed, _ := cmd.Flags().GetString("seed")
	if seed == "" {
		return cat, nil
	}
	snap, err := catalog.ReadSnapshot(seed)
	if err == nil {
		err = snap.Load(ctx, cat)
	}
	if err != nil {
		cat.Close()
		return nil, err
	}
	a.logger.Info("loaded %d relations from %s", len(snap.Relations), seed)
	return cat, nil
}

// resolveRelation 解析表引用：数字 oid，或 schema.table / table（默认 public 模式）
func resolveRelation(ctx context.Context, r domain.Reader, ref string) (*domain.RelationInfo, error) {
	if ref == "" {
		return nil, fmt.Errorf("relation reference is required")
	}
	if oid, err := strconv.ParseUint(ref, 10, 32); err == nil {
		return r.GetRelation(ctx, domain.Oid(oid))
	}
	schema, table := "public", ref
	if i := strings.LastIndex(ref, "."); i >= 0 {
		schema, table = ref[:i], ref[i+1:]
	}
	return r.LookupRelation(ctx, schema, table)
}
