package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-memdb"

	"github.com/kasuganosora/videx/pkg/domain"
)

// reader 在 memdb 事务上实现只读接口
type reader struct {
	txn *memdb.Txn
}

func (r *reader) first(table, index string, args ...interface{}) (interface{}, error) {
	raw, err := r.txn.First(table, index, args...)
	if err != nil {
		return nil, fmt.Errorf("memdb lookup %s.%s: %w", table, index, err)
	}
	return raw, nil
}

func (r *reader) GetRelation(ctx context.Context, rel domain.Oid) (*domain.RelationInfo, error) {
	raw, err := r.first(tableRelation, indexID, rel)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, domain.NewErrNotFound("relation", rel)
	}
	return raw.(*domain.RelationInfo).Clone(), nil
}

func (r *reader) LookupRelation(ctx context.Context, schema, name string) (*domain.RelationInfo, error) {
	raw, err := r.first(tableNamespace, indexName, schema)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, domain.NewErrNotFound("schema", schema)
	}
	nsp := raw.(*domain.Namespace)

	raw, err = r.first(tableRelation, indexName, nsp.Oid, name)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, domain.NewErrNotFound("relation", schema+"."+name)
	}
	return raw.(*domain.RelationInfo).Clone(), nil
}

func (r *reader) GetNamespace(ctx context.Context, nsp domain.Oid) (*domain.Namespace, error) {
	raw, err := r.first(tableNamespace, indexID, nsp)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, domain.NewErrNotFound("schema", nsp)
	}
	out := *raw.(*domain.Namespace)
	return &out, nil
}

func (r *reader) GetColumnStats(ctx context.Context, rel domain.Oid) ([]domain.ColumnStats, error) {
	it, err := r.txn.Get(tableColumnStats, indexRelation, rel)
	if err != nil {
		return nil, fmt.Errorf("memdb scan %s: %w", tableColumnStats, err)
	}
	var out []domain.ColumnStats
	for obj := it.Next(); obj != nil; obj = it.Next() {
		out = append(out, obj.(*domain.ColumnStats).Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AttNum != out[j].AttNum {
			return out[i].AttNum < out[j].AttNum
		}
		return !out[i].Inherit && out[j].Inherit
	})
	return out, nil
}

func (r *reader) GetColumnStat(ctx context.Context, key domain.StatKey) (*domain.ColumnStats, error) {
	raw, err := r.first(tableColumnStats, indexID, key.Relation, key.AttNum, key.Inherit)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, domain.NewErrNotFound("column statistic", key)
	}
	out := raw.(*domain.ColumnStats).Clone()
	return &out, nil
}

func (r *reader) GetExtendedStats(ctx context.Context, rel domain.Oid) ([]domain.ExtendedStats, error) {
	it, err := r.txn.Get(tableExtStats, indexRelation, rel)
	if err != nil {
		return nil, fmt.Errorf("memdb scan %s: %w", tableExtStats, err)
	}
	var out []domain.ExtendedStats
	for obj := it.Next(); obj != nil; obj = it.Next() {
		out = append(out, obj.(*domain.ExtendedStats).Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Oid < out[j].Oid })
	return out, nil
}

func (r *reader) ExtendedStatsNameExists(ctx context.Context, nsp domain.Oid, name string) (bool, error) {
	raw, err := r.first(tableExtStats, indexName, nsp, name)
	if err != nil {
		return false, err
	}
	return raw != nil, nil
}
