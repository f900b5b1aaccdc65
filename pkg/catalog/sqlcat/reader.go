package sqlcat

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/kasuganosora/videx/pkg/domain"
)

// reader 只读查询
type reader struct {
	q       queryer
	dialect Dialect
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRelation(row rowScanner) (*domain.RelationInfo, error) {
	var (
		rel                     domain.RelationInfo
		oid, nsp, pages, allVis int64
		frozen, minMulti        int64
		fillFactor              int64
		attributes              string
	)
	err := row.Scan(&oid, &rel.Name, &nsp, &rel.AccessMethod, &rel.HasSubclass, &fillFactor,
		&pages, &rel.Stats.Tuples, &allVis, &rel.Stats.HasIndex,
		&frozen, &minMulti, &attributes)
	if err != nil {
		return nil, err
	}
	rel.Oid = domain.Oid(oid)
	rel.Namespace = domain.Oid(nsp)
	rel.FillFactor = int(fillFactor)
	rel.Stats.Pages = uint32(pages)
	rel.Stats.AllVisible = uint32(allVis)
	rel.Horizons = domain.Horizons{
		FrozenXID: domain.TransactionID(frozen),
		MinMulti:  domain.MultiXactID(minMulti),
	}
	if err := json.Unmarshal([]byte(attributes), &rel.Attributes); err != nil {
		return nil, fmt.Errorf("failed to decode attributes of relation %d: %w", oid, err)
	}
	return &rel, nil
}

func scanColumnStats(row rowScanner) (domain.ColumnStats, error) {
	var (
		cs                 domain.ColumnStats
		rel, attnum, width int64
		nullFrac, distinct float64
		slots              string
	)
	if err := row.Scan(&rel, &attnum, &cs.Inherit, &nullFrac, &width, &distinct, &slots); err != nil {
		return cs, err
	}
	cs.Relation = domain.Oid(rel)
	cs.AttNum = domain.AttrNumber(attnum)
	cs.NullFrac = float32(nullFrac)
	cs.Width = int32(width)
	cs.Distinct = float32(distinct)
	if err := json.Unmarshal([]byte(slots), &cs.Slots); err != nil {
		return cs, fmt.Errorf("failed to decode slots of %v: %w", cs.Key(), err)
	}
	return cs, nil
}

func scanExtendedStats(row rowScanner) (domain.ExtendedStats, error) {
	var (
		es                        domain.ExtendedStats
		oid, rel, nsp, owner, tgt int64
		keys, kinds               string
	)
	if err := row.Scan(&oid, &rel, &es.Name, &nsp, &owner, &tgt, &keys, &kinds); err != nil {
		return es, err
	}
	es.Oid = domain.Oid(oid)
	es.Relation = domain.Oid(rel)
	es.Namespace = domain.Oid(nsp)
	es.Owner = domain.Oid(owner)
	es.StatTarget = int32(tgt)
	if err := json.Unmarshal([]byte(keys), &es.Keys); err != nil {
		return es, fmt.Errorf("failed to decode stxkeys of %d: %w", oid, err)
	}
	if err := json.Unmarshal([]byte(kinds), &es.Kinds); err != nil {
		return es, fmt.Errorf("failed to decode stxkind of %d: %w", oid, err)
	}
	return es, nil
}

func (r *reader) queryRow(ctx context.Context, b sq.SelectBuilder) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.q.QueryRowContext(ctx, query, args...), nil
}

func (r *reader) GetRelation(ctx context.Context, rel domain.Oid) (*domain.RelationInfo, error) {
	row, err := r.queryRow(ctx, r.dialect.builder().
		Select(relationColumns...).
		From(tableRelation).
		Where(sq.Eq{"oid": int64(rel)}))
	if err != nil {
		return nil, err
	}
	info, err := scanRelation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewErrNotFound("relation", rel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read relation %d: %w", rel, err)
	}
	return info, nil
}

func (r *reader) namespaceOid(ctx context.Context, schema string) (domain.Oid, error) {
	row, err := r.queryRow(ctx, r.dialect.builder().
		Select("oid").
		From(tableNamespace).
		Where(sq.Eq{"nspname": schema}))
	if err != nil {
		return domain.InvalidOid, err
	}
	var oid int64
	if err := row.Scan(&oid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.InvalidOid, domain.NewErrNotFound("schema", schema)
		}
		return domain.InvalidOid, fmt.Errorf("failed to read schema %s: %w", schema, err)
	}
	return domain.Oid(oid), nil
}

func (r *reader) LookupRelation(ctx context.Context, schema, name string) (*domain.RelationInfo, error) {
	nsp, err := r.namespaceOid(ctx, schema)
	if err != nil {
		return nil, err
	}
	row, err := r.queryRow(ctx, r.dialect.builder().
		Select(relationColumns...).
		From(tableRelation).
		Where(sq.Eq{"relnamespace": int64(nsp)}).
		Where(sq.Eq{"relname": name}))
	if err != nil {
		return nil, err
	}
	info, err := scanRelation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewErrNotFound("relation", schema+"."+name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read relation %s.%s: %w", schema, name, err)
	}
	return info, nil
}

func (r *reader) GetNamespace(ctx context.Context, nsp domain.Oid) (*domain.Namespace, error) {
	row, err := r.queryRow(ctx, r.dialect.builder().
		Select("oid", "nspname").
		From(tableNamespace).
		Where(sq.Eq{"oid": int64(nsp)}))
	if err != nil {
		return nil, err
	}
	var (
		oid  int64
		name string
	)
	if err := row.Scan(&oid, &name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewErrNotFound("schema", nsp)
		}
		return nil, fmt.Errorf("failed to read schema %d: %w", nsp, err)
	}
	return &domain.Namespace{Oid: domain.Oid(oid), Name: name}, nil
}

func (r *reader) GetColumnStats(ctx context.Context, rel domain.Oid) ([]domain.ColumnStats, error) {
	query, args, err := r.dialect.builder().
		Select(statisticColumns...).
		From(tableStatistic).
		Where(sq.Eq{"starelid": int64(rel)}).
		OrderBy("staattnum", "stainherit").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read column statistics of %d: %w", rel, err)
	}
	defer rows.Close()

	var out []domain.ColumnStats
	for rows.Next() {
		cs, err := scanColumnStats(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (r *reader) GetColumnStat(ctx context.Context, key domain.StatKey) (*domain.ColumnStats, error) {
	row, err := r.queryRow(ctx, r.dialect.builder().
		Select(statisticColumns...).
		From(tableStatistic).
		Where(sq.Eq{"starelid": int64(key.Relation)}).
		Where(sq.Eq{"staattnum": int64(key.AttNum)}).
		Where(sq.Eq{"stainherit": key.Inherit}))
	if err != nil {
		return nil, err
	}
	cs, err := scanColumnStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewErrNotFound("column statistic", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read column statistic %v: %w", key, err)
	}
	return &cs, nil
}

func (r *reader) GetExtendedStats(ctx context.Context, rel domain.Oid) ([]domain.ExtendedStats, error) {
	query, args, err := r.dialect.builder().
		Select(statExtColumns...).
		From(tableStatExt).
		Where(sq.Eq{"stxrelid": int64(rel)}).
		OrderBy("oid").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read extended statistics of %d: %w", rel, err)
	}
	defer rows.Close()

	var out []domain.ExtendedStats
	for rows.Next() {
		es, err := scanExtendedStats(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, es)
	}
	return out, rows.Err()
}

func (r *reader) ExtendedStatsNameExists(ctx context.Context, nsp domain.Oid, name string) (bool, error) {
	row, err := r.queryRow(ctx, r.dialect.builder().
		Select("COUNT(*)").
		From(tableStatExt).
		Where(sq.Eq{"stxnamespace": int64(nsp)}).
		Where(sq.Eq{"stxname": name}))
	if err != nil {
		return false, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check extended statistic name %s: %w", name, err)
	}
	return n > 0, nil
}
