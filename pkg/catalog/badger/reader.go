package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/kasuganosora/videx/pkg/domain"
)

// reader 在 badger 事务上实现只读接口
type reader struct {
	txn *badger.Txn
}

// getJSON 读取并解码一个值，键不存在时返回 false
func (r *reader) getJSON(key []byte, out interface{}) (bool, error) {
	item, err := r.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(val, out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// getOid 读取索引键指向的 oid
func (r *reader) getOid(key []byte) (domain.Oid, bool, error) {
	item, err := r.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.InvalidOid, false, nil
	}
	if err != nil {
		return domain.InvalidOid, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return domain.InvalidOid, false, err
	}
	if len(val) != 4 {
		return domain.InvalidOid, false, fmt.Errorf("corrupt oid value under %s", key)
	}
	return domain.Oid(binary.BigEndian.Uint32(val)), true, nil
}

// scanPrefix 依次返回前缀下的键和值
func (r *reader) scanPrefix(prefix []byte, fn func(key, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := r.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", item.Key(), err)
		}
		if err := fn(item.KeyCopy(nil), val); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) GetRelation(ctx context.Context, rel domain.Oid) (*domain.RelationInfo, error) {
	var info domain.RelationInfo
	ok, err := r.getJSON(oidKey(PrefixRelation, rel), &info)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewErrNotFound("relation", rel)
	}
	return &info, nil
}

func (r *reader) LookupRelation(ctx context.Context, schema, name string) (*domain.RelationInfo, error) {
	nsp, ok, err := r.getOid(namespaceNameKey(schema))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewErrNotFound("schema", schema)
	}
	rel, ok, err := r.getOid(relationNameKey(nsp, name))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewErrNotFound("relation", schema+"."+name)
	}
	return r.GetRelation(ctx, rel)
}

func (r *reader) GetNamespace(ctx context.Context, nsp domain.Oid) (*domain.Namespace, error) {
	var out domain.Namespace
	ok, err := r.getJSON(oidKey(PrefixNamespace, nsp), &out)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewErrNotFound("schema", nsp)
	}
	return &out, nil
}

func (r *reader) GetColumnStats(ctx context.Context, rel domain.Oid) ([]domain.ColumnStats, error) {
	var out []domain.ColumnStats
	err := r.scanPrefix(columnStatsPrefix(rel), func(key, val []byte) error {
		var cs domain.ColumnStats
		if err := json.Unmarshal(val, &cs); err != nil {
			return fmt.Errorf("failed to decode %s: %w", key, err)
		}
		out = append(out, cs)
		return nil
	})
	return out, err
}

func (r *reader) GetColumnStat(ctx context.Context, key domain.StatKey) (*domain.ColumnStats, error) {
	var out domain.ColumnStats
	ok, err := r.getJSON(columnStatsKey(key), &out)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewErrNotFound("column statistic", key)
	}
	return &out, nil
}

func (r *reader) GetExtendedStats(ctx context.Context, rel domain.Oid) ([]domain.ExtendedStats, error) {
	var oids []domain.Oid
	err := r.scanPrefix(extStatsRelPrefix(rel), func(key, _ []byte) error {
		oid, ok := decodeExtStatsRelKey(key)
		if !ok {
			return fmt.Errorf("corrupt extended statistic index key %s", key)
		}
		oids = append(oids, oid)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.ExtendedStats, 0, len(oids))
	for _, oid := range oids {
		var es domain.ExtendedStats
		ok, err := r.getJSON(oidKey(PrefixExtStats, oid), &es)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("dangling extended statistic index entry %d", oid)
		}
		out = append(out, es)
	}
	return out, nil
}

func (r *reader) ExtendedStatsNameExists(ctx context.Context, nsp domain.Oid, name string) (bool, error) {
	_, ok, err := r.getOid(extStatsNameKey(nsp, name))
	return ok, err
}
